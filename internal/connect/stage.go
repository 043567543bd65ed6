package connect

// Stage is a step of the connect state machine:
//
//	Initiated → CodeReceived → TokenExchanged → [LongLivedUpgrade] → ProfileFetched → AccountPersisted
//
// Any stage may move to Failed.
type Stage int

const (
	StageInitiated Stage = iota
	StageCodeReceived
	StageTokenExchanged
	StageLongLivedUpgrade
	StageProfileFetched
	StageAccountPersisted
	StageFailed
)

var stageNames = [...]string{
	StageInitiated:        "initiated",
	StageCodeReceived:     "code_received",
	StageTokenExchanged:   "token_exchanged",
	StageLongLivedUpgrade: "long_lived_upgrade",
	StageProfileFetched:   "profile_fetched",
	StageAccountPersisted: "account_persisted",
	StageFailed:           "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageAccountPersisted || s == StageFailed
}
