package ai

import "fmt"

const defaultChatContext = "General social media assistance"

// PostRequest describes a post to draft.
type PostRequest struct {
	Topic    string `json:"topic"`
	Tone     string `json:"tone"`
	Platform string `json:"platform"`
	Length   int    `json:"length"`
}

func PostPrompt(r PostRequest) string {
	return fmt.Sprintf("Generate a %s social media post for %s about %s. \n\n"+
		"The post should be approximately %d words long. \n\n"+
		"Include relevant hashtags if appropriate for the platform.",
		r.Tone, r.Platform, r.Topic, r.Length)
}

// ChatPrompt frames message for the assistant. An empty context uses a
// general one.
func ChatPrompt(message, context string) string {
	if context == "" {
		context = defaultChatContext
	}
	return fmt.Sprintf("As a social media assistant, help with the following: %s\n\nContext: %s", message, context)
}

func SentimentPrompt(text string) string {
	return "Analyze the sentiment of the following text and classify it as positive, negative, or neutral. " +
		"Provide a brief explanation for your classification.\n\nText: " + text + "\n\nSentiment:"
}
