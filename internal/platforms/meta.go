package platforms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/socialsync/socialsync/internal/models"
)

const (
	metaGraphBase  = "https://graph.facebook.com/v18.0"
	metaDialogURL  = "https://www.facebook.com/v18.0/dialog/oauth"
	facebookMetric = "page_impressions,page_engaged_users,page_post_engagements"
	igMetric       = "impressions,reach,profile_views"
)

type graphInsightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Period string `json:"period"`
		Values []struct {
			Value   json.RawMessage `json:"value"`
			EndTime string          `json:"end_time"`
		} `json:"values"`
	} `json:"data"`
}

// graphInsights reads /{id}/insights and totals each metric. Values that are
// not plain numbers (breakdown objects) count as zero.
func graphInsights(ctx context.Context, c *Client, platform, base, id, token, metrics string) ([]models.Insight, error) {
	params := url.Values{}
	params.Set("metric", metrics)
	params.Set("period", "day")
	params.Set("access_token", token)

	var resp graphInsightsResponse
	err := c.doJSON(ctx, request{
		platform:  platform,
		operation: "insights",
		method:    http.MethodGet,
		url:       withQuery(base+"/"+url.PathEscape(id)+"/insights", params),
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]models.Insight, 0, len(resp.Data))
	for _, d := range resp.Data {
		ins := models.Insight{Name: d.Name, Period: d.Period, Values: make([]models.InsightValue, 0, len(d.Values))}
		for _, v := range d.Values {
			n := numericValue(v.Value)
			ins.Values = append(ins.Values, models.InsightValue{Value: n, EndTime: v.EndTime})
			ins.Total += n
		}
		out = append(out, ins)
	}
	return out, nil
}

func numericValue(raw json.RawMessage) int64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	return int64(f)
}

func insightTotal(insights []models.Insight, name string) int64 {
	var total int64
	for _, ins := range insights {
		if ins.Name == name {
			total += ins.Total
		}
	}
	return total
}

func graphBase(cfg string) string {
	return strings.TrimRight(orDefault(cfg, metaGraphBase), "/")
}
