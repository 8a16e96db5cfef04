package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
)

const notionMaxPages = 10

type NotionPage struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Status       string    `json:"status,omitempty"`
	Date         string    `json:"date,omitempty"`
	LastEditedAt time.Time `json:"last_edited_at"`
}

type NotionActivity struct {
	DatabaseID string       `json:"database_id"`
	Date       string       `json:"date"`
	Pages      []NotionPage `json:"pages"`
}

func (a *NotionActivity) Provider() models.Provider { return models.ProviderNotion }

func (a *NotionActivity) Empty() bool { return len(a.Pages) == 0 }

type NotionGateway struct {
	client  *http.Client
	baseURL string
	version string
}

func NewNotionGateway(client *http.Client, baseURL, version string) *NotionGateway {
	return &NotionGateway{client: client, baseURL: strings.TrimRight(baseURL, "/"), version: version}
}

func (g *NotionGateway) Provider() models.Provider { return models.ProviderNotion }

func (g *NotionGateway) TestConnection(ctx context.Context, cred *models.Credential) bool {
	req, err := g.request(ctx, cred, http.MethodGet, g.baseURL+"/users/me", nil)
	if err != nil {
		return false
	}
	if err := doJSON(g.client, req, models.ProviderNotion, nil); err != nil {
		slog.Warn("notion connection test failed", "provider", models.ProviderNotion, "user_id", cred.UserID.String(), "error", err)
		return false
	}
	return true
}

type notionQueryResponse struct {
	Results []struct {
		ID             string                     `json:"id"`
		URL            string                     `json:"url"`
		LastEditedTime time.Time                  `json:"last_edited_time"`
		Properties     map[string]json.RawMessage `json:"properties"`
	} `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

func (g *NotionGateway) FetchActivity(ctx context.Context, cred *models.Credential, date time.Time) (Activity, error) {
	cfg, err := cred.NotionConfig()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseID == "" {
		return nil, fmt.Errorf("%w: notion database_id is required", ErrBadConfig)
	}

	day := models.NormalizeDate(date)
	activity := EmptyActivity(models.ProviderNotion, day).(*NotionActivity)
	activity.DatabaseID = cfg.DatabaseID

	body := map[string]interface{}{
		"filter":    notionFilter(cfg, day),
		"page_size": 100,
	}
	target := fmt.Sprintf("%s/databases/%s/query", g.baseURL, url.PathEscape(cfg.DatabaseID))

	for page := 0; page < notionMaxPages; page++ {
		req, err := g.request(ctx, cred, http.MethodPost, target, body)
		if err != nil {
			return nil, err
		}
		var resp notionQueryResponse
		if err := doJSON(g.client, req, models.ProviderNotion, &resp); err != nil {
			return nil, err
		}

		for _, r := range resp.Results {
			activity.Pages = append(activity.Pages, NotionPage{
				ID:           r.ID,
				URL:          r.URL,
				Title:        notionTitle(r.Properties[cfg.TitleProperty]),
				Status:       notionStatus(r.Properties[cfg.StatusProperty]),
				Date:         notionDate(r.Properties[cfg.DateProperty]),
				LastEditedAt: r.LastEditedTime,
			})
		}

		if !resp.HasMore || resp.NextCursor == nil {
			break
		}
		body["start_cursor"] = *resp.NextCursor
	}

	return activity, nil
}

// notionFilter restricts the query to the report day, combined with any
// filter the user configured.
func notionFilter(cfg models.NotionConfig, day time.Time) map[string]interface{} {
	dateFilter := map[string]interface{}{
		"property": cfg.DateProperty,
		"date": map[string]interface{}{
			"equals": day.Format(models.DateLayout),
		},
	}
	if len(cfg.FilterConditions) == 0 {
		return dateFilter
	}
	return map[string]interface{}{
		"and": []interface{}{dateFilter, cfg.FilterConditions},
	}
}

func notionTitle(raw json.RawMessage) string {
	var prop struct {
		Title    []notionText `json:"title"`
		RichText []notionText `json:"rich_text"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &prop) != nil {
		return ""
	}
	if len(prop.Title) > 0 {
		return joinText(prop.Title)
	}
	return joinText(prop.RichText)
}

func notionStatus(raw json.RawMessage) string {
	var prop struct {
		Status *struct {
			Name string `json:"name"`
		} `json:"status"`
		Select *struct {
			Name string `json:"name"`
		} `json:"select"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &prop) != nil {
		return ""
	}
	if prop.Status != nil {
		return prop.Status.Name
	}
	if prop.Select != nil {
		return prop.Select.Name
	}
	return ""
}

func notionDate(raw json.RawMessage) string {
	var prop struct {
		Date *struct {
			Start string `json:"start"`
		} `json:"date"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &prop) != nil || prop.Date == nil {
		return ""
	}
	return prop.Date.Start
}

type notionText struct {
	PlainText string `json:"plain_text"`
}

func joinText(parts []notionText) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.PlainText)
	}
	return b.String()
}

func (g *NotionGateway) request(ctx context.Context, cred *models.Credential, method, target string, body interface{}) (*http.Request, error) {
	req, err := newJSONRequest(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+cred.Secret)
	req.Header.Set("Notion-Version", g.version)
	return req, nil
}
