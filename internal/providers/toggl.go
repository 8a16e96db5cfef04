package providers

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
)

type TogglEntry struct {
	ID              int64      `json:"id"`
	Description     string     `json:"description"`
	ProjectID       *int64     `json:"project_id,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	Start           time.Time  `json:"start"`
	Stop            *time.Time `json:"stop,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	Running         bool       `json:"running,omitempty"`
}

type TogglActivity struct {
	Date         string       `json:"date"`
	TimeZone     string       `json:"time_zone"`
	Entries      []TogglEntry `json:"entries"`
	TotalSeconds int64        `json:"total_seconds"`
	TotalHours   float64      `json:"total_hours"`
	Skipped      bool         `json:"skipped,omitempty"`
}

func (a *TogglActivity) Provider() models.Provider { return models.ProviderToggl }

func (a *TogglActivity) Empty() bool { return len(a.Entries) == 0 }

type TogglGateway struct {
	client  *http.Client
	baseURL string
	now     func() time.Time
}

func NewTogglGateway(client *http.Client, baseURL string) *TogglGateway {
	return &TogglGateway{client: client, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}
}

func (g *TogglGateway) Provider() models.Provider { return models.ProviderToggl }

func (g *TogglGateway) TestConnection(ctx context.Context, cred *models.Credential) bool {
	req, err := g.request(ctx, cred, g.baseURL+"/me")
	if err != nil {
		return false
	}
	if err := doJSON(g.client, req, models.ProviderToggl, nil); err != nil {
		slog.Warn("toggl connection test failed", "provider", models.ProviderToggl, "user_id", cred.UserID.String(), "error", err)
		return false
	}
	return true
}

type togglEntryResponse struct {
	ID          int64      `json:"id"`
	WorkspaceID int64      `json:"workspace_id"`
	ProjectID   *int64     `json:"project_id"`
	Description string     `json:"description"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop"`
	Duration    int64      `json:"duration"`
	Tags        []string   `json:"tags"`
}

func (g *TogglGateway) FetchActivity(ctx context.Context, cred *models.Credential, date time.Time) (Activity, error) {
	cfg, err := cred.TogglConfig()
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		slog.Warn("unknown toggl time zone, using UTC", "provider", models.ProviderToggl, "user_id", cred.UserID.String(), "error", err)
		loc = time.UTC
	}

	day := models.NormalizeDate(date)
	activity := EmptyActivity(models.ProviderToggl, day).(*TogglActivity)
	activity.TimeZone = loc.String()

	if !cfg.IncludeWeekends && isWeekend(day) {
		activity.Skipped = true
		return activity, nil
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	q := url.Values{}
	q.Set("start_date", start.Format(time.RFC3339))
	q.Set("end_date", start.AddDate(0, 0, 1).Format(time.RFC3339))

	req, err := g.request(ctx, cred, g.baseURL+"/me/time_entries?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var entries []togglEntryResponse
	if err := doJSON(g.client, req, models.ProviderToggl, &entries); err != nil {
		return nil, err
	}

	projects := make(map[int64]bool, len(cfg.ProjectIDs))
	for _, id := range cfg.ProjectIDs {
		projects[id] = true
	}
	tags := make(map[string]bool, len(cfg.DefaultTags))
	for _, t := range cfg.DefaultTags {
		tags[strings.ToLower(t)] = true
	}

	for _, e := range entries {
		if cfg.WorkspaceID != 0 && e.WorkspaceID != cfg.WorkspaceID {
			continue
		}
		if len(projects) > 0 && (e.ProjectID == nil || !projects[*e.ProjectID]) {
			continue
		}
		if len(tags) > 0 && !hasAnyTag(e.Tags, tags) {
			continue
		}

		entry := TogglEntry{
			ID:              e.ID,
			Description:     e.Description,
			ProjectID:       e.ProjectID,
			Tags:            e.Tags,
			Start:           e.Start,
			Stop:            e.Stop,
			DurationSeconds: e.Duration,
		}
		// Running entries report a negative duration.
		if e.Duration < 0 {
			entry.Running = true
			entry.DurationSeconds = int64(g.now().Sub(e.Start).Seconds())
			if entry.DurationSeconds < 0 {
				entry.DurationSeconds = 0
			}
		}
		activity.Entries = append(activity.Entries, entry)
		activity.TotalSeconds += entry.DurationSeconds
	}
	activity.TotalHours = math.Round(float64(activity.TotalSeconds)/36) / 100

	return activity, nil
}

func (g *TogglGateway) request(ctx context.Context, cred *models.Credential, target string) (*http.Request, error) {
	req, err := newJSONRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(cred.Secret, "api_token")
	return req, nil
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func hasAnyTag(entryTags []string, wanted map[string]bool) bool {
	for _, t := range entryTags {
		if wanted[strings.ToLower(t)] {
			return true
		}
	}
	return false
}
