package providers

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
)

var (
	ErrUnauthorized = errors.New("provider rejected the credential")
	ErrForbidden    = errors.New("provider denied access")
	ErrNotFound     = errors.New("provider resource not found")
	ErrUpstream     = errors.New("provider request failed")
	ErrBadConfig    = errors.New("credential config is incomplete")
)

// Activity is the normalized payload a gateway returns for one day.
type Activity interface {
	Provider() models.Provider
	Empty() bool
}

// Gateway talks to one external provider on behalf of a stored credential.
// FetchActivity returns an empty activity, never an error, when the day holds
// no data. Errors are reserved for auth, access and transport failures.
type Gateway interface {
	Provider() models.Provider
	TestConnection(ctx context.Context, cred *models.Credential) bool
	FetchActivity(ctx context.Context, cred *models.Credential, date time.Time) (Activity, error)
}

// EmptyActivity returns the zero payload for a provider and date.
func EmptyActivity(p models.Provider, date time.Time) Activity {
	day := models.NormalizeDate(date).Format(models.DateLayout)
	switch p {
	case models.ProviderGitHub:
		return &GitHubActivity{Date: day, Commits: []GitHubCommit{}, PullRequests: []GitHubPullRequest{}}
	case models.ProviderToggl:
		return &TogglActivity{Date: day, Entries: []TogglEntry{}}
	case models.ProviderNotion:
		return &NotionActivity{Date: day, Pages: []NotionPage{}}
	}
	return nil
}

type Registry struct {
	gateways map[models.Provider]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[models.Provider]Gateway, len(gateways))}
	for _, g := range gateways {
		r.gateways[g.Provider()] = g
	}
	return r
}

func (r *Registry) Get(p models.Provider) (Gateway, bool) {
	g, ok := r.gateways[p]
	return g, ok
}

func (r *Registry) Providers() []models.Provider {
	var out []models.Provider
	for _, p := range models.Providers() {
		if _, ok := r.gateways[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
