package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/providers"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// View is the response shape of a credential. The secret is always masked.
type View struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Provider     models.Provider `json:"provider"`
	MaskedSecret string          `json:"masked_secret"`
	Config       json.RawMessage `json:"config"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func NewView(c *models.Credential) View {
	cfg := json.RawMessage(c.Config)
	if len(cfg) == 0 {
		cfg = json.RawMessage("{}")
	}
	return View{
		ID:           c.ID,
		UserID:       c.UserID,
		Provider:     c.Provider,
		MaskedSecret: Mask(c.Provider, c.Secret),
		Config:       cfg,
		Active:       c.Active,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

type Input struct {
	Secret string
	Config json.RawMessage
}

// Patch fields left nil are not changed.
type Patch struct {
	Secret *string
	Config json.RawMessage
}

// Service scopes store operations to the authenticated user and runs
// connection tests through the provider gateways.
type Service struct {
	store    *Store
	gateways *providers.Registry
	timeout  time.Duration
}

func NewService(store *Store, gateways *providers.Registry, timeout time.Duration) *Service {
	return &Service{store: store, gateways: gateways, timeout: timeout}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, provider models.Provider, in Input) (*View, error) {
	cfg, err := NormalizeConfig(provider, in.Config)
	if err != nil {
		return nil, err
	}
	cred, err := s.store.Create(ctx, userID, provider, in.Secret, cfg)
	if err != nil {
		return nil, err
	}
	v := NewView(cred)
	return &v, nil
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID, provider models.Provider, id uuid.UUID) (*View, error) {
	cred, err := s.owned(ctx, userID, provider, id)
	if err != nil {
		return nil, err
	}
	v := NewView(cred)
	return &v, nil
}

func (s *Service) Active(ctx context.Context, userID uuid.UUID, provider models.Provider) (*View, error) {
	cred, err := s.store.FindActive(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	v := NewView(cred)
	return &v, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, provider models.Provider, activeOnly bool) ([]View, error) {
	var (
		creds []models.Credential
		err   error
	)
	if activeOnly {
		creds, err = s.store.ListActive(ctx, userID, provider)
	} else {
		creds, err = s.store.ListAll(ctx, userID, provider)
	}
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(creds))
	for i := range creds {
		views = append(views, NewView(&creds[i]))
	}
	return views, nil
}

func (s *Service) Exists(ctx context.Context, userID uuid.UUID, provider models.Provider) (bool, error) {
	n, err := s.store.CountActive(ctx, userID, provider)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Service) Update(ctx context.Context, userID uuid.UUID, provider models.Provider, id uuid.UUID, patch Patch) (*View, error) {
	if _, err := s.owned(ctx, userID, provider, id); err != nil {
		return nil, err
	}

	var cfg datatypes.JSON
	if patch.Config != nil {
		normalized, err := NormalizeConfig(provider, patch.Config)
		if err != nil {
			return nil, err
		}
		cfg = normalized
	}

	cred, err := s.store.Update(ctx, id, patch.Secret, cfg)
	if err != nil {
		return nil, err
	}
	v := NewView(cred)
	return &v, nil
}

func (s *Service) Delete(ctx context.Context, userID uuid.UUID, provider models.Provider, id uuid.UUID) error {
	if _, err := s.owned(ctx, userID, provider, id); err != nil {
		return err
	}
	return s.store.DeleteByID(ctx, id)
}

// TestStored checks a saved credential against its provider. Only a missing or
// foreign credential is an error; connectivity problems yield false.
func (s *Service) TestStored(ctx context.Context, userID uuid.UUID, provider models.Provider, id uuid.UUID) (bool, error) {
	cred, err := s.owned(ctx, userID, provider, id)
	if err != nil {
		return false, err
	}
	return s.test(ctx, cred), nil
}

// TestCandidate checks a secret and config before they are saved.
func (s *Service) TestCandidate(ctx context.Context, userID uuid.UUID, provider models.Provider, in Input) (bool, error) {
	if in.Secret == "" {
		return false, ErrSecretRequired
	}
	cfg, err := NormalizeConfig(provider, in.Config)
	if err != nil {
		return false, err
	}
	return s.test(ctx, &models.Credential{
		UserID:   userID,
		Provider: provider,
		Secret:   in.Secret,
		Config:   cfg,
	}), nil
}

func (s *Service) test(ctx context.Context, cred *models.Credential) bool {
	gw, ok := s.gateways.Get(cred.Provider)
	if !ok {
		return false
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return gw.TestConnection(ctx, cred)
}

func (s *Service) owned(ctx context.Context, userID uuid.UUID, provider models.Provider, id uuid.UUID) (*models.Credential, error) {
	cred, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cred.Provider != provider {
		return nil, ErrCredentialNotFound
	}
	if cred.UserID != userID {
		return nil, ErrNotOwner
	}
	return cred, nil
}

// IsClientError reports whether err is caused by the request rather than the server.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSecretRequired) ||
		errors.Is(err, ErrInvalidProvider) ||
		errors.Is(err, ErrInvalidConfig)
}
