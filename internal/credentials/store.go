package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/secrets"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrNotOwner           = errors.New("credential belongs to another user")
	ErrSecretRequired     = errors.New("secret is required")
	ErrInvalidProvider    = errors.New("unsupported provider")
	ErrInvalidConfig      = errors.New("invalid provider config")
)

// createAttempts bounds retries when a concurrent create wins the
// one-active-credential index.
const createAttempts = 3

// Store persists credentials. Secrets are sealed before they reach the
// database and unsealed into Credential.Secret on every read.
type Store struct {
	db     *gorm.DB
	sealer *secrets.Sealer
}

func NewStore(db *gorm.DB, sealer *secrets.Sealer) *Store {
	return &Store{db: db, sealer: sealer}
}

// WithTx returns a store bound to an outer transaction.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx, sealer: s.sealer}
}

// Create deactivates every active credential for (userID, provider) and
// inserts the new one as active, in one transaction.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, provider models.Provider, secret string, config datatypes.JSON) (*models.Credential, error) {
	if !provider.Valid() {
		return nil, ErrInvalidProvider
	}
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretRequired
	}

	sealed, err := s.sealer.Seal(secret, secretAAD(userID, provider))
	if err != nil {
		return nil, fmt.Errorf("failed to seal secret: %w", err)
	}

	for attempt := 1; ; attempt++ {
		cred := &models.Credential{
			UserID:       userID,
			Provider:     provider,
			SecretCipher: sealed,
			Config:       config,
			Active:       true,
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Credential{}).
				Where("user_id = ? AND provider = ? AND active = ?", userID, provider, true).
				Update("active", false).Error; err != nil {
				return err
			}
			return tx.Create(cred).Error
		})
		if err == nil {
			cred.Secret = secret
			return cred, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == createAttempts {
			return nil, fmt.Errorf("failed to create credential: %w", err)
		}
	}
}

// Update replaces the secret and/or config. A nil argument leaves the field alone.
// The active flag is never touched.
func (s *Store) Update(ctx context.Context, id uuid.UUID, secret *string, config datatypes.JSON) (*models.Credential, error) {
	cred, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if secret != nil {
		if strings.TrimSpace(*secret) == "" {
			return nil, ErrSecretRequired
		}
		sealed, err := s.sealer.Seal(*secret, secretAAD(cred.UserID, cred.Provider))
		if err != nil {
			return nil, fmt.Errorf("failed to seal secret: %w", err)
		}
		updates["secret_cipher"] = sealed
	}
	if config != nil {
		updates["config"] = config
	}
	if len(updates) == 0 {
		return cred, nil
	}

	if err := s.db.WithContext(ctx).Model(cred).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update credential: %w", err)
	}
	return s.FindByID(ctx, id)
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*models.Credential, error) {
	var cred models.Credential
	if err := s.db.WithContext(ctx).First(&cred, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := s.unseal(&cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *Store) FindActive(ctx context.Context, userID uuid.UUID, provider models.Provider) (*models.Credential, error) {
	var cred models.Credential
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND provider = ? AND active = ?", userID, provider, true).
		Order("created_at DESC").
		First(&cred).Error
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.unseal(&cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

// ListAll returns every credential of the user, newest first. An empty
// provider lists all providers.
func (s *Store) ListAll(ctx context.Context, userID uuid.UUID, provider models.Provider) ([]models.Credential, error) {
	return s.list(ctx, userID, provider, false)
}

func (s *Store) ListActive(ctx context.Context, userID uuid.UUID, provider models.Provider) ([]models.Credential, error) {
	return s.list(ctx, userID, provider, true)
}

func (s *Store) list(ctx context.Context, userID uuid.UUID, provider models.Provider, activeOnly bool) ([]models.Credential, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if provider != "" {
		q = q.Where("provider = ?", provider)
	}
	if activeOnly {
		q = q.Where("active = ?", true)
	}

	var creds []models.Credential
	if err := q.Order("created_at DESC").Find(&creds).Error; err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	for i := range creds {
		if err := s.unseal(&creds[i]); err != nil {
			return nil, err
		}
	}
	return creds, nil
}

func (s *Store) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Credential{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete credential: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCredentialNotFound
	}
	return nil
}

func (s *Store) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Credential{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete credentials: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Store) CountActive(ctx context.Context, userID uuid.UUID, provider models.Provider) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Credential{}).
		Where("user_id = ? AND provider = ? AND active = ?", userID, provider, true).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count credentials: %w", err)
	}
	return n, nil
}

func (s *Store) unseal(cred *models.Credential) error {
	secret, err := s.sealer.Open(cred.SecretCipher, secretAAD(cred.UserID, cred.Provider))
	if err != nil {
		return fmt.Errorf("credential %s: %w", cred.ID, err)
	}
	cred.Secret = secret
	return nil
}

// secretAAD binds a sealed secret to its owner and provider.
func secretAAD(userID uuid.UUID, provider models.Provider) []byte {
	return append(userID[:], []byte(provider)...)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrCredentialNotFound
	}
	return err
}
