package credentials

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"gorm.io/datatypes"
)

// NormalizeConfig type-checks a provider config, verifies the fields a gateway
// cannot work without and fills the documented defaults. Unknown keys are dropped.
func NormalizeConfig(provider models.Provider, raw json.RawMessage) (datatypes.JSON, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	if raw[0] != '{' {
		return nil, fmt.Errorf("%w: config must be a JSON object", ErrInvalidConfig)
	}

	var normalized interface{}
	switch provider {
	case models.ProviderGitHub:
		var cfg models.GitHubConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if strings.TrimSpace(cfg.Owner) == "" || strings.TrimSpace(cfg.Repo) == "" {
			return nil, fmt.Errorf("%w: owner and repo are required", ErrInvalidConfig)
		}
		cfg.Owner, cfg.Repo = strings.TrimSpace(cfg.Owner), strings.TrimSpace(cfg.Repo)
		cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
		normalized = cfg
	case models.ProviderToggl:
		var cfg models.TogglConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		cfg = cfg.WithDefaults()
		if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
			return nil, fmt.Errorf("%w: unknown time_zone %q", ErrInvalidConfig, cfg.TimeZone)
		}
		normalized = cfg
	case models.ProviderNotion:
		var cfg models.NotionConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if strings.TrimSpace(cfg.DatabaseID) == "" {
			return nil, fmt.Errorf("%w: database_id is required", ErrInvalidConfig)
		}
		normalized = cfg.WithDefaults()
	default:
		return nil, ErrInvalidProvider
	}

	b, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
