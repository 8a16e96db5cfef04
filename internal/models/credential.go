package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderToggl  Provider = "toggl"
	ProviderNotion Provider = "notion"
)

// Providers returns the supported providers in a stable order.
func Providers() []Provider {
	return []Provider{ProviderGitHub, ProviderToggl, ProviderNotion}
}

func ParseProvider(s string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

func (p Provider) Valid() bool {
	switch p {
	case ProviderGitHub, ProviderToggl, ProviderNotion:
		return true
	}
	return false
}

// Credential is an access token plus provider configuration for one user.
// At most one row per (user_id, provider) has active = true; the partial
// unique index enforces it at the storage layer.
type Credential struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_credentials_user_provider,priority:1;uniqueIndex:idx_credentials_one_active,priority:1,where:active = true" json:"user_id"`
	Provider     Provider       `gorm:"size:20;not null;index:idx_credentials_user_provider,priority:2;uniqueIndex:idx_credentials_one_active,priority:2" json:"provider"`
	SecretCipher string         `gorm:"type:text;not null" json:"-"`
	Secret       string         `gorm:"-" json:"-"`
	Config       datatypes.JSON `json:"config"`
	Active       bool           `gorm:"not null;index" json:"active"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// GitHubConfig targets a single repository. Owner doubles as the commit author filter.
type GitHubConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
}

type TogglConfig struct {
	WorkspaceID     int64    `json:"workspace_id,omitempty"`
	ProjectIDs      []int64  `json:"project_ids,omitempty"`
	DefaultTags     []string `json:"default_tags,omitempty"`
	TimeZone        string   `json:"time_zone"`
	IncludeWeekends bool     `json:"include_weekends"`
}

type NotionConfig struct {
	DatabaseID       string                 `json:"database_id"`
	TitleProperty    string                 `json:"title_property"`
	StatusProperty   string                 `json:"status_property"`
	DateProperty     string                 `json:"date_property"`
	FilterConditions map[string]interface{} `json:"filter_conditions,omitempty"`
}

const (
	DefaultGitHubBaseURL      = "https://api.github.com"
	DefaultTogglTimeZone      = "UTC"
	DefaultNotionTitleProp    = "Name"
	DefaultNotionStatusProp   = "Status"
	DefaultNotionDateProperty = "Date"
)

func (c GitHubConfig) WithDefaults() GitHubConfig {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultGitHubBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

func (c TogglConfig) WithDefaults() TogglConfig {
	if strings.TrimSpace(c.TimeZone) == "" {
		c.TimeZone = DefaultTogglTimeZone
	}
	return c
}

func (c NotionConfig) WithDefaults() NotionConfig {
	if strings.TrimSpace(c.TitleProperty) == "" {
		c.TitleProperty = DefaultNotionTitleProp
	}
	if strings.TrimSpace(c.StatusProperty) == "" {
		c.StatusProperty = DefaultNotionStatusProp
	}
	if strings.TrimSpace(c.DateProperty) == "" {
		c.DateProperty = DefaultNotionDateProperty
	}
	return c
}

func (c *Credential) GitHubConfig() (GitHubConfig, error) {
	var cfg GitHubConfig
	if err := decodeConfig(c.Config, &cfg); err != nil {
		return cfg, err
	}
	return cfg.WithDefaults(), nil
}

func (c *Credential) TogglConfig() (TogglConfig, error) {
	var cfg TogglConfig
	if err := decodeConfig(c.Config, &cfg); err != nil {
		return cfg, err
	}
	return cfg.WithDefaults(), nil
}

func (c *Credential) NotionConfig() (NotionConfig, error) {
	var cfg NotionConfig
	if err := decodeConfig(c.Config, &cfg); err != nil {
		return cfg, err
	}
	return cfg.WithDefaults(), nil
}

// DecodeConfig unmarshals the stored config without applying defaults.
func (c *Credential) DecodeConfig(dst interface{}) error {
	return decodeConfig(c.Config, dst)
}

func decodeConfig(raw datatypes.JSON, dst interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid provider config: %w", err)
	}
	return nil
}
