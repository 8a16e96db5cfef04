package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestParseProvider(t *testing.T) {
	p, ok := ParseProvider("GitHub")
	assert.True(t, ok)
	assert.Equal(t, ProviderGitHub, p)

	_, ok = ParseProvider("jira")
	assert.False(t, ok)
}

func TestCredential_ConfigDefaults(t *testing.T) {
	c := &Credential{Config: datatypes.JSON(`{}`)}

	gh, err := c.GitHubConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultGitHubBaseURL, gh.BaseURL)

	tg, err := c.TogglConfig()
	require.NoError(t, err)
	assert.Equal(t, "UTC", tg.TimeZone)
	assert.False(t, tg.IncludeWeekends)

	nt, err := c.NotionConfig()
	require.NoError(t, err)
	assert.Equal(t, "Name", nt.TitleProperty)
	assert.Equal(t, "Status", nt.StatusProperty)
	assert.Equal(t, "Date", nt.DateProperty)
}

func TestCredential_ConfigOverrides(t *testing.T) {
	c := &Credential{Config: datatypes.JSON(`{"base_url":"https://ghe.example.com/api/v3/","owner":"octo","repo":"hello"}`)}

	gh, err := c.GitHubConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://ghe.example.com/api/v3", gh.BaseURL)
	assert.Equal(t, "octo", gh.Owner)
	assert.Equal(t, "hello", gh.Repo)
}

func TestCredential_EmptyConfig(t *testing.T) {
	c := &Credential{}
	tg, err := c.TogglConfig()
	require.NoError(t, err)
	assert.Equal(t, "UTC", tg.TimeZone)
}

func TestCredential_InvalidConfig(t *testing.T) {
	c := &Credential{Config: datatypes.JSON(`{"owner": 12}`)}
	_, err := c.GitHubConfig()
	assert.Error(t, err)
}
