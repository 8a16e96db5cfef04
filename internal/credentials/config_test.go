package credentials

import (
	"encoding/json"
	"testing"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeConfig_GitHub(t *testing.T) {
	cfg, err := NormalizeConfig(models.ProviderGitHub, json.RawMessage(`{"owner":" octo ","repo":"hello","extra":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":"octo","repo":"hello"}`, string(cfg))

	_, err = NormalizeConfig(models.ProviderGitHub, json.RawMessage(`{"owner":"octo"}`))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNormalizeConfig_TogglDefaults(t *testing.T) {
	cfg, err := NormalizeConfig(models.ProviderToggl, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"time_zone":"UTC","include_weekends":false}`, string(cfg))

	_, err = NormalizeConfig(models.ProviderToggl, json.RawMessage(`{"time_zone":"Mars/Olympus"}`))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNormalizeConfig_TogglNumericWorkspace(t *testing.T) {
	cfg, err := NormalizeConfig(models.ProviderToggl, json.RawMessage(`{"workspace_id":1234567,"project_ids":[7]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"workspace_id":1234567,"project_ids":[7],"time_zone":"UTC","include_weekends":false}`, string(cfg))
}

func TestNormalizeConfig_NotionDefaults(t *testing.T) {
	cfg, err := NormalizeConfig(models.ProviderNotion, json.RawMessage(`{"database_id":"db1"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"database_id":"db1","title_property":"Name","status_property":"Status","date_property":"Date"}`, string(cfg))

	_, err = NormalizeConfig(models.ProviderNotion, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNormalizeConfig_Rejects(t *testing.T) {
	_, err := NormalizeConfig(models.ProviderToggl, json.RawMessage(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NormalizeConfig(models.ProviderToggl, json.RawMessage(`{"project_ids":"x"}`))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NormalizeConfig(models.Provider("jira"), nil)
	assert.ErrorIs(t, err, ErrInvalidProvider)
}
