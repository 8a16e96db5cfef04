package credentials

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestMask_GitHub(t *testing.T) {
	assert.Equal(t, "ghp_"+strings.Repeat("*", 14)+"yz", Mask(models.ProviderGitHub, "ghp_abcdefghijklmnyz"))
	assert.Equal(t, "abcd*fg", Mask(models.ProviderGitHub, "abcdefg"))
	assert.Equal(t, "****", Mask(models.ProviderGitHub, "abcdef"))
}

func TestMask_Toggl(t *testing.T) {
	assert.Equal(t, "1234****6789", Mask(models.ProviderToggl, "123456789"))
	assert.Equal(t, "abcd********wxyz", Mask(models.ProviderToggl, "abcdefghijklwxyz"))
	assert.Equal(t, "****", Mask(models.ProviderToggl, "12345678"))
}

func TestMask_Notion(t *testing.T) {
	assert.Equal(t, "secret_****yz", Mask(models.ProviderNotion, "secret_ayz"))
	assert.Equal(t, "secret_"+strings.Repeat("*", 13)+"yz", Mask(models.ProviderNotion, "secret_abcdefghijklmyz"))
	assert.Equal(t, "****", Mask(models.ProviderNotion, "secret_yz"))
}

func TestMask_MultiByteSecret(t *testing.T) {
	masked := Mask(models.ProviderGitHub, "ключ_доступа")
	assert.True(t, utf8.ValidString(masked))
	assert.Equal(t, "ключ******па", masked)

	assert.Equal(t, "****", Mask(models.ProviderToggl, "пароль12"))
}

func TestMask_UnknownProvider(t *testing.T) {
	assert.Equal(t, "****", Mask(models.Provider("jira"), "a-very-long-secret-value"))
}

// For every provider and length, the masked value keeps only the documented
// prefix and suffix and never reveals the whole secret.
func TestMask_NeverLeaksSecret(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	for provider, rule := range maskRules {
		for n := 0; n <= len(alphabet); n++ {
			secret := alphabet[:n]
			masked := Mask(provider, secret)

			if n < rule.minLength {
				assert.Equal(t, maskPlaceholder, masked, "%s len=%d", provider, n)
				continue
			}

			filler := n - rule.prefix - rule.suffix
			if filler < rule.minFiller {
				filler = rule.minFiller
			}
			assert.Len(t, masked, rule.prefix+filler+rule.suffix, "%s len=%d", provider, n)
			assert.True(t, strings.HasPrefix(masked, secret[:rule.prefix]))
			assert.True(t, strings.HasSuffix(masked, secret[n-rule.suffix:]))
			assert.NotContains(t, masked, secret, "%s len=%d", provider, n)
		}
	}
}
