package credentials

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
)

const maskPlaceholder = "****"

type maskRule struct {
	prefix    int
	suffix    int
	minFiller int
	minLength int
}

// Masking rules per provider. minLength keeps prefix and suffix from
// overlapping, so the full secret never appears in a masked value.
//
//	github: first 4 + "*" x (len-6) + last 2, shorter than 7 -> "****"
//	toggl:  first 4 + "*" x max(len-8, 4) + last 4, shorter than 9 -> "****"
//	notion: first 7 + "*" x max(len-9, 4) + last 2, shorter than 10 -> "****"
var maskRules = map[models.Provider]maskRule{
	models.ProviderGitHub: {prefix: 4, suffix: 2, minFiller: 0, minLength: 7},
	models.ProviderToggl:  {prefix: 4, suffix: 4, minFiller: 4, minLength: 9},
	models.ProviderNotion: {prefix: 7, suffix: 2, minFiller: 4, minLength: 10},
}

// Mask renders a secret for API responses. Lengths count runes, so the
// result is valid UTF-8 for any input. It is never applied to stored data.
func Mask(provider models.Provider, secret string) string {
	rule, ok := maskRules[provider]
	runes := []rune(secret)
	if !ok || len(runes) < rule.minLength {
		return maskPlaceholder
	}

	filler := len(runes) - rule.prefix - rule.suffix
	if filler < rule.minFiller {
		filler = rule.minFiller
	}
	return string(runes[:rule.prefix]) + strings.Repeat("*", filler) + string(runes[len(runes)-rule.suffix:])
}
