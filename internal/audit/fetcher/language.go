package fetcher

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
)

const maxLanguageCodeLength = 3

var languageNamer = display.English.Languages()

// NormalizeLanguage maps ISO language codes such as "en" or "es-MX" to English
// names. Values that already look like names are returned unchanged.
func NormalizeLanguage(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.UnknownLanguage
	}

	if !looksLikeCode(value) {
		return value
	}

	tag, err := language.Parse(strings.ReplaceAll(value, "_", "-"))
	if err != nil {
		return value
	}

	base, confidence := tag.Base()
	if confidence == language.No {
		return value
	}

	name := languageNamer.Name(base)
	if name == "" {
		return value
	}

	return name
}

func looksLikeCode(value string) bool {
	primary, _, _ := strings.Cut(strings.ReplaceAll(value, "_", "-"), "-")

	return len(primary) >= 2 && len(primary) <= maxLanguageCodeLength
}
