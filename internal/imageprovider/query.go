package imageprovider

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/precivox/precivox-images/internal/datastore"
	"github.com/precivox/precivox-images/internal/errors"
)

// MaxTitleLength is the longest accepted product title, in runes.
const MaxTitleLength = 200

// querySuffix steers image search towards packaged product photos.
const querySuffix = "produto embalagem foto"

// CanonicalKey is the cache key for a product title.
func CanonicalKey(title string) string {
	return datastore.CanonicalKey(title)
}

// NormalizeQuery turns a product title into the outbound search query:
// lower-cased, diacritics folded, punctuation replaced by spaces, whitespace
// collapsed, followed by the fixed product terms.
func NormalizeQuery(title string) string {
	folded := foldDiacritics(strings.ToLower(title))

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)

	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return querySuffix
	}
	return strings.Join(words, " ") + " " + querySuffix
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ValidateTitle rejects titles that are blank or longer than MaxTitleLength.
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return errors.New(errors.NewStd("product title is empty")).
			Component("imageprovider").
			Category(errors.CategoryValidation).
			Build()
	}
	if n := utf8.RuneCountInString(trimmed); n > MaxTitleLength {
		return errors.Newf("product title has %d characters, limit is %d", n, MaxTitleLength).
			Component("imageprovider").
			Category(errors.CategoryValidation).
			Context("length", n).
			Build()
	}
	return nil
}
