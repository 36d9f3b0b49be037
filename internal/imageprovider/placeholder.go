package imageprovider

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// DefaultPlaceholderBase renders a grey 300x300 tile captioned with the title.
const DefaultPlaceholderBase = "https://via.placeholder.com/300x300/cccccc/666666"

// componentEscaper undoes the query escaping of characters that URI
// components leave literal, and encodes spaces as %20.
var componentEscaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// PlaceholderURL builds the placeholder image URL for title. Titles longer
// than MaxTitleLength runes are cut before escaping.
func PlaceholderURL(base, title string) string {
	if base == "" {
		base = DefaultPlaceholderBase
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		title = string([]rune(title)[:MaxTitleLength])
	}
	return base + "?text=" + componentEscaper.Replace(url.QueryEscape(title))
}
