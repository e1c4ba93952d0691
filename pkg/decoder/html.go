package decoder

import (
	"fmt"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"
)

func decodeHTML(text string) (string, *Metadata, error) {
	return html.UnescapeString(text), nil, nil
}

// encodeHTML escapes markup characters. Leading and trailing whitespace is
// written as numeric entities so it survives the input trimming of Decode.
func encodeHTML(text string) (string, error) {
	start := strings.IndexFunc(text, isNotSpace)
	if start < 0 {
		return spaceEntities(text), nil
	}
	last := strings.LastIndexFunc(text, isNotSpace)
	_, size := utf8.DecodeRuneInString(text[last:])
	end := last + size
	return spaceEntities(text[:start]) + html.EscapeString(text[start:end]) + spaceEntities(text[end:]), nil
}

func isNotSpace(r rune) bool {
	return !unicode.IsSpace(r)
}

func spaceEntities(s string) string {
	var b strings.Builder
	for _, r := range s {
		fmt.Fprintf(&b, "&#%d;", r)
	}
	return b.String()
}
