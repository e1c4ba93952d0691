package decoder

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxScanLen bounds the escape-sequence scans (URL, Unicode, HTML) on very
// large inputs. Structural checks always see the whole text.
const maxScanLen = 64 << 10

var (
	jwtSegmentRegex    = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	percentEscapeRegex = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)
	unicodeEscapeRegex = regexp.MustCompile(`\\(u[0-9A-Fa-f]{4}|u\{[0-9A-Fa-f]{1,6}\}|U[0-9A-Fa-f]{8}|x[0-9A-Fa-f]{2})`)
	htmlEntityRegex    = regexp.MustCompile(`&(#[0-9]{1,7}|#[xX][0-9A-Fa-f]{1,6}|[A-Za-z][A-Za-z0-9]{1,31});`)
	base64StdRegex     = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
	base64URLRegex     = regexp.MustCompile(`^[A-Za-z0-9_-]+={0,2}$`)
	hexRegex           = regexp.MustCompile(`^(0[xX])?[0-9A-Fa-f]+$`)
	hexSeparatedRegex  = regexp.MustCompile(`^[0-9A-Fa-f]{2}([ :][0-9A-Fa-f]{2})+$`)
)

// detect runs the heuristics in priority order on already-trimmed text.
// enabled filters out decoders hidden from the catalog.
func detect(text string, enabled func(Type) bool) Type {
	if text == "" {
		return TypeAuto
	}
	checks := []struct {
		t     Type
		match func(string) bool
	}{
		{TypeJWT, looksLikeJWT},
		{TypeURL, looksLikeURL},
		{TypeUnicode, looksLikeUnicode},
		{TypeHTML, looksLikeHTML},
		{TypeHex, looksLikeHex},
		{TypeBase64, looksLikeBase64},
		{TypeBase64URL, looksLikeBase64URL},
	}
	for _, c := range checks {
		if enabled(c.t) && c.match(text) {
			return c.t
		}
	}
	return TypeAuto
}

func looksLikeJWT(s string) bool {
	s = strings.TrimPrefix(s, "Bearer ")
	parts := strings.Split(s, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return false
	}
	for i, p := range parts {
		if i == 2 && p == "" {
			continue
		}
		if !jwtSegmentRegex.MatchString(p) {
			return false
		}
	}
	for _, p := range parts[:2] {
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(p, "="))
		if err != nil {
			return false
		}
		var obj map[string]interface{}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return false
		}
	}
	return true
}

func looksLikeURL(s string) bool {
	return percentEscapeRegex.MatchString(scanPrefix(s))
}

func looksLikeUnicode(s string) bool {
	return unicodeEscapeRegex.MatchString(scanPrefix(s))
}

func looksLikeHTML(s string) bool {
	return htmlEntityRegex.MatchString(scanPrefix(s))
}

// scanPrefix returns at most maxScanLen bytes of s, cut on a rune boundary.
func scanPrefix(s string) string {
	if len(s) <= maxScanLen {
		return s
	}
	end := maxScanLen
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}

func looksLikeHex(s string) bool {
	if !hexRegex.MatchString(s) && !hexSeparatedRegex.MatchString(s) {
		return false
	}
	b, err := hex.DecodeString(normalizeHex(s))
	if err != nil || len(b) == 0 {
		return false
	}
	return isReadable(b)
}

func looksLikeBase64(s string) bool {
	s = stripWhitespace(s)
	if len(s) < 4 || len(s)%4 != 0 || !base64StdRegex.MatchString(s) {
		return false
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return false
	}
	return isReadable(b)
}

func looksLikeBase64URL(s string) bool {
	s = stripWhitespace(s)
	if len(s) < 4 || !strings.ContainsAny(s, "-_") || !base64URLRegex.MatchString(s) {
		return false
	}
	b, ok := decodeBase64With(s, base64.URLEncoding, base64.RawURLEncoding)
	if !ok {
		return false
	}
	return isReadable(b)
}

// isReadable reports whether b is valid UTF-8 text without control characters
// other than common whitespace.
func isReadable(b []byte) bool {
	if len(b) == 0 || !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
