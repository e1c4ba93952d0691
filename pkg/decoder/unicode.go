package decoder

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

const msgInvalidUnicode = "유효한 Unicode 이스케이프 형식이 아닙니다: %s"

// decodeUnicode expands \uXXXX (with surrogate pairs), \u{X...}, \UXXXXXXXX,
// \xXX and the common single-character escapes. Backslashes not followed by a
// known escape are kept as-is.
func decodeUnicode(text string) (string, *Metadata, error) {
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		c := text[i]
		if c != '\\' || i+1 >= len(text) {
			b.WriteByte(c)
			i++
			continue
		}
		switch text[i+1] {
		case 'u':
			r, n, err := readUnicodeEscape(text[i:])
			if err != nil {
				return "", nil, err
			}
			b.WriteRune(r)
			i += n
		case 'U':
			r, err := parseHexRune(text[i:], 2, 8)
			if err != nil {
				return "", nil, err
			}
			if utf16.IsSurrogate(r) {
				return "", nil, invalidInput(msgInvalidUnicode, text[i:i+10])
			}
			b.WriteRune(r)
			i += 10
		case 'x':
			r, err := parseHexRune(text[i:], 2, 2)
			if err != nil {
				return "", nil, err
			}
			b.WriteRune(r)
			i += 4
		case 'n':
			b.WriteByte('\n')
			i += 2
		case 't':
			b.WriteByte('\t')
			i += 2
		case 'r':
			b.WriteByte('\r')
			i += 2
		case '\\', '"', '\'', '/':
			b.WriteByte(text[i+1])
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil, nil
}

// readUnicodeEscape reads one \u escape at the start of s and returns the rune
// and the number of bytes consumed. A high surrogate must be followed by a low one.
func readUnicodeEscape(s string) (rune, int, error) {
	if len(s) > 2 && s[2] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 4 || end > 9 {
			return 0, 0, invalidInput(msgInvalidUnicode, truncateEscape(s))
		}
		v, err := strconv.ParseUint(s[3:end], 16, 32)
		if err != nil || v > unicode.MaxRune || utf16.IsSurrogate(rune(v)) {
			return 0, 0, invalidInput(msgInvalidUnicode, s[:end+1])
		}
		return rune(v), end + 1, nil
	}

	r, err := parseHexRune(s, 2, 4)
	if err != nil {
		return 0, 0, err
	}
	if !utf16.IsSurrogate(r) {
		return r, 6, nil
	}
	if r >= 0xDC00 || len(s) < 12 || s[6] != '\\' || s[7] != 'u' {
		return 0, 0, invalidInput(msgInvalidUnicode, truncateEscape(s))
	}
	low, err := parseHexRune(s[6:], 2, 4)
	if err != nil {
		return 0, 0, err
	}
	pair := utf16.DecodeRune(r, low)
	if pair == utf8.RuneError {
		return 0, 0, invalidInput(msgInvalidUnicode, s[:12])
	}
	return pair, 12, nil
}

// parseHexRune parses width hex digits of s starting at offset.
func parseHexRune(s string, offset, width int) (rune, error) {
	if len(s) < offset+width {
		return 0, invalidInput(msgInvalidUnicode, s)
	}
	v, err := strconv.ParseUint(s[offset:offset+width], 16, 32)
	if err != nil || v > unicode.MaxRune {
		return 0, invalidInput(msgInvalidUnicode, s[:offset+width])
	}
	return rune(v), nil
}

func truncateEscape(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}

// encodeUnicode keeps printable ASCII (except backslash) and escapes everything
// else as \uXXXX, using surrogate pairs outside the BMP.
func encodeUnicode(text string) (string, error) {
	var b strings.Builder
	for _, r := range text {
		if r > ' ' && r < 0x7f && r != '\\' {
			b.WriteRune(r)
			continue
		}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&b, "\\u%04x\\u%04x", hi, lo)
			continue
		}
		fmt.Fprintf(&b, "\\u%04x", r)
	}
	return b.String(), nil
}
