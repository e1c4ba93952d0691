package decoder

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

const (
	msgInvalidBase64    = "유효한 Base64 형식이 아닙니다."
	msgInvalidBase64URL = "유효한 Base64 URL 형식이 아닙니다."
)

// stripWhitespace removes line breaks and spaces that pasted blocks usually carry.
func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}

// decodeBase64With tries the padded encoding first, then the raw one when the
// padding was dropped.
func decodeBase64With(s string, padded, raw *base64.Encoding) ([]byte, bool) {
	if b, err := padded.DecodeString(s); err == nil {
		return b, true
	}
	if len(s)%4 != 0 && !strings.HasSuffix(s, "=") {
		if b, err := raw.DecodeString(s); err == nil {
			return b, true
		}
	}
	return nil, false
}

func decodeBase64(text string) (string, *Metadata, error) {
	b, ok := decodeBase64With(stripWhitespace(text), base64.StdEncoding, base64.RawStdEncoding)
	if !ok {
		return "", nil, invalidInput(msgInvalidBase64)
	}
	if !utf8.Valid(b) {
		return "", nil, invalidInput(MsgNotUTF8)
	}
	return string(b), nil, nil
}

func encodeBase64(text string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(text)), nil
}

func decodeBase64URL(text string) (string, *Metadata, error) {
	b, ok := decodeBase64With(stripWhitespace(text), base64.URLEncoding, base64.RawURLEncoding)
	if !ok {
		return "", nil, invalidInput(msgInvalidBase64URL)
	}
	if !utf8.Valid(b) {
		return "", nil, invalidInput(MsgNotUTF8)
	}
	return string(b), nil, nil
}

func encodeBase64URL(text string) (string, error) {
	return base64.RawURLEncoding.EncodeToString([]byte(text)), nil
}
