package decoder

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

const msgInvalidHex = "유효한 Hex 형식이 아닙니다."

// normalizeHex drops an optional 0x prefix and the separators people paste
// between bytes ("de ad be ef", "de:ad:be:ef").
func normalizeHex(text string) string {
	s := stripWhitespace(text)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strings.ReplaceAll(s, ":", "")
}

func decodeHex(text string) (string, *Metadata, error) {
	b, err := hex.DecodeString(normalizeHex(text))
	if err != nil {
		return "", nil, invalidInput(msgInvalidHex)
	}
	if !utf8.Valid(b) {
		return "", nil, invalidInput(MsgNotUTF8)
	}
	return string(b), nil, nil
}

func encodeHex(text string) (string, error) {
	return hex.EncodeToString([]byte(text)), nil
}
