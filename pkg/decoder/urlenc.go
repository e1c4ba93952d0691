package decoder

import (
	"net/url"
)

const msgInvalidURL = "유효한 URL 인코딩 형식이 아닙니다."

func decodeURL(text string) (string, *Metadata, error) {
	out, err := url.QueryUnescape(text)
	if err != nil {
		return "", nil, invalidInput(msgInvalidURL)
	}
	return out, nil, nil
}

func encodeURL(text string) (string, error) {
	return url.QueryEscape(text), nil
}
