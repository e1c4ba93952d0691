package decoder

import (
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const msgInvalidJWT = "유효한 JWT 형식이 아닙니다: %s"

// jwtParser only splits and decodes tokens; signatures are never verified.
var jwtParser = jwt.NewParser()

// decodeJWT returns the payload as indented JSON and exposes the header and
// payload objects as metadata.
func decodeJWT(text string) (string, *Metadata, error) {
	token := stripWhitespace(text)
	token = strings.TrimPrefix(token, "Bearer")

	parsed, parts, err := jwtParser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return "", nil, invalidInput(msgInvalidJWT, err.Error())
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", nil, invalidInput(msgInvalidJWT, "payload is not an object")
	}

	payload := map[string]interface{}(claims)
	pretty, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", nil, invalidInput(msgInvalidJWT, err.Error())
	}

	meta := &Metadata{
		Header:  parsed.Header,
		Payload: payload,
	}
	if len(parts) == 3 {
		meta.Signature = parts[2]
	}
	return string(pretty), meta, nil
}
