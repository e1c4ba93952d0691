// Package decoder implements the text decoding catalog: available decoders,
// content-based detection and the decode/encode operations.
package decoder

// Type identifies a decoder in the catalog.
type Type string

// Decoder identifiers, in catalog display order.
const (
	TypeAuto      Type = "auto"
	TypeBase64    Type = "base64"
	TypeBase64URL Type = "base64url"
	TypeURL       Type = "url"
	TypeJWT       Type = "jwt"
	TypeHex       Type = "hex"
	TypeUnicode   Type = "unicode"
	TypeHTML      Type = "html"
)

// CatalogVersion is the version of the built-in decoder catalog.
// Bumped in minor when a decoder is added, in major when one is removed or renamed.
const CatalogVersion = "1.2.0"

// Descriptor is one entry of the decoder catalog.
type Descriptor struct {
	Value Type   `json:"value"`
	Label string `json:"label"`
}

// Result is the outcome of a single decode call.
type Result struct {
	Success  bool      `json:"success"`
	Result   string    `json:"result"`
	Error    string    `json:"error,omitempty"`
	Type     Type      `json:"type"`
	Metadata *Metadata `json:"metadata,omitempty"`

	code string
}

// ErrorCode returns the DecodeError code behind a failed result, or "" on success.
func (r *Result) ErrorCode() string {
	if r == nil {
		return ""
	}
	return r.code
}

// Metadata holds structured data for formats with substructure (JWT).
type Metadata struct {
	Header    map[string]interface{} `json:"header"`
	Payload   map[string]interface{} `json:"payload"`
	Signature string                 `json:"signature,omitempty"`
}

// DecodeInput holds parameters for a decode or encode request.
type DecodeInput struct {
	Input       string `json:"input"`
	DecoderType Type   `json:"decoderType,omitempty"`
}

// DetectInput holds parameters for a detect request.
type DetectInput struct {
	Text string `json:"text"`
}

// DetectOutput holds the result of a detect request.
type DetectOutput struct {
	Type  Type   `json:"type"`
	Label string `json:"label,omitempty"`
}

// EncodeOutput holds the result of an encode request.
type EncodeOutput struct {
	Result string `json:"result"`
	Type   Type   `json:"type"`
}

// ListOutput holds the catalog returned to remote callers.
type ListOutput struct {
	Version  string       `json:"version"`
	Decoders []Descriptor `json:"decoders"`
}

var defaultCatalog = []Descriptor{
	{Value: TypeAuto, Label: "자동 감지"},
	{Value: TypeBase64, Label: "Base64"},
	{Value: TypeBase64URL, Label: "Base64 URL"},
	{Value: TypeURL, Label: "URL 인코딩"},
	{Value: TypeJWT, Label: "JWT"},
	{Value: TypeHex, Label: "Hex"},
	{Value: TypeUnicode, Label: "Unicode 이스케이프"},
	{Value: TypeHTML, Label: "HTML 엔티티"},
}

// DefaultCatalog returns a copy of the built-in catalog.
func DefaultCatalog() []Descriptor {
	out := make([]Descriptor, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}
