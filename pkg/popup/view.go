// Package popup implements the decoder popup: a controller that wires user
// interactions to decode requests and renders results into a View.
package popup

import (
	"context"
	"html/template"

	"github.com/morezero/text-decoder/pkg/decoder"
)

// Element identifiers of the popup page.
const (
	ElementDecoderType       = "decoder-type"
	ElementInputText         = "input-text"
	ElementDecodeButton      = "decode-btn"
	ElementClearButton       = "clear-btn"
	ElementResultContainer   = "result-container"
	ElementMetadataContainer = "metadata-container"
)

// State is the state of the result panel. Its value doubles as the CSS class
// applied to the result container.
type State string

const (
	StateEmpty   State = "empty"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Texts shown in the result panel.
const (
	TextPlaceholder  = "결과가 여기에 표시됩니다..."
	TextLoading      = "디코딩 중..."
	TextNoResult     = "결과가 없습니다."
	TextDecodeFailed = "디코딩 실패"
	TextErrorPrefix  = "오류가 발생했습니다: "
)

// DecoderService is what the popup needs from the decoder.
type DecoderService interface {
	AvailableDecoders() []decoder.Descriptor
	Detect(text string) decoder.Type
	Decode(ctx context.Context, text string, t decoder.Type) (*decoder.Result, error)
}

// View abstracts the popup elements the controller reads and writes.
type View interface {
	SetDecoderOptions(options []decoder.Descriptor)
	DecoderType() decoder.Type
	SetDecoderType(t decoder.Type)
	InputText() string
	SetInputText(text string)
	FocusInput()
	SetDecodeEnabled(enabled bool)
	ShowResult(text string, state State)
	ShowMetadata(html template.HTML)
	HideMetadata()
	Close()
}

// KeyEvent is a key press delivered to the popup.
type KeyEvent struct {
	Key    string
	Target string
	Shift  bool
	Ctrl   bool
	Alt    bool
	Meta   bool
}

func (e KeyEvent) hasModifier() bool {
	return e.Shift || e.Ctrl || e.Alt || e.Meta
}
