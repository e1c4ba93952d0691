package popup

import (
	"html/template"

	"github.com/morezero/text-decoder/pkg/decoder"
)

// PageView is an in-memory View. The HTTP popup page renders it after the
// controller has handled a form submission.
type PageView struct {
	Decoders        []decoder.Descriptor
	Selected        decoder.Type
	Input           string
	ResultText      string
	ResultState     State
	MetadataHTML    template.HTML
	MetadataVisible bool
	DecodeEnabled   bool
	InputFocused    bool
	Closed          bool
}

// NewPageView returns a view with the decode control enabled and auto selected.
func NewPageView() *PageView {
	return &PageView{Selected: decoder.TypeAuto, DecodeEnabled: true}
}

// SetDecoderOptions replaces the selector options. Like a select element, the
// selection falls back to the first option when the current one disappears.
func (v *PageView) SetDecoderOptions(options []decoder.Descriptor) {
	v.Decoders = options
	for _, d := range options {
		if d.Value == v.Selected {
			return
		}
	}
	if len(options) > 0 {
		v.Selected = options[0].Value
	}
}

// DecoderType returns the selected decoder.
func (v *PageView) DecoderType() decoder.Type { return v.Selected }

// SetDecoderType selects t without checking it against the options.
func (v *PageView) SetDecoderType(t decoder.Type) { v.Selected = t }

// InputText returns the text area content.
func (v *PageView) InputText() string { return v.Input }

// SetInputText replaces the text area content.
func (v *PageView) SetInputText(text string) { v.Input = text }

// FocusInput marks the text area as focused for the next render.
func (v *PageView) FocusInput() { v.InputFocused = true }

// SetDecodeEnabled toggles the decode control.
func (v *PageView) SetDecodeEnabled(enabled bool) { v.DecodeEnabled = enabled }

// Close records that the popup asked to be dismissed.
func (v *PageView) Close() { v.Closed = true }

// ShowResult sets the result text and its display state.
func (v *PageView) ShowResult(text string, state State) {
	v.ResultText = text
	v.ResultState = state
}

// ShowMetadata renders html in the metadata panel and makes it visible.
func (v *PageView) ShowMetadata(html template.HTML) {
	v.MetadataHTML = html
	v.MetadataVisible = true
}

// HideMetadata clears and hides the metadata panel.
func (v *PageView) HideMetadata() {
	v.MetadataHTML = ""
	v.MetadataVisible = false
}
