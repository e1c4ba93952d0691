package popup

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/morezero/text-decoder/pkg/decoder"
)

const controllerTestPrefix = "popup:controller_test"

const sampleJWT = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
	"eyJzdWIiOiIxMjM0NTY3ODkwIiwibmFtZSI6IkpvaG4gRG9lIiwiaWF0IjoxNTE2MjM5MDIyfQ." +
	"SflKxwRJSMeKKF2QT4fwpMeJf36POk6yJV_adQssw5c"

// instrumentedService wraps the real decoder and records what the view looked
// like while a decode was in flight.
type instrumentedService struct {
	svc        *decoder.Service
	view       *PageView
	calls      atomic.Int32
	enabled    []bool
	states     []State
	err        error
	panicValue interface{}
	called     chan struct{}
}

func newInstrumentedService(view *PageView) *instrumentedService {
	return &instrumentedService{
		svc:    decoder.NewService(nil),
		view:   view,
		called: make(chan struct{}, 8),
	}
}

func (s *instrumentedService) AvailableDecoders() []decoder.Descriptor {
	return s.svc.AvailableDecoders()
}

func (s *instrumentedService) Detect(text string) decoder.Type {
	return s.svc.Detect(text)
}

func (s *instrumentedService) Decode(ctx context.Context, text string, t decoder.Type) (*decoder.Result, error) {
	s.calls.Add(1)
	s.enabled = append(s.enabled, s.view.DecodeEnabled)
	s.states = append(s.states, s.view.ResultState)
	s.called <- struct{}{}
	if s.panicValue != nil {
		panic(s.panicValue)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.svc.Decode(ctx, text, t)
}

func newTestController(t *testing.T) (*Controller, *PageView, *instrumentedService) {
	t.Helper()
	view := NewPageView()
	svc := newInstrumentedService(view)
	c := NewController(context.Background(), svc, view)
	t.Cleanup(c.Close)
	return c, view, svc
}

func TestNewController_Initializes(t *testing.T) {
	c, view, _ := newTestController(t)

	if diff := cmp.Diff(decoder.DefaultCatalog(), view.Decoders); diff != "" {
		t.Errorf("%s - decoder options mismatch (-want +got):\n%s", controllerTestPrefix, diff)
	}
	if view.ResultText != TextPlaceholder {
		t.Errorf("%s - ResultText = %q, want placeholder", controllerTestPrefix, view.ResultText)
	}
	if c.State() != StateEmpty {
		t.Errorf("%s - State = %q, want %q", controllerTestPrefix, c.State(), StateEmpty)
	}
	if view.Selected != decoder.TypeAuto {
		t.Errorf("%s - Selected = %q, want auto", controllerTestPrefix, view.Selected)
	}
}

func TestHandleDecode_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t "} {
		c, view, svc := newTestController(t)
		view.Input = input

		c.HandleDecode()

		if c.State() != StateError {
			t.Errorf("%s - State = %q, want error for %q", controllerTestPrefix, c.State(), input)
		}
		if view.ResultText != "입력이 비어있습니다." {
			t.Errorf("%s - ResultText = %q", controllerTestPrefix, view.ResultText)
		}
		if svc.calls.Load() != 0 {
			t.Errorf("%s - decoder called %d times for empty input", controllerTestPrefix, svc.calls.Load())
		}
		if !view.DecodeEnabled {
			t.Errorf("%s - decode control disabled after empty input", controllerTestPrefix)
		}
	}
}

func TestHandleDecode_Success(t *testing.T) {
	c, view, svc := newTestController(t)
	view.Input = "SGVsbG8="

	if !view.DecodeEnabled {
		t.Fatalf("%s - decode control disabled before decode", controllerTestPrefix)
	}
	c.HandleDecode()

	if c.State() != StateSuccess {
		t.Fatalf("%s - State = %q, want success (%q)", controllerTestPrefix, c.State(), view.ResultText)
	}
	if view.ResultText != "Hello" {
		t.Errorf("%s - ResultText = %q, want Hello", controllerTestPrefix, view.ResultText)
	}
	if view.ResultState != StateSuccess {
		t.Errorf("%s - ResultState = %q, want success", controllerTestPrefix, view.ResultState)
	}
	if view.MetadataVisible {
		t.Errorf("%s - metadata visible for base64 result", controllerTestPrefix)
	}
	if !view.DecodeEnabled {
		t.Errorf("%s - decode control disabled after decode", controllerTestPrefix)
	}
	if diff := cmp.Diff([]bool{false}, svc.enabled); diff != "" {
		t.Errorf("%s - enabled during call mismatch (-want +got):\n%s", controllerTestPrefix, diff)
	}
	if diff := cmp.Diff([]State{StateLoading}, svc.states); diff != "" {
		t.Errorf("%s - state during call mismatch (-want +got):\n%s", controllerTestPrefix, diff)
	}
}

func TestHandleDecode_JWTShowsMetadata(t *testing.T) {
	c, view, _ := newTestController(t)
	view.Input = sampleJWT

	c.HandleDecode()

	if c.State() != StateSuccess {
		t.Fatalf("%s - State = %q, want success (%q)", controllerTestPrefix, c.State(), view.ResultText)
	}
	if !view.MetadataVisible {
		t.Fatalf("%s - metadata hidden for JWT", controllerTestPrefix)
	}
	html := string(view.MetadataHTML)
	for _, want := range []string{"JWT Header:", "JWT Payload:", "HS256", "John Doe"} {
		if !strings.Contains(html, want) {
			t.Errorf("%s - metadata HTML missing %q", controllerTestPrefix, want)
		}
	}

	view.Input = "SGVsbG8="
	c.HandleDecode()
	if view.MetadataVisible || view.MetadataHTML != "" {
		t.Errorf("%s - metadata not cleared by a later decode", controllerTestPrefix)
	}
}

func TestHandleDecode_DecodeFailure(t *testing.T) {
	c, view, _ := newTestController(t)
	view.Input = "not-base64!!"
	view.Selected = decoder.TypeBase64

	c.HandleDecode()

	if c.State() != StateError {
		t.Fatalf("%s - State = %q, want error", controllerTestPrefix, c.State())
	}
	if view.ResultText == "" || view.ResultText == TextDecodeFailed {
		t.Errorf("%s - expected descriptive error, got %q", controllerTestPrefix, view.ResultText)
	}
	if view.Input != "not-base64!!" {
		t.Errorf("%s - input not preserved: %q", controllerTestPrefix, view.Input)
	}
	if !view.DecodeEnabled {
		t.Errorf("%s - decode control disabled after failure", controllerTestPrefix)
	}
}

func TestHandleDecode_UnexpectedFailure(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		panicV interface{}
		want   string
	}{
		{name: "error", err: errors.New("boom"), want: "오류가 발생했습니다: boom"},
		{name: "panic", panicV: "kaboom", want: "오류가 발생했습니다: kaboom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, view, svc := newTestController(t)
			svc.err = tt.err
			svc.panicValue = tt.panicV
			view.Input = "SGVsbG8="

			c.HandleDecode()

			if c.State() != StateError {
				t.Errorf("%s - State = %q, want error", controllerTestPrefix, c.State())
			}
			if view.ResultText != tt.want {
				t.Errorf("%s - ResultText = %q, want %q", controllerTestPrefix, view.ResultText, tt.want)
			}
			if !view.DecodeEnabled {
				t.Errorf("%s - decode control not re-enabled", controllerTestPrefix)
			}
		})
	}
}

func TestHandleKeyDown(t *testing.T) {
	tests := []struct {
		name         string
		ev           KeyEvent
		wantSuppress bool
		wantCalls    int32
		wantClosed   bool
	}{
		{name: "enter submits", ev: KeyEvent{Key: "Enter", Target: ElementInputText}, wantSuppress: true, wantCalls: 1},
		{name: "shift enter inserts line", ev: KeyEvent{Key: "Enter", Target: ElementInputText, Shift: true}},
		{name: "ctrl enter ignored", ev: KeyEvent{Key: "Enter", Target: ElementInputText, Ctrl: true}},
		{name: "enter on button ignored", ev: KeyEvent{Key: "Enter", Target: ElementDecodeButton}},
		{name: "escape in input closes", ev: KeyEvent{Key: "Escape", Target: ElementInputText}, wantClosed: true},
		{name: "escape on selector closes", ev: KeyEvent{Key: "Escape", Target: ElementDecoderType}, wantClosed: true},
		{name: "other key", ev: KeyEvent{Key: "a", Target: ElementInputText}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, view, svc := newTestController(t)
			view.Input = "SGVsbG8="

			got := c.HandleKeyDown(tt.ev)

			if got != tt.wantSuppress {
				t.Errorf("%s - suppress = %v, want %v", controllerTestPrefix, got, tt.wantSuppress)
			}
			if svc.calls.Load() != tt.wantCalls {
				t.Errorf("%s - decode calls = %d, want %d", controllerTestPrefix, svc.calls.Load(), tt.wantCalls)
			}
			if view.Closed != tt.wantClosed {
				t.Errorf("%s - Closed = %v, want %v", controllerTestPrefix, view.Closed, tt.wantClosed)
			}
		})
	}
}

func TestClose_IgnoresLaterEvents(t *testing.T) {
	c, view, svc := newTestController(t)
	view.Input = "SGVsbG8="

	c.Close()
	c.HandleDecode()
	c.HandleClear()
	c.Close()

	if svc.calls.Load() != 0 {
		t.Errorf("%s - decode ran after close", controllerTestPrefix)
	}
	if view.Input != "SGVsbG8=" {
		t.Errorf("%s - clear ran after close", controllerTestPrefix)
	}
}

func TestHandleClear(t *testing.T) {
	for _, selected := range []decoder.Type{decoder.TypeAuto, decoder.TypeBase64, decoder.TypeJWT} {
		c, view, _ := newTestController(t)
		view.Input = sampleJWT
		view.Selected = decoder.TypeJWT
		c.HandleDecode()
		view.Selected = selected
		view.InputFocused = false

		c.HandleClear()

		if view.Selected != decoder.TypeAuto {
			t.Errorf("%s - Selected = %q after clear, want auto", controllerTestPrefix, view.Selected)
		}
		if view.Input != "" {
			t.Errorf("%s - Input = %q after clear", controllerTestPrefix, view.Input)
		}
		if view.ResultText != TextPlaceholder || view.ResultState != StateEmpty {
			t.Errorf("%s - result = %q/%q after clear", controllerTestPrefix, view.ResultText, view.ResultState)
		}
		if view.MetadataVisible {
			t.Errorf("%s - metadata visible after clear", controllerTestPrefix)
		}
		if !view.InputFocused {
			t.Errorf("%s - input not focused after clear", controllerTestPrefix)
		}
		if c.State() != StateEmpty {
			t.Errorf("%s - State = %q after clear", controllerTestPrefix, c.State())
		}
	}
}

func TestHandleInput_DoesNotTouchView(t *testing.T) {
	c, view, svc := newTestController(t)
	view.Input = "SGVsbG8="
	before := *view

	c.HandleInput()

	if diff := cmp.Diff(before, *view); diff != "" {
		t.Errorf("%s - view changed on input (-before +after):\n%s", controllerTestPrefix, diff)
	}
	if svc.calls.Load() != 0 {
		t.Errorf("%s - input change triggered a decode", controllerTestPrefix)
	}
}

func TestHandlePaste_AutoMode(t *testing.T) {
	c, view, svc := newTestController(t)
	view.Input = "SGVsbG8="

	c.HandlePaste()

	select {
	case <-svc.called:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s - paste did not trigger a decode", controllerTestPrefix)
	}
	if c.State() != StateSuccess {
		t.Errorf("%s - State = %q, want success", controllerTestPrefix, c.State())
	}
	if view.ResultText != "Hello" {
		t.Errorf("%s - ResultText = %q, want Hello", controllerTestPrefix, view.ResultText)
	}
}

func TestHandlePaste_ExplicitModeDoesNothing(t *testing.T) {
	c, view, svc := newTestController(t)
	view.Input = "SGVsbG8="
	view.Selected = decoder.TypeBase64

	c.HandlePaste()
	time.Sleep(3 * PasteDelay)

	if svc.calls.Load() != 0 {
		t.Errorf("%s - paste in explicit mode triggered a decode", controllerTestPrefix)
	}
	if c.State() != StateEmpty {
		t.Errorf("%s - State = %q, want empty", controllerTestPrefix, c.State())
	}
}

func TestHandlePaste_DroppedOnClose(t *testing.T) {
	c, view, svc := newTestController(t)
	view.Input = "SGVsbG8="

	c.HandlePaste()
	c.Close()
	time.Sleep(3 * PasteDelay)

	if svc.calls.Load() != 0 {
		t.Errorf("%s - paste decode ran after close", controllerTestPrefix)
	}
}

func TestRenderMetadata_Empty(t *testing.T) {
	for _, meta := range []*decoder.Metadata{nil, {}} {
		html, err := RenderMetadata(meta)
		if err != nil {
			t.Fatalf("%s - unexpected error: %v", controllerTestPrefix, err)
		}
		if html != "" {
			t.Errorf("%s - expected empty HTML, got %q", controllerTestPrefix, html)
		}
	}
}

func TestRenderMetadata_Escapes(t *testing.T) {
	html, err := RenderMetadata(&decoder.Metadata{
		Header:  map[string]interface{}{"alg": "none"},
		Payload: map[string]interface{}{"name": "<script>alert(1)</script>"},
	})
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", controllerTestPrefix, err)
	}
	if strings.Contains(string(html), "<script>") {
		t.Errorf("%s - payload not escaped: %s", controllerTestPrefix, html)
	}
}
