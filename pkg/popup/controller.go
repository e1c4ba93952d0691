package popup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/morezero/text-decoder/pkg/decoder"
)

const logPrefix = "popup:controller"

// PasteDelay is how long a paste waits before triggering an auto decode, so the
// pasted text has landed in the input.
const PasteDelay = 100 * time.Millisecond

// Controller owns the popup view for the lifetime of the popup. Handlers are
// serialized, so at most one decode is in flight.
type Controller struct {
	svc  DecoderService
	view View

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  State
	timers map[*time.Timer]struct{}
	closed bool
}

// NewController builds the controller and populates the decoder selector.
// Pending work is dropped once ctx is done or Close is called.
func NewController(ctx context.Context, svc DecoderService, view View) *Controller {
	ctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		svc:    svc,
		view:   view,
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[*time.Timer]struct{}),
	}
	view.SetDecoderOptions(svc.AvailableDecoders())
	c.showResult(TextPlaceholder, StateEmpty, nil)
	return c
}

// State returns the current result panel state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HandleDecode decodes the current input with the selected decoder.
func (c *Controller) HandleDecode() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.decode()
}

// HandleInput runs detection on input changes in auto mode. The detected type
// is not reflected in the selector so a user's explicit choice is never overridden.
func (c *Controller) HandleInput() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.view.DecoderType() != decoder.TypeAuto {
		return
	}
	input := c.view.InputText()
	if strings.TrimSpace(input) == "" {
		return
	}
	if detected := c.svc.Detect(input); detected != decoder.TypeAuto {
		slog.Debug(fmt.Sprintf("%s - input looks like %s", logPrefix, detected))
	}
}

// HandlePaste schedules one decode after PasteDelay. The decode only runs if
// the selector is still on auto when the delay expires.
func (c *Controller) HandlePaste() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(PasteDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.timers, t)
		if c.closed || c.ctx.Err() != nil {
			return
		}
		if c.view.DecoderType() == decoder.TypeAuto {
			c.decode()
		}
	})
	c.timers[t] = struct{}{}
}

// HandleKeyDown reacts to key presses. Enter without a modifier in the input
// submits a decode; Escape closes the popup wherever focus is. It reports
// whether the default action of the key must be suppressed.
func (c *Controller) HandleKeyDown(ev KeyEvent) bool {
	switch ev.Key {
	case "Enter":
		if ev.Target != ElementInputText || ev.hasModifier() {
			return false
		}
		c.HandleDecode()
		return true
	case "Escape":
		c.Close()
		return false
	}
	return false
}

// HandleClear resets the popup to its initial state.
func (c *Controller) HandleClear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.view.SetInputText("")
	c.showResult(TextPlaceholder, StateEmpty, nil)
	c.view.SetDecoderType(decoder.TypeAuto)
	c.view.HideMetadata()
	c.view.FocusInput()
}

// Close tears the popup down. Scheduled paste decodes are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	for t := range c.timers {
		t.Stop()
		delete(c.timers, t)
	}
	c.view.Close()
}

// decode runs one decode; the caller holds c.mu.
func (c *Controller) decode() {
	input := strings.TrimSpace(c.view.InputText())
	if input == "" {
		c.showResult(decoder.MsgEmptyInput, StateError, nil)
		return
	}
	decoderType := c.view.DecoderType()

	c.showResult(TextLoading, StateLoading, nil)
	c.view.SetDecodeEnabled(false)
	defer c.view.SetDecodeEnabled(true)

	res, err := c.callDecode(input, decoderType)
	switch {
	case err != nil:
		slog.Warn(fmt.Sprintf("%s - decode failed unexpectedly: %v", logPrefix, err))
		c.showResult(TextErrorPrefix+err.Error(), StateError, nil)
	case res.Success:
		c.showResult(res.Result, StateSuccess, res.Metadata)
		if decoderType == decoder.TypeAuto && res.Type != decoder.TypeAuto {
			slog.Debug(fmt.Sprintf("%s - auto mode resolved %s", logPrefix, res.Type))
		}
	default:
		msg := res.Error
		if msg == "" {
			msg = TextDecodeFailed
		}
		c.showResult(msg, StateError, nil)
	}
}

// callDecode turns a nil result or a panic in the service into an error.
func (c *Controller) callDecode(input string, t decoder.Type) (res *decoder.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%v", r)
		}
	}()
	res, err = c.svc.Decode(c.ctx, input, t)
	if err == nil && res == nil {
		err = fmt.Errorf("decoder returned no result")
	}
	return res, err
}

func (c *Controller) showResult(text string, state State, meta *decoder.Metadata) {
	c.state = state
	if text == "" {
		text = TextNoResult
	}
	c.view.ShowResult(text, state)

	if state != StateSuccess || meta == nil {
		c.view.HideMetadata()
		return
	}
	html, err := RenderMetadata(meta)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - render metadata: %v", logPrefix, err))
		c.view.HideMetadata()
		return
	}
	if html == "" {
		c.view.HideMetadata()
		return
	}
	c.view.ShowMetadata(html)
}
