// Package relay implements the background message relay that opens the side
// panel on request.
package relay

import (
	"context"
	"fmt"
	"log/slog"
)

const logPrefix = "relay:relay"

// ActionOpenSidePanel is the only action the relay understands.
const ActionOpenSidePanel = "openSidePanel"

// Failure messages returned to callers.
const (
	ErrMsgUnavailable     = "Side Panel API not available"
	ErrMsgWindowIDMissing = "Window ID not provided"
)

// InstalledNotice is logged once when the tool is installed.
const InstalledNotice = "디코더 도구가 설치되었습니다."

// Message is an inbound relay message.
type Message struct {
	Action   string `json:"action"`
	WindowID *int   `json:"windowId,omitempty"`
}

// Response answers a relay message.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SidePanel opens the side panel of a window.
type SidePanel interface {
	Open(ctx context.Context, windowID int) error
}

// Capabilities reports which host capabilities exist.
type Capabilities interface {
	SidePanel() (SidePanel, bool)
}

// Respond delivers the response of one message. It is called at most once.
type Respond func(Response)

// StaticCapabilities is a Capabilities backed by a fixed side panel. A nil
// Panel means the capability is unavailable.
type StaticCapabilities struct {
	Panel SidePanel
}

// SidePanel returns the configured panel and whether one is set.
func (c StaticCapabilities) SidePanel() (SidePanel, bool) {
	return c.Panel, c.Panel != nil
}

// Relay routes inbound messages to host capabilities. The capability is
// resolved once at construction.
type Relay struct {
	panel     SidePanel
	available bool
}

// New creates a relay over the given host capabilities.
func New(caps Capabilities) *Relay {
	r := &Relay{}
	if caps != nil {
		r.panel, r.available = caps.SidePanel()
	}
	if !r.available {
		slog.Info(fmt.Sprintf("%s - side panel capability not available", logPrefix))
	}
	return r
}

// OnInstalled logs the install notice.
func (r *Relay) OnInstalled() {
	slog.Info(fmt.Sprintf("%s - %s", logPrefix, InstalledNotice))
}

// Handle processes one message. It returns true when the response will be
// delivered asynchronously, in which case respond is called from another
// goroutine. Unknown actions get no response.
func (r *Relay) Handle(ctx context.Context, msg Message, respond Respond) bool {
	if msg.Action != ActionOpenSidePanel {
		slog.Debug(fmt.Sprintf("%s - ignoring action %q", logPrefix, msg.Action))
		return false
	}
	if !r.available {
		respond(Response{Success: false, Error: ErrMsgUnavailable})
		return false
	}
	if msg.WindowID == nil {
		respond(Response{Success: false, Error: ErrMsgWindowIDMissing})
		return false
	}

	windowID := *msg.WindowID
	go func() {
		if err := r.panel.Open(ctx, windowID); err != nil {
			slog.Warn(fmt.Sprintf("%s - open side panel for window %d: %v", logPrefix, windowID, err))
			respond(Response{Success: false, Error: err.Error()})
			return
		}
		respond(Response{Success: true})
	}()
	return true
}

// HandleSync processes one message and waits for its response. ok is false
// when the message gets no response.
func (r *Relay) HandleSync(ctx context.Context, msg Message) (resp Response, ok bool) {
	ch := make(chan Response, 1)
	async := r.Handle(ctx, msg, func(res Response) { ch <- res })
	if !async {
		select {
		case resp = <-ch:
			return resp, true
		default:
			return Response{}, false
		}
	}
	select {
	case resp = <-ch:
		return resp, true
	case <-ctx.Done():
		return Response{Success: false, Error: ctx.Err().Error()}, true
	}
}
