package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/text-decoder/pkg/commsutil"
)

const commsLogPrefix = "relay:comms_sidepanel"

// openRequest is sent to the browser shell bridge.
type openRequest struct {
	WindowID int `json:"windowId"`
}

// CommsSidePanel opens the side panel through a browser shell bridge listening
// on a COMMS subject.
type CommsSidePanel struct {
	nc      *comms.Conn
	subject string
	timeout time.Duration
}

// NewCommsSidePanel creates a side panel that sends open requests on subject.
// A zero timeout means the caller's context alone bounds the request.
func NewCommsSidePanel(nc *comms.Conn, subject string, timeout time.Duration) *CommsSidePanel {
	if subject == "" {
		subject = commsutil.SubjectSidePanelOpen
	}
	return &CommsSidePanel{nc: nc, subject: subject, timeout: timeout}
}

// Open asks the bridge to open the side panel of windowID.
func (p *CommsSidePanel) Open(ctx context.Context, windowID int) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var resp Response
	if err := commsutil.Request(ctx, p.nc, p.subject, openRequest{WindowID: windowID}, &resp); err != nil {
		if errors.Is(err, comms.ErrNoResponders) {
			return fmt.Errorf("%s - no side panel bridge on %s", commsLogPrefix, p.subject)
		}
		return fmt.Errorf("%s - open window %d: %w", commsLogPrefix, windowID, err)
	}
	if !resp.Success {
		if resp.Error == "" {
			return errors.New("side panel open failed")
		}
		return errors.New(resp.Error)
	}
	return nil
}

// CommsCapabilities reports the COMMS side panel as available while the
// connection is usable.
type CommsCapabilities struct {
	Panel *CommsSidePanel
}

// SidePanel returns the COMMS panel unless it is missing or its connection is
// closed.
func (c CommsCapabilities) SidePanel() (SidePanel, bool) {
	if c.Panel == nil || c.Panel.nc == nil || c.Panel.nc.IsClosed() {
		return nil, false
	}
	return c.Panel, true
}
