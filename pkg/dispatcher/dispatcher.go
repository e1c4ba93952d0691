package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/text-decoder/pkg/commsutil"
	"github.com/morezero/text-decoder/pkg/decoder"
	"github.com/morezero/text-decoder/pkg/events"
	"github.com/morezero/text-decoder/pkg/relay"
	"github.com/morezero/text-decoder/pkg/semver"
)

const logPrefix = "dispatcher:dispatch"

// DecoderService is the decoder surface exposed over COMMS.
type DecoderService interface {
	Version() string
	List() *decoder.ListOutput
	Label(t decoder.Type) string
	Detect(text string) decoder.Type
	Decode(ctx context.Context, text string, t decoder.Type) (*decoder.Result, error)
	Encode(text string, t decoder.Type) (string, error)
}

// NewDispatcherParams holds dependencies for NewDispatcher.
type NewDispatcherParams struct {
	Service DecoderService
	// Relay serves openSidePanel; nil means the capability is unavailable.
	Relay *relay.Relay
	// Publisher receives a DecodeCompletedEvent after every decode; nil disables events.
	Publisher events.EventPublisher
	// Checks are run by health, keyed by check name.
	Checks map[string]func(ctx context.Context) error
}

// Dispatcher routes COMMS requests to decoder methods.
type Dispatcher struct {
	svc       DecoderService
	relay     *relay.Relay
	publisher events.EventPublisher
	checks    map[string]func(ctx context.Context) error
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}
	return &Dispatcher{
		svc:       params.Service,
		relay:     params.Relay,
		publisher: pub,
		checks:    params.Checks,
	}
}

// Dispatch routes a request to the appropriate decoder method and returns a response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *DecoderRequest) *DecoderResponse {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s", logPrefix, req.Method, req.ID))

	if resp := d.checkVersion(req); resp != nil {
		return resp
	}

	switch req.Method {
	case "listDecoders":
		return &DecoderResponse{ID: req.ID, Ok: true, Result: d.svc.List()}
	case "detect":
		return d.handleDetect(req)
	case "decode":
		return d.handleDecode(ctx, req)
	case "encode":
		return d.handleEncode(req)
	case "openSidePanel":
		return d.handleOpenSidePanel(ctx, req)
	case "health":
		return &DecoderResponse{ID: req.ID, Ok: true, Result: d.Health(ctx)}
	default:
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("Unknown method: %s", req.Method), false)
	}
}

// ServeMsg decodes a raw request, dispatches it within the request's time
// budget and encodes the response.
func (d *Dispatcher) ServeMsg(ctx context.Context, data []byte, maxTimeout time.Duration) []byte {
	var req DecoderRequest
	var resp *DecoderResponse
	if err := commsutil.DecodePayload(data, &req); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
		resp = errorResponse("", CodeInvalidRequest, "Failed to decode request", false)
	} else {
		reqCtx, cancel := context.WithTimeout(ctx, req.Timeout(maxTimeout))
		resp = d.Dispatch(reqCtx, &req)
		cancel()
	}

	out, err := commsutil.EncodePayload(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response: %v", logPrefix, err))
		out, _ = commsutil.EncodePayload(errorResponse(resp.ID, CodeInternalError, "Failed to encode response", true))
	}
	return out
}

func (d *Dispatcher) checkVersion(req *DecoderRequest) *DecoderResponse {
	if req.Ver == "" {
		return nil
	}
	version := d.svc.Version()
	ok, err := semver.Satisfies(version, req.Ver)
	if err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, fmt.Sprintf("Invalid version constraint: %s", req.Ver), false)
	}
	if !ok {
		resp := errorResponse(req.ID, CodeVersionMismatch,
			fmt.Sprintf("Decoder catalog %s does not satisfy %s", version, req.Ver), false)
		resp.Error.Details = map[string]string{"version": version, "constraint": req.Ver}
		return resp
	}
	return nil
}

func (d *Dispatcher) handleDetect(req *DecoderRequest) *DecoderResponse {
	var input decoder.DetectInput
	if err := unmarshalParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, "Failed to parse detect params", false)
	}
	t := d.svc.Detect(input.Text)
	out := &decoder.DetectOutput{Type: t}
	if t != decoder.TypeAuto {
		out.Label = d.svc.Label(t)
	}
	return &DecoderResponse{ID: req.ID, Ok: true, Result: out}
}

func (d *Dispatcher) handleDecode(ctx context.Context, req *DecoderRequest) *DecoderResponse {
	var input decoder.DecodeInput
	if err := unmarshalParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, "Failed to parse decode params", false)
	}

	start := time.Now()
	result, err := d.svc.Decode(ctx, input.Input, input.DecoderType)
	d.publish(ctx, req, input, result, time.Since(start))

	if err != nil {
		return decodeErrorToResponse(req.ID, err)
	}
	return &DecoderResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleEncode(req *DecoderRequest) *DecoderResponse {
	var input decoder.DecodeInput
	if err := unmarshalParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, "Failed to parse encode params", false)
	}

	out, err := d.svc.Encode(input.Input, input.DecoderType)
	if err != nil {
		return decodeErrorToResponse(req.ID, err)
	}
	return &DecoderResponse{ID: req.ID, Ok: true, Result: &decoder.EncodeOutput{Result: out, Type: input.DecoderType}}
}

func (d *Dispatcher) handleOpenSidePanel(ctx context.Context, req *DecoderRequest) *DecoderResponse {
	if d.relay == nil {
		return errorResponse(req.ID, CodeCapabilityUnavailable, relay.ErrMsgUnavailable, false)
	}
	var input SidePanelInput
	if err := unmarshalParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, "Failed to parse openSidePanel params", false)
	}

	resp, _ := d.relay.HandleSync(ctx, relay.Message{Action: relay.ActionOpenSidePanel, WindowID: input.WindowID})
	if !resp.Success && resp.Error == relay.ErrMsgUnavailable {
		return errorResponse(req.ID, CodeCapabilityUnavailable, resp.Error, false)
	}
	return &DecoderResponse{ID: req.ID, Ok: true, Result: resp}
}

// publish emits the decode event. Publish failures never fail the request.
func (d *Dispatcher) publish(ctx context.Context, req *DecoderRequest, input decoder.DecodeInput, result *decoder.Result, elapsed time.Duration) {
	source := events.SourceComms
	if req.Ctx != nil && req.Ctx.Source != "" {
		source = req.Ctx.Source
	}
	ev := events.NewDecodeCompletedEvent(source, input.DecoderType, input.Input, result, elapsed)
	if err := d.publisher.PublishDecoded(context.WithoutCancel(ctx), ev); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish decode event: %v", logPrefix, err))
	}
}

// --- helpers ---

// unmarshalParams accepts absent params as an empty object.
func unmarshalParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func errorResponse(id, code, message string, retryable bool) *DecoderResponse {
	return &DecoderResponse{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

func decodeErrorToResponse(id string, err error) *DecoderResponse {
	var decErr *decoder.DecodeError
	switch {
	case errors.As(err, &decErr):
		resp := errorResponse(id, CodeInvalidArgument, decErr.Message, false)
		resp.Error.Details = map[string]string{"reason": decErr.Code}
		return resp
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errorResponse(id, CodeDeadlineExceeded, err.Error(), true)
	default:
		return errorResponse(id, CodeInternalError, err.Error(), true)
	}
}
