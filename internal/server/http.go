package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/text-decoder/pkg/decoder"
	"github.com/morezero/text-decoder/pkg/dispatcher"
	"github.com/morezero/text-decoder/pkg/events"
	"github.com/morezero/text-decoder/pkg/popup"
)

const httpLogPrefix = "server:http"

// maxBodyBytes bounds form and API request bodies.
const maxBodyBytes = 1 << 20

// decoderAPI is what the HTTP layer needs from the decoder service.
type decoderAPI interface {
	popup.DecoderService
	List() *decoder.ListOutput
	Label(t decoder.Type) string
}

type healthChecker interface {
	Health(ctx context.Context) *dispatcher.HealthOutput
}

// publishingDecoder emits a decode event for every Decode call.
type publishingDecoder struct {
	decoderAPI
	publisher events.EventPublisher
	source    string
}

func (d *publishingDecoder) Decode(ctx context.Context, text string, t decoder.Type) (*decoder.Result, error) {
	start := time.Now()
	res, err := d.decoderAPI.Decode(ctx, text, t)
	if d.publisher != nil {
		ev := events.NewDecodeCompletedEvent(d.source, t, text, res, time.Since(start))
		if perr := d.publisher.PublishDecoded(context.WithoutCancel(ctx), ev); perr != nil {
			slog.Warn(fmt.Sprintf("%s - failed to publish decode event: %v", httpLogPrefix, perr))
		}
	}
	return res, err
}

func (s *Server) decoderFor(source string) decoderAPI {
	return &publishingDecoder{decoderAPI: s.svc, publisher: s.publisher, source: source}
}

// routes builds the HTTP mux: popup page, JSON API and health endpoints.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePopup())
	mux.HandleFunc("/api/decoders", s.handleListDecoders())
	mux.HandleFunc("/api/decode", s.handleDecode())
	mux.HandleFunc("/api/detect", s.handleDetect())
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	return mux
}

// popupPageTemplate is the decoder popup (white bg, black/blue text).
const popupPageTemplate = `<!DOCTYPE html>
<html lang="ko">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Text Decoder</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 1rem; width: 420px; line-height: 1.5; }
    h1 { color: #0066cc; font-size: 1.2rem; margin: 0 0 0.75rem; }
    select, textarea { width: 100%; padding: 0.4rem; border: 1px solid #ccc; font-family: inherit; }
    textarea { height: 110px; resize: vertical; font-family: ui-monospace, monospace; }
    .buttons { display: flex; gap: 0.5rem; margin: 0.5rem 0; }
    button { flex: 1; padding: 0.5rem; border: 1px solid #0066cc; background: #0066cc; color: #fff; cursor: pointer; }
    button.secondary { background: #fff; color: #0066cc; }
    button:disabled { opacity: 0.5; cursor: default; }
    #result-container { white-space: pre-wrap; word-break: break-all; min-height: 80px; padding: 0.5rem; border: 1px solid #ccc; font-family: ui-monospace, monospace; }
    #result-container.empty { color: #888; }
    #result-container.loading { color: #0066cc; }
    #result-container.success { border-color: #0066cc; }
    #result-container.error { color: #cc0000; border-color: #cc0000; }
    #metadata-container { margin-top: 0.5rem; padding: 0.5rem; background: #f0f4f8; font-size: 0.85rem; }
    .metadata-title { color: #0066cc; font-weight: bold; }
    .meta { color: #333; font-size: 0.8rem; margin-top: 0.75rem; }
  </style>
</head>
<body>
  <h1>Text Decoder</h1>
  <form id="decoder-form" method="post" action="/">
    <select id="decoder-type" name="decoderType">
      {{range .View.Decoders}}<option value="{{.Value}}"{{if eq .Value $.View.Selected}} selected{{end}}>{{.Label}}</option>
      {{end}}
    </select>
    <textarea id="input-text" name="input"{{if .View.InputFocused}} autofocus{{end}}>{{.View.Input}}</textarea>
    <div class="buttons">
      <button id="decode-btn" type="submit" name="action" value="decode"{{if not .View.DecodeEnabled}} disabled{{end}}>디코드</button>
      <button id="clear-btn" class="secondary" type="submit" name="action" value="clear">지우기</button>
    </div>
  </form>
  <div id="result-container" class="{{.View.ResultState}}">{{.View.ResultText}}</div>
  <div id="metadata-container"{{if not .View.MetadataVisible}} style="display: none;"{{end}}>{{.View.MetadataHTML}}</div>
  <p class="meta">Catalog {{.Version}}</p>
  <script>
    (function () {
      var form = document.getElementById("decoder-form");
      var input = document.getElementById("input-text");
      var select = document.getElementById("decoder-type");
      var button = document.getElementById("decode-btn");
      function submitDecode() {
        if (button.disabled) { return; }
        button.disabled = true;
        form.requestSubmit(button);
      }
      input.addEventListener("keydown", function (e) {
        if (e.key === "Enter" && !e.shiftKey && !e.ctrlKey && !e.altKey && !e.metaKey) {
          e.preventDefault();
          submitDecode();
        }
      });
      input.addEventListener("paste", function () {
        setTimeout(function () {
          if (select.value === "auto") { submitDecode(); }
        }, {{.PasteDelayMs}});
      });
      document.addEventListener("keydown", function (e) {
        if (e.key === "Escape") { window.close(); }
      });
    })();
  </script>
</body>
</html>
`

type popupData struct {
	View         *popup.PageView
	Version      string
	PasteDelayMs int64
}

// handlePopup serves the popup page. A POST runs the submitted action through
// the popup controller and renders the resulting view.
func (s *Server) handlePopup() http.HandlerFunc {
	tmpl := template.Must(template.New("popup").Parse(popupPageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		view := popup.NewPageView()
		switch r.Method {
		case http.MethodGet:
		case http.MethodPost:
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			if err := r.ParseForm(); err != nil {
				http.Error(w, "invalid form", http.StatusBadRequest)
				return
			}
			if t := r.PostForm.Get("decoderType"); t != "" {
				view.Selected = decoder.Type(t)
			}
			view.Input = r.PostForm.Get("input")
		default:
			w.Header().Set("Allow", "GET, POST")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctrl := popup.NewController(r.Context(), s.decoderFor(events.SourcePopup), view)
		defer ctrl.Close()
		if r.Method == http.MethodPost {
			if r.PostForm.Get("action") == "clear" {
				ctrl.HandleClear()
			} else {
				ctrl.HandleDecode()
			}
		} else {
			view.FocusInput()
		}

		data := popupData{
			View:         view,
			Version:      s.svc.List().Version,
			PasteDelayMs: popup.PasteDelay.Milliseconds(),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - popup template execute: %v", httpLogPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

func (s *Server) handleListDecoders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, s.svc.List())
	}
}

// handleDecode decodes a JSON DecodeInput. Decode failures are reported in the
// result with a 200 status; only unexpected errors change the status code.
func (s *Server) handleDecode() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input decoder.DecodeInput
		if !readJSON(w, r, &input) {
			return
		}
		requestID := requestIDFrom(r)
		w.Header().Set("X-Request-ID", requestID)

		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()
		res, err := s.decoderFor(events.SourceHTTP).Decode(ctx, input.Input, input.DecoderType)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - decode request %s failed: %v", httpLogPrefix, requestID, err))
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				writeError(w, http.StatusGatewayTimeout, "decode timed out")
				return
			}
			writeError(w, http.StatusInternalServerError, decoder.ErrInternal.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleDetect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input decoder.DetectInput
		if !readJSON(w, r, &input) {
			return
		}
		w.Header().Set("X-Request-ID", requestIDFrom(r))

		t := s.svc.Detect(input.Text)
		out := &decoder.DetectOutput{Type: t}
		if t != decoder.TypeAuto {
			out.Label = s.svc.Label(t)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		healthCtx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		h := s.health.Health(healthCtx)
		status := http.StatusOK
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	}
}

// readJSON decodes a POST body into v, writing the error response itself.
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func requestIDFrom(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - response encode: %v", httpLogPrefix, err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
