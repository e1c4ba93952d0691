package decoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const logPrefix = "decoder:service"

// format is the decode/encode pair registered for one decoder type.
// encode is nil for formats without a published inverse.
type format struct {
	decode func(text string) (string, *Metadata, error)
	encode func(text string) (string, error)
}

var formats = map[Type]format{
	TypeBase64:    {decode: decodeBase64, encode: encodeBase64},
	TypeBase64URL: {decode: decodeBase64URL, encode: encodeBase64URL},
	TypeURL:       {decode: decodeURL, encode: encodeURL},
	TypeJWT:       {decode: decodeJWT},
	TypeHex:       {decode: decodeHex, encode: encodeHex},
	TypeUnicode:   {decode: decodeUnicode, encode: encodeUnicode},
	TypeHTML:      {decode: decodeHTML, encode: encodeHTML},
}

// Options customizes the catalog of a Service. Nil or zero values use the built-in catalog.
type Options struct {
	// Version overrides CatalogVersion.
	Version string
	// Labels overrides display labels by decoder type.
	Labels map[Type]string
	// Disabled hides decoders from the catalog, detection and explicit decoding.
	// TypeAuto cannot be disabled.
	Disabled []Type
}

// Service is the stateless decoder service. It is safe for concurrent use.
type Service struct {
	version  string
	catalog  []Descriptor
	labels   map[Type]string
	disabled map[Type]bool
}

// NewService creates a Service. Pass nil for opts to use defaults.
func NewService(opts *Options) *Service {
	s := &Service{
		version:  CatalogVersion,
		labels:   make(map[Type]string, len(defaultCatalog)),
		disabled: make(map[Type]bool),
	}
	if opts != nil {
		if opts.Version != "" {
			s.version = opts.Version
		}
		for _, t := range opts.Disabled {
			if t == TypeAuto {
				slog.Warn(fmt.Sprintf("%s - ignoring attempt to disable %q", logPrefix, t))
				continue
			}
			s.disabled[t] = true
		}
	}
	for _, d := range defaultCatalog {
		if s.disabled[d.Value] {
			continue
		}
		if opts != nil {
			if label, ok := opts.Labels[d.Value]; ok && label != "" {
				d.Label = label
			}
		}
		s.labels[d.Value] = d.Label
		s.catalog = append(s.catalog, d)
	}
	return s
}

// Version returns the catalog version.
func (s *Service) Version() string {
	return s.version
}

// AvailableDecoders returns the catalog in display order.
func (s *Service) AvailableDecoders() []Descriptor {
	out := make([]Descriptor, len(s.catalog))
	copy(out, s.catalog)
	return out
}

// Label returns the display label for t, or "" when t is not in the catalog.
func (s *Service) Label(t Type) string {
	return s.labels[t]
}

// List returns the catalog together with its version.
func (s *Service) List() *ListOutput {
	return &ListOutput{Version: s.version, Decoders: s.AvailableDecoders()}
}

// Detect classifies text and returns the matching decoder type, or TypeAuto
// when no enabled decoder recognizes it. It never panics.
func (s *Service) Detect(text string) (detected Type) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - detect panic recovered: %v", logPrefix, r))
			detected = TypeAuto
		}
	}()
	return detect(strings.TrimSpace(text), func(t Type) bool { return !s.disabled[t] })
}

// Decode decodes text with the given decoder type, resolving TypeAuto through Detect.
//
// Failures caused by the input are reported in the Result with Success=false.
// The returned error is reserved for a cancelled context and for defects
// inside a format decoder (wrapping ErrInternal).
func (s *Service) Decode(ctx context.Context, text string, t Type) (res *Result, err error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s - %w", logPrefix, err)
	}
	if t == "" {
		t = TypeAuto
	}
	input := strings.TrimSpace(text)
	if input == "" {
		return failure(t, newDecodeError(CodeEmptyInput, MsgEmptyInput)), nil
	}

	resolved := t
	if t == TypeAuto {
		resolved = s.Detect(input)
		if resolved == TypeAuto {
			return failure(TypeAuto, newDecodeError(CodeUndetected, MsgUndetected)), nil
		}
		slog.Debug(fmt.Sprintf("%s - auto detected %s", logPrefix, resolved))
	}

	f, ok := formats[resolved]
	if !ok || s.disabled[resolved] {
		return failure(resolved, unsupportedType(resolved)), nil
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - %s decoder panic recovered: %v", logPrefix, resolved, r))
			res = nil
			err = fmt.Errorf("%s - %s: %v: %w", logPrefix, resolved, r, ErrInternal)
		}
	}()

	out, meta, derr := f.decode(input)
	if derr != nil {
		var decErr *DecodeError
		if errors.As(derr, &decErr) {
			return failure(resolved, decErr), nil
		}
		return failure(resolved, invalidInput("%s", derr.Error())), nil
	}
	return &Result{Success: true, Result: out, Type: resolved, Metadata: meta}, nil
}

// Encode applies the inverse of the given decoder type. TypeAuto and formats
// without an inverse (JWT) are rejected.
func (s *Service) Encode(text string, t Type) (string, error) {
	f, ok := formats[t]
	if !ok || s.disabled[t] || f.encode == nil {
		return "", unsupportedType(t)
	}
	return f.encode(text)
}

func failure(t Type, e *DecodeError) *Result {
	return &Result{Success: false, Error: e.Message, Type: t, code: e.Code}
}
