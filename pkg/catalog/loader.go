package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	masterminds "github.com/Masterminds/semver/v3"

	"github.com/morezero/text-decoder/pkg/decoder"
)

const logPrefix = "catalog:loader"

// EnvFile names the environment variable consulted after explicit paths.
const EnvFile = "DECODER_CATALOG_FILE"

// Load reads catalog overrides. It tries paths in order: first any paths passed
// in, then DECODER_CATALOG_FILE, then defaults. Unreadable or invalid files are
// skipped; when none is usable an empty File is returned.
func Load(paths ...string) *File {
	all := make([]string, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv(EnvFile); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/catalog.json", "catalog.json")

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		f, err := Parse(data)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse catalog file %s: %v", logPrefix, p, err))
			continue
		}
		slog.Info(fmt.Sprintf("%s - Loaded catalog overrides from %s", logPrefix, p))
		return f
	}

	slog.Info(fmt.Sprintf("%s - Using built-in decoder catalog", logPrefix))
	return &File{}
}

// Parse decodes and validates a catalog overrides document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%s - invalid JSON: %w", logPrefix, err)
	}
	if f.Version != "" {
		if _, err := masterminds.StrictNewVersion(f.Version); err != nil {
			return nil, fmt.Errorf("%s - invalid version %q: %w", logPrefix, f.Version, err)
		}
	}
	return &f, nil
}

// Options converts the overrides into decoder service options. Identifiers
// that are not part of the built-in catalog are logged and ignored.
func (f *File) Options() *decoder.Options {
	known := make(map[decoder.Type]bool)
	for _, d := range decoder.DefaultCatalog() {
		known[d.Value] = true
	}

	opts := &decoder.Options{Version: f.Version}
	if len(f.Labels) > 0 {
		opts.Labels = make(map[decoder.Type]string, len(f.Labels))
	}
	for id, label := range f.Labels {
		t := decoder.Type(id)
		if !known[t] {
			slog.Warn(fmt.Sprintf("%s - ignoring label for unknown decoder %q", logPrefix, id))
			continue
		}
		opts.Labels[t] = label
	}
	for _, id := range f.Disabled {
		t := decoder.Type(id)
		if !known[t] {
			slog.Warn(fmt.Sprintf("%s - ignoring unknown disabled decoder %q", logPrefix, id))
			continue
		}
		opts.Disabled = append(opts.Disabled, t)
	}
	return opts
}
