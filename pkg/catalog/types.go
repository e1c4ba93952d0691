// Package catalog loads optional overrides for the decoder catalog.
package catalog

// File is the JSON document read from DECODER_CATALOG_FILE.
type File struct {
	// Version overrides the catalog version reported to clients.
	Version string `json:"version,omitempty"`
	// Labels overrides display labels by decoder identifier.
	Labels map[string]string `json:"labels,omitempty"`
	// Disabled hides decoders by identifier. "auto" cannot be disabled.
	Disabled []string `json:"disabled,omitempty"`
}
