package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectDecoder       = "cap.more0.decoder.v1"
	SubjectRelay         = "ext.decoder.relay"
	SubjectSidePanelOpen = "ext.decoder.sidepanel.open"
	SubjectDecodeEvent   = "decoder.decoded"
)

// BuildDecodeEventSubject builds the granular decode event subject for a
// resolved decoder type. An empty type maps to "unknown".
func BuildDecodeEventSubject(decoderType string) string {
	t := sanitizeToken(decoderType)
	if t == "" {
		t = "unknown"
	}
	return fmt.Sprintf("%s.%s", SubjectDecodeEvent, t)
}

// BuildCapabilitySubject builds a COMMS subject for a capability.
func BuildCapabilitySubject(app, name string, major int) string {
	return fmt.Sprintf("cap.%s.%s.v%d", app, sanitizeToken(name), major)
}

// sanitizeToken keeps a value usable as a single subject token.
func sanitizeToken(s string) string {
	return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(strings.TrimSpace(s))
}
