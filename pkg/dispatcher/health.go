package dispatcher

import (
	"context"
	"sort"
	"time"
)

// HealthOutput is the result of the health method and the HTTP /health endpoint.
type HealthOutput struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Decoders  int             `json:"decoders"`
	Checks    map[string]bool `json:"checks"`
	Errors    []string        `json:"errors,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// Health runs the configured checks. Any failing check makes the service unhealthy.
func (d *Dispatcher) Health(ctx context.Context) *HealthOutput {
	out := &HealthOutput{
		Status:    "healthy",
		Version:   d.svc.Version(),
		Decoders:  len(d.svc.List().Decoders),
		Checks:    map[string]bool{},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	names := make([]string, 0, len(d.checks))
	for name := range d.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := d.checks[name](ctx); err != nil {
			out.Checks[name] = false
			out.Errors = append(out.Errors, name+": "+err.Error())
			out.Status = "unhealthy"
			continue
		}
		out.Checks[name] = true
	}
	return out
}
