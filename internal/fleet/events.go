package fleet

import (
	"context"
	"time"

	"github.com/nerrad567/blink-sync-core/internal/cloud"
	"github.com/nerrad567/blink-sync-core/internal/device"
)

// EventKind identifies what happened.
type EventKind string

const (
	// EventRefreshed fires after every successful merge of a snapshot.
	EventRefreshed EventKind = "refreshed"
	// EventIntent fires after an intent's command finished, before the reconciling refresh.
	EventIntent EventKind = "intent"
)

// Event is delivered to listeners.
type Event struct {
	Kind      EventKind          `json:"kind"`
	Intent    string             `json:"intent,omitempty"`
	NetworkID int64              `json:"network_id,omitempty"`
	CameraID  int64              `json:"camera_id,omitempty"`
	Command   *cloud.Command     `json:"command,omitempty"`
	Outcome   string             `json:"outcome,omitempty"`
	Stats     *device.MergeStats `json:"stats,omitempty"`
	Time      time.Time          `json:"time"`
}

// Listener receives events synchronously on the goroutine that produced
// them. Listeners must not block.
type Listener func(Event)

type sourceKey struct{}

// WithSource tags ctx with the origin of an intent ("api", "mqtt") for the journal.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return "internal"
}
