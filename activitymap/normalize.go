// Package activitymap turns homie activity events into flat records for
// audit logs.
package activitymap

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-homie"
)

const (
	// MetadataKeyErrorKind stores the classified failure of an operation.
	MetadataKeyErrorKind = "error_kind"
	// MetadataKeyFromStatus stores the gate status before a transition.
	MetadataKeyFromStatus = "from_status"
	// MetadataKeyToStatus stores the gate status after a transition.
	MetadataKeyToStatus = "to_status"
)

const (
	defaultObjectType = "session"
	defaultActorID    = "anonymous"
)

// Normalized is a transport agnostic activity record.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Outcome    string         `json:"outcome,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	objectType    string
	actorFallback string
}

// WithDefaultObjectType sets the object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when the event has no user.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// Normalize converts event into a Normalized record. The channel and
// outcome come from the dotted event type, e.g. "auth.signin.failure".
func Normalize(event homie.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	userID := strings.TrimSpace(event.UserID)
	actorID := userID
	if actorID == "" {
		actorID = options.actorFallback
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	channel, verb, outcome := splitEventType(event.EventType)

	return Normalized{
		ActorID:    actorID,
		Verb:       verb,
		ObjectType: options.objectType,
		ObjectID:   userID,
		Channel:    channel,
		Outcome:    outcome,
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

func splitEventType(t homie.ActivityEventType) (channel, verb, outcome string) {
	parts := strings.Split(string(t), ".")
	switch len(parts) {
	case 0:
		return "", "", ""
	case 1:
		return "", parts[0], ""
	case 2:
		return parts[0], parts[1], ""
	default:
		return parts[0], strings.Join(parts[1:len(parts)-1], "."), parts[len(parts)-1]
	}
}

func normalizeMetadata(event homie.ActivityEvent) map[string]any {
	if len(event.Metadata) == 0 {
		return nil
	}

	out := make(map[string]any, len(event.Metadata))
	for key, value := range event.Metadata {
		switch key {
		case "kind":
			if value != "" {
				out[MetadataKeyErrorKind] = value
			}
		case "from":
			out[MetadataKeyFromStatus] = value
		case "to":
			out[MetadataKeyToStatus] = value
		case "error":
			// dropped
		default:
			out[key] = value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Sink writes one JSON record per event to w.
type Sink struct {
	mu   sync.Mutex
	enc  *json.Encoder
	opts []Option
}

var _ homie.ActivitySink = (*Sink)(nil)

// NewSink returns a sink writing JSON lines to w.
func NewSink(w io.Writer, opts ...Option) *Sink {
	return &Sink{enc: json.NewEncoder(w), opts: opts}
}

// Record implements homie.ActivitySink.
func (s *Sink) Record(_ context.Context, event homie.ActivityEvent) error {
	record := Normalize(event, s.opts...)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(record)
}
