package activitymap_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-homie"
	"github.com/goliatone/go-homie/activitymap"
)

func TestNormalizeFailure(t *testing.T) {
	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	out := activitymap.Normalize(homie.ActivityEvent{
		EventType: homie.ActivityEventSignInFailure,
		Metadata: map[string]any{
			"email": "a@b.com",
			"kind":  string(homie.KindWrongPassword),
			"error": "crypto/bcrypt: hashedPassword is not the hash of the given password",
		},
		OccurredAt: ts,
	})

	assert.Equal(t, "anonymous", out.ActorID)
	assert.Equal(t, "auth", out.Channel)
	assert.Equal(t, "signin", out.Verb)
	assert.Equal(t, "failure", out.Outcome)
	assert.Equal(t, "session", out.ObjectType)
	assert.Empty(t, out.ObjectID)
	assert.True(t, out.OccurredAt.Equal(ts))
	assert.Equal(t, map[string]any{
		"email":                          "a@b.com",
		activitymap.MetadataKeyErrorKind: string(homie.KindWrongPassword),
	}, out.Metadata)
}

func TestNormalizeGateTransition(t *testing.T) {
	out := activitymap.Normalize(homie.ActivityEvent{
		EventType: homie.ActivityEventGateTransition,
		UserID:    "u1",
		Metadata:  map[string]any{"from": "initializing", "to": "authenticated"},
	}, activitymap.WithDefaultObjectType("view"))

	assert.Equal(t, "u1", out.ActorID)
	assert.Equal(t, "u1", out.ObjectID)
	assert.Equal(t, "gate", out.Channel)
	assert.Equal(t, "transition", out.Verb)
	assert.Empty(t, out.Outcome)
	assert.Equal(t, "view", out.ObjectType)
	assert.Equal(t, "initializing", out.Metadata[activitymap.MetadataKeyFromStatus])
	assert.Equal(t, "authenticated", out.Metadata[activitymap.MetadataKeyToStatus])
	assert.False(t, out.OccurredAt.IsZero())
}

func TestNormalizeActorFallback(t *testing.T) {
	out := activitymap.Normalize(homie.ActivityEvent{EventType: homie.ActivityEventSignOutSuccess},
		activitymap.WithActorFallback("system"))
	assert.Equal(t, "system", out.ActorID)
	assert.Nil(t, out.Metadata)
}

func TestSinkWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	sink := activitymap.NewSink(&buf)

	require.NoError(t, sink.Record(context.Background(), homie.ActivityEvent{EventType: homie.ActivityEventSignUpSuccess, UserID: "u1"}))
	require.NoError(t, sink.Record(context.Background(), homie.ActivityEvent{EventType: homie.ActivityEventSignOutSuccess, UserID: "u1"}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first activitymap.Normalized
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "signup", first.Verb)
	assert.Equal(t, "success", first.Outcome)
	assert.Equal(t, "u1", first.ActorID)
}
