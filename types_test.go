package homie_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-homie"
)

type logCall struct {
	level   string
	message string
}

type loggerSpy struct {
	calls []logCall
}

func (l *loggerSpy) Debug(format string, args ...any) { l.calls = append(l.calls, logCall{"debug", format}) }
func (l *loggerSpy) Info(format string, args ...any)  { l.calls = append(l.calls, logCall{"info", format}) }
func (l *loggerSpy) Warn(format string, args ...any)  { l.calls = append(l.calls, logCall{"warn", format}) }
func (l *loggerSpy) Error(format string, args ...any) { l.calls = append(l.calls, logCall{"error", format}) }

func TestSessionHelpers(t *testing.T) {
	var absent *homie.Session
	assert.False(t, absent.Present())
	assert.Empty(t, absent.Name())
	assert.Equal(t, "absent", absent.String())
	assert.True(t, absent.Equal(nil))
	assert.False(t, absent.Equal(alice()))

	s := alice()
	assert.True(t, s.Present())
	assert.Equal(t, "alice", s.Name())
	assert.Equal(t, `present(id="u1")`, s.String())
	assert.True(t, s.Equal(alice()))
	assert.False(t, s.Equal(bob()))

	s.DisplayName = ""
	assert.Equal(t, "alice@example.com", s.Name())

	refreshed := alice()
	refreshed.Token = "t9"
	assert.False(t, alice().Equal(refreshed))
}

func TestRecordActivityStampsEvent(t *testing.T) {
	sink := &recordingSink{}
	homie.RecordActivity(context.Background(), sink, homie.NopLogger(), homie.ActivityEvent{
		EventType: homie.ActivityEventSignInSuccess,
		UserID:    "u1",
	})

	require.Len(t, sink.events, 1)
	assert.False(t, sink.events[0].OccurredAt.IsZero())
	assert.NotNil(t, sink.events[0].Metadata)
}

func TestRecordActivityLogsSinkFailure(t *testing.T) {
	logger := &loggerSpy{}
	sink := homie.ActivitySinkFunc(func(context.Context, homie.ActivityEvent) error {
		return errors.New("sink down")
	})

	homie.RecordActivity(context.Background(), sink, logger, homie.ActivityEvent{EventType: homie.ActivityEventGateTransition})

	require.Len(t, logger.calls, 1)
	assert.Equal(t, "warn", logger.calls[0].level)
}

func TestRecordActivityNilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		homie.RecordActivity(context.Background(), nil, nil, homie.ActivityEvent{})
	})
}
