package tui

import (
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/guardian/internal/alert"
	"github.com/RevCBH/guardian/internal/escalation"
	"github.com/RevCBH/guardian/internal/events"
)

func TestEventToMsg(t *testing.T) {
	tests := []struct {
		name string
		evt  events.Event
		want tea.Msg
	}{
		{
			name: "started",
			evt:  events.NewEvent(events.SessionStarted, "s1"),
			want: SessionStartedMsg{SessionID: "s1"},
		},
		{
			name: "captured",
			evt:  events.NewEvent(events.ContextCaptured, "s1").WithPayload(events.CapturedPayload{Location: true}),
			want: CapturedMsg{Location: true},
		},
		{
			name: "dispatching",
			evt:  events.NewEvent(events.TierDispatching, "s1").WithTier(2),
			want: TierDispatchingMsg{Tier: 2},
		},
		{
			name: "notified",
			evt:  events.NewEvent(events.TierNotified, "s1").WithTier(1).WithPayload(&alert.Outcome{Tier: 1, ContactsReached: 3}),
			want: TierNotifiedMsg{Outcome: alert.Outcome{Tier: 1, ContactsReached: 3}},
		},
		{
			name: "armed",
			evt:  events.NewEvent(events.TierArmed, "s1").WithTier(1).WithPayload(events.ArmedPayload{NextTier: 2, Delay: time.Minute}),
			want: TierArmedMsg{Tier: 1, NextTier: 2, Delay: time.Minute},
		},
		{
			name: "progress",
			evt:  events.NewEvent(events.TierProgress, "s1").WithPayload(events.ProgressPayload{Percent: 50, Remaining: time.Minute}),
			want: ProgressMsg{Percent: 50, Remaining: time.Minute},
		},
		{
			name: "cancelled",
			evt:  events.NewEvent(events.SessionCancelled, "s1").WithPayload(events.EndedPayload{ContactsReached: 2}),
			want: SessionEndedMsg{State: escalation.StateCancelled, ContactsReached: 2},
		},
		{
			name: "failed",
			evt: events.NewEvent(events.SessionFailed, "s1").
				WithError(errors.New("boom")).
				WithPayload(events.EndedPayload{Reason: "failed"}),
			want: SessionEndedMsg{State: escalation.StateExhausted, Reason: escalation.ReasonFailed, Error: "boom"},
		},
		{
			name: "notified without outcome",
			evt:  events.NewEvent(events.TierNotified, "s1"),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eventToMsg(tt.evt))
		})
	}
}

func TestBridge_Handler(t *testing.T) {
	var got []tea.Msg
	b := &Bridge{send: func(m tea.Msg) { got = append(got, m) }}

	h := b.Handler()
	h(events.NewEvent(events.SessionStarted, "s1"))
	h(events.NewEvent(events.EventType("unknown"), "s1"))
	b.SendQuit()

	assert.Equal(t, []tea.Msg{SessionStartedMsg{SessionID: "s1"}, QuitMsg{}}, got)
}

func TestLogSink_SplitsLines(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	s := newLogSink(func(m tea.Msg) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, m.(LogMsg).Line)
	})

	_, err := s.Write([]byte("first\nsec"))
	require.NoError(t, err)
	_, err = s.Write([]byte("ond\n\npartial"))
	require.NoError(t, err)
	require.NoError(t, s.Sync())
	require.NoError(t, s.Close())

	// Writes after close are dropped.
	_, err = s.Write([]byte("late\n"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second", "partial"}, got)
}
