package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type recordingSender struct {
	mu     sync.Mutex
	titles []string
	err    error
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordingSender) Name() string { return "recording" }

func TestNotifierFiltersEvents(t *testing.T) {
	s := &recordingSender{}
	n := NewNotifier([]Sender{s}, []string{"time_spread"}, time.Hour, testLogger())

	require.NoError(t, n.Notify(context.Background(), "time_spread", "a", ""))
	require.NoError(t, n.Notify(context.Background(), "other", "b", ""))
	require.NoError(t, n.NotifyAll(context.Background(), "c", ""))
	assert.Equal(t, []string{"a", "c"}, s.titles)
}

func TestNotifyOnceSuppressesRepeats(t *testing.T) {
	s := &recordingSender{}
	n := NewNotifier([]Sender{s}, nil, time.Hour, testLogger())
	ctx := context.Background()

	require.NoError(t, n.NotifyOnce(ctx, "time_spread", "k1", "first", ""))
	require.NoError(t, n.NotifyOnce(ctx, "time_spread", "k1", "again", ""))
	require.NoError(t, n.NotifyOnce(ctx, "time_spread", "k2", "second", ""))
	assert.Equal(t, []string{"first", "second"}, s.titles)
}

func TestNotifyOnceRetriesFailedDelivery(t *testing.T) {
	s := &recordingSender{err: errors.New("down")}
	n := NewNotifier([]Sender{s}, nil, time.Hour, testLogger())
	ctx := context.Background()

	assert.Error(t, n.NotifyOnce(ctx, "time_spread", "k", "try", ""))
	s.err = nil
	require.NoError(t, n.NotifyOnce(ctx, "time_spread", "k", "retry", ""))
	assert.Equal(t, []string{"try", "retry"}, s.titles)
}

func TestNotifierWithoutSenders(t *testing.T) {
	n := NewNotifier(nil, nil, time.Hour, testLogger())
	assert.False(t, n.Enabled())
	assert.NoError(t, n.NotifyOnce(context.Background(), "e", "k", "t", "m"))
}

func TestDedupExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDedup(time.Minute)
	d.now = func() time.Time { return now }

	assert.False(t, d.IsDuplicate("k"))
	assert.True(t, d.IsDuplicate("k"))

	now = now.Add(time.Minute)
	assert.False(t, d.IsDuplicate("k"), "expired keys are new again")

	now = now.Add(2 * time.Minute)
	d.Cleanup()
	assert.Empty(t, d.seen)
}

func TestDiscordSender(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewDiscordSender(srv.URL).Send(context.Background(), "Time spread", "body"))
	assert.Equal(t, "polycache", got.Username)
	assert.Equal(t, []discordEmbed{{Title: "Time spread", Description: "body"}}, got.Embeds)
}

func TestTelegramSender(t *testing.T) {
	var path string
	var got telegramMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	s := NewTelegramSender("tok", "42")
	s.apiBase = srv.URL
	require.NoError(t, s.Send(context.Background(), "title", "body"))
	assert.Equal(t, "/bottok/sendMessage", path)
	assert.Equal(t, telegramMessage{ChatID: "42", Text: "title\nbody", DisableWebPagePreview: true}, got)
}

func TestSenderReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord: unexpected status 429")
}
