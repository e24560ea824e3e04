package alerting

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lorrc/support-gateway/internal/core/domain"
	"github.com/lorrc/support-gateway/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSystemAlert(t *testing.T) {
	var received alertPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	notifier := NewNotifier(Config{URL: server.URL}, slog.New(slog.DiscardHandler))

	err := notifier.SendSystemAlert(context.Background(), ports.SystemAlertParams{
		Title: "Auto-assignment failures",
		Body:  "2 of 5 candidate tickets could not be assigned.",
		Recipients: []domain.Agent{
			{ID: 1, Email: "root@company.example", Firstname: "Root"},
		},
		Failures: []domain.AssignmentOutcome{
			{TicketID: 7, TicketNumber: "20260007", Reason: "no eligible agent in group 9 (Group 9)"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "Auto-assignment failures", received.Title)
	require.Len(t, received.Recipients, 1)
	assert.Equal(t, "root@company.example", received.Recipients[0].Email)
	assert.Equal(t, "Root", received.Recipients[0].Name)
	require.Len(t, received.Failures, 1)
	assert.Equal(t, int64(7), received.Failures[0].TicketID)
}

func TestSendSystemAlert_WebhookError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := NewNotifier(Config{URL: server.URL}, slog.New(slog.DiscardHandler))

	err := notifier.SendSystemAlert(context.Background(), ports.SystemAlertParams{Title: "x"})
	assert.Error(t, err)
}

func TestSendSystemAlert_NoWebhookConfigured(t *testing.T) {
	notifier := NewNotifier(Config{}, slog.New(slog.DiscardHandler))

	err := notifier.SendSystemAlert(context.Background(), ports.SystemAlertParams{
		Title: "Auto-assignment failures",
	})

	// Falls back to the log, never errors.
	assert.NoError(t, err)
}
