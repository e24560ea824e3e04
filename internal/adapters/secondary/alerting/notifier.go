package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lorrc/support-gateway/internal/core/domain"
	"github.com/lorrc/support-gateway/internal/core/ports"
)

// Notifier delivers system alerts to an external notification webhook.
// When no webhook is configured the alert is written to the log instead,
// so failure summaries are never silently lost.
type Notifier struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.AlertNotifier = (*Notifier)(nil)

// Config holds the notifier settings
type Config struct {
	URL     string
	Timeout time.Duration
}

// NewNotifier creates a new alert notifier
func NewNotifier(cfg Config, logger *slog.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Notifier{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "alerting"),
	}
}

// alertPayload is the webhook wire format.
type alertPayload struct {
	Title      string          `json:"title"`
	Body       string          `json:"body"`
	Recipients []recipient     `json:"recipients"`
	Failures   []failureSample `json:"failures,omitempty"`
}

type recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type failureSample struct {
	TicketID     int64  `json:"ticketId"`
	TicketNumber string `json:"ticketNumber,omitempty"`
	Reason       string `json:"reason"`
}

// SendSystemAlert delivers the alert to the configured webhook.
func (n *Notifier) SendSystemAlert(ctx context.Context, params ports.SystemAlertParams) error {
	if n.url == "" {
		n.logAlert(params)
		return nil
	}

	payload := alertPayload{
		Title:      params.Title,
		Body:       params.Body,
		Recipients: toRecipients(params.Recipients),
		Failures:   toFailureSamples(params.Failures),
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("building alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending alert: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}

	n.logger.Info("system alert delivered",
		"title", params.Title,
		"recipients", len(params.Recipients),
	)
	return nil
}

// logAlert writes the alert to the log when no webhook is configured.
func (n *Notifier) logAlert(params ports.SystemAlertParams) {
	attrs := []any{
		"title", params.Title,
		"body", params.Body,
		"recipients", len(params.Recipients),
	}
	for _, failure := range params.Failures {
		attrs = append(attrs, fmt.Sprintf("failure_%d", failure.TicketID), failure.Reason)
	}
	n.logger.Warn("system alert (no webhook configured)", attrs...)
}

func toRecipients(agents []domain.Agent) []recipient {
	recipients := make([]recipient, 0, len(agents))
	for i := range agents {
		recipients = append(recipients, recipient{
			Email: agents[i].Email,
			Name:  agents[i].DisplayName(),
		})
	}
	return recipients
}

func toFailureSamples(failures []domain.AssignmentOutcome) []failureSample {
	samples := make([]failureSample, 0, len(failures))
	for _, failure := range failures {
		samples = append(samples, failureSample{
			TicketID:     failure.TicketID,
			TicketNumber: failure.TicketNumber,
			Reason:       failure.Reason,
		})
	}
	return samples
}
