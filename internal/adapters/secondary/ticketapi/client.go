package ticketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lorrc/support-gateway/internal/core/domain"
	apperrors "github.com/lorrc/support-gateway/internal/core/errors"
	"github.com/lorrc/support-gateway/internal/core/ports"
)

// Client talks to the external ticketing system's REST API using a
// service token. It maps only the fields the engines decide on; the
// backend remains the system of record for everything else.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.TicketBackend = (*Client)(nil)

// Config holds the backend connection settings
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// NewClient creates a new backend API client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "ticketapi"),
	}
}

// --- Wire types ---

// ticketPayload is the backend's ticket representation. owner_id may be
// null, or hold the backend's placeholder account for unassigned
// tickets; both cases are preserved as-is for the engines to interpret.
type ticketPayload struct {
	ID         int64  `json:"id"`
	Number     string `json:"number"`
	Title      string `json:"title"`
	CustomerID *int64 `json:"customer_id"`
	OwnerID    *int64 `json:"owner_id"`
	GroupID    *int64 `json:"group_id"`
	StateID    int64  `json:"state_id"`
}

func (p *ticketPayload) toDomain() domain.Ticket {
	return domain.Ticket{
		ID:         p.ID,
		Number:     p.Number,
		Title:      p.Title,
		CustomerID: p.CustomerID,
		OwnerID:    p.OwnerID,
		GroupID:    p.GroupID,
		StateID:    p.StateID,
	}
}

// agentPayload is the backend's user representation, trimmed to the
// roster fields the assignment engine scores.
type agentPayload struct {
	ID                 int64           `json:"id"`
	Email              string          `json:"email"`
	Firstname          string          `json:"firstname"`
	Lastname           string          `json:"lastname"`
	Login              string          `json:"login"`
	RoleIDs            []int64         `json:"role_ids"`
	GroupIDs           map[string]bool `json:"group_ids"`
	OutOfOffice        bool            `json:"out_of_office"`
	OutOfOfficeStartAt *string         `json:"out_of_office_start_at"`
	OutOfOfficeEndAt   *string         `json:"out_of_office_end_at"`
	Active             bool            `json:"active"`
}

func (p *agentPayload) toDomain() domain.Agent {
	groups := make(map[int64]bool, len(p.GroupIDs))
	for raw, member := range p.GroupIDs {
		if !member {
			continue
		}
		var id int64
		if _, err := fmt.Sscanf(raw, "%d", &id); err == nil {
			groups[id] = true
		}
	}

	return domain.Agent{
		ID:                 p.ID,
		Email:              p.Email,
		Firstname:          p.Firstname,
		Lastname:           p.Lastname,
		Login:              p.Login,
		RoleIDs:            p.RoleIDs,
		GroupIDs:           groups,
		OutOfOffice:        p.OutOfOffice,
		OutOfOfficeStartAt: parseBackendTime(p.OutOfOfficeStartAt),
		OutOfOfficeEndAt:   parseBackendTime(p.OutOfOfficeEndAt),
		Active:             p.Active,
	}
}

// parseBackendTime accepts both date-only and full timestamp formats.
func parseBackendTime(raw *string) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, *raw); err == nil {
			return &parsed
		}
	}
	return nil
}

// --- TicketBackend implementation ---

// ListTickets returns all tickets visible to the service token.
func (c *Client) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	var payloads []ticketPayload
	if err := c.do(ctx, http.MethodGet, "/api/v1/tickets", nil, &payloads); err != nil {
		return nil, err
	}

	tickets := make([]domain.Ticket, 0, len(payloads))
	for i := range payloads {
		tickets = append(tickets, payloads[i].toDomain())
	}
	return tickets, nil
}

// GetTicket returns a single ticket by id.
func (c *Client) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	var payload ticketPayload
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/tickets/%d", id), nil, &payload); err != nil {
		return nil, err
	}

	ticket := payload.toDomain()
	return &ticket, nil
}

// UpdateTicket applies a partial update. Nil fields are omitted from
// the request entirely so the backend leaves them untouched.
func (c *Client) UpdateTicket(ctx context.Context, id int64, params ports.UpdateTicketParams) (*domain.Ticket, error) {
	body := make(map[string]any)
	if params.Title != nil {
		body["title"] = *params.Title
	}
	if params.GroupID != nil {
		body["group_id"] = *params.GroupID
	}
	if params.StateID != nil {
		body["state_id"] = *params.StateID
	}

	var payload ticketPayload
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/tickets/%d", id), body, &payload); err != nil {
		return nil, err
	}

	ticket := payload.toDomain()
	return &ticket, nil
}

// DeleteTicket removes a ticket permanently.
func (c *Client) DeleteTicket(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/tickets/%d", id), nil, nil)
}

// AssignTicket sets the ticket's owner.
func (c *Client) AssignTicket(ctx context.Context, ticketID, agentID int64) error {
	body := map[string]any{"owner_id": agentID}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/tickets/%d", ticketID), body, nil)
}

// ListAgents returns the active agent roster. Inactive accounts are
// dropped here; role and vacation filtering belongs to the engine.
func (c *Client) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	var payloads []agentPayload
	if err := c.do(ctx, http.MethodGet, "/api/v1/users", nil, &payloads); err != nil {
		return nil, err
	}

	agents := make([]domain.Agent, 0, len(payloads))
	for i := range payloads {
		if !payloads[i].Active {
			continue
		}
		agents = append(agents, payloads[i].toDomain())
	}
	return agents, nil
}

// Ping verifies the backend is reachable and the token is accepted.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/v1/ticket_states", nil, nil)
}

// --- HTTP plumbing ---

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrBackendUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", apperrors.ErrTicketNotFound, method, path)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: backend rejected service token (status %d)",
			apperrors.ErrBackendUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("backend request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return fmt.Errorf("%w: status %d: %s",
			apperrors.ErrBackendUnavailable, resp.StatusCode, string(snippet))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", apperrors.ErrBackendUnavailable, err)
	}
	return nil
}
