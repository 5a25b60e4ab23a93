package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/lakehouse-shop/internal/domain/order"
	"go.uber.org/zap"
)

const defaultErrorMessage = "An error occurred while processing your order."

// Delivery selects how the ingestion service hands the event to Kafka
type Delivery int

const (
	// DeliveryConsole pipes the event through kafka-console-producer inside the broker container
	DeliveryConsole Delivery = iota
	// DeliveryDirect produces with a Kafka client after probing the bootstrap servers
	DeliveryDirect
)

func (d Delivery) String() string {
	if d == DeliveryDirect {
		return "direct"
	}
	return "console"
}

// Ack is the ingestion service's success response
type Ack struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	Event            json.RawMessage `json:"event,omitempty"`
	CommandOutput    string          `json:"command_output,omitempty"`
	BootstrapServers string          `json:"bootstrap_servers,omitempty"`
}

// Error is a rejected or failed submission. StatusCode is zero when the
// request never got a response.
type Error struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("ingest unreachable: %s", e.Message)
	}
	return fmt.Sprintf("ingest returned %d: %s", e.StatusCode, e.Message)
}

type envelope struct {
	EventData       *order.Record `json:"event_data"`
	UseDockerMethod bool          `json:"use_docker_method"`
}

type errorBody struct {
	Error     string `json:"error"`
	Details   string `json:"details"`
	Stderr    string `json:"stderr"`
	Traceback string `json:"traceback"`
}

// Client posts order records to the ingestion service
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit sends rec to POST {base}/send_event. Every failure is returned as *Error.
func (c *Client) Submit(ctx context.Context, rec *order.Record, delivery Delivery) (*Ack, error) {
	body, err := json.Marshal(envelope{EventData: rec, UseDockerMethod: delivery == DeliveryConsole})
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to encode order: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send_event", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("submission request failed", zap.String("order_id", rec.ID), zap.Error(err))
		return nil, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gwErr := decodeError(resp.StatusCode, raw)
		c.logger.Warn("submission rejected",
			zap.String("order_id", rec.ID),
			zap.Int("status", resp.StatusCode),
			zap.String("error", gwErr.Message))
		return nil, gwErr
	}

	var ack Ack
	if err := json.Unmarshal(raw, &ack); err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to decode acknowledgement: %v", err)}
	}

	c.logger.Info("order submitted",
		zap.String("order_id", rec.ID),
		zap.Stringer("delivery", delivery),
		zap.String("message", ack.Message))
	return &ack, nil
}

func decodeError(status int, raw []byte) *Error {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return &Error{StatusCode: status, Message: defaultErrorMessage}
	}

	detail := body.Details
	if detail == "" {
		detail = body.Stderr
	}
	if detail == "" {
		detail = body.Traceback
	}
	return &Error{StatusCode: status, Message: body.Error, Detail: detail}
}
