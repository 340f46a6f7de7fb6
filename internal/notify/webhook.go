package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-invoice/internal/common"
	"github.com/noah-isme/backend-invoice/internal/db"
	"github.com/noah-isme/backend-invoice/internal/obs"
	"github.com/noah-isme/backend-invoice/internal/queue"
	"github.com/noah-isme/backend-invoice/internal/resilience"
	"github.com/noah-isme/backend-invoice/internal/tenant"
)

// TaskWebhookDeliver is the queue kind of a single webhook delivery.
const TaskWebhookDeliver = "webhook:deliver"

// Store is the persistence used by the dispatcher.
type Store interface {
	ListActiveEndpointsForTopic(ctx context.Context, arg db.ListActiveEndpointsForTopicParams) ([]db.WebhookEndpoint, error)
	GetWebhookEndpoint(ctx context.Context, id uuid.UUID) (db.WebhookEndpoint, error)
	GetDomainEvent(ctx context.Context, id uuid.UUID) (db.DomainEvent, error)
	InsertWebhookDelivery(ctx context.Context, arg db.InsertWebhookDeliveryParams) error
}

// Enqueuer publishes delivery tasks.
type Enqueuer interface {
	Enqueue(ctx context.Context, t queue.Task) error
}

// Dispatcher coordinates webhook scheduling and delivery.
type Dispatcher struct {
	Store       Store
	Queue       Enqueuer
	Client      *http.Client
	Breakers    *resilience.Breakers
	MaxAttempts int
	Enabled     bool
	Replay      ReplayProtector
	ReplayTTL   time.Duration
}

type deliveryPayload struct {
	EventID    uuid.UUID `json:"eventId"`
	EndpointID uuid.UUID `json:"endpointId"`
}

// Schedule enqueues one delivery task per active endpoint subscribed to the event topic.
func (d *Dispatcher) Schedule(ctx context.Context, event db.DomainEvent) error {
	if d == nil || !d.Enabled || d.Store == nil || d.Queue == nil {
		return nil
	}
	if strings.TrimSpace(event.Topic) == "" {
		return nil
	}
	endpoints, err := d.Store.ListActiveEndpointsForTopic(ctx, db.ListActiveEndpointsForTopicParams{
		CompanyID: event.CompanyID,
		Topic:     event.Topic,
	})
	if err != nil {
		return err
	}
	maxAttempts := d.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 6
	}
	var joined error
	for _, ep := range endpoints {
		payload, err := json.Marshal(deliveryPayload{EventID: event.ID, EndpointID: ep.ID})
		if err != nil {
			return err
		}
		err = d.Queue.Enqueue(ctx, queue.Task{
			Kind:           TaskWebhookDeliver,
			Payload:        payload,
			IdempotencyKey: event.ID.String() + ":" + ep.ID.String(),
			MaxAttempts:    maxAttempts,
		})
		if err != nil {
			joined = errors.Join(joined, fmt.Errorf("enqueue delivery for %s: %w", ep.ID, err))
		}
	}
	return joined
}

// HandleTask executes one webhook:deliver task. Non retryable failures are archived
// immediately by wrapping queue.ErrSkipRetry.
func (d *Dispatcher) HandleTask(ctx context.Context, task queue.Task) error {
	var p deliveryPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return fmt.Errorf("decode delivery payload: %w: %w", err, queue.ErrSkipRetry)
	}
	endpoint, err := d.Store.GetWebhookEndpoint(ctx, p.EndpointID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("endpoint %s removed: %w", p.EndpointID, queue.ErrSkipRetry)
	}
	if err != nil {
		return fmt.Errorf("load endpoint: %w", err)
	}
	if !endpoint.Active {
		return nil
	}
	event, err := d.Store.GetDomainEvent(ctx, p.EventID)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	ctx = tenant.With(ctx, event.CompanyID.String())

	deliveryID := uuid.New()
	start := time.Now()
	status, deliverErr := d.Deliver(ctx, endpoint, event, deliveryID)
	elapsed := time.Since(start)

	result := "delivered"
	switch {
	case deliverErr != nil && task.Attempt >= task.MaxAttempts && task.MaxAttempts > 0:
		result = "exhausted"
	case deliverErr != nil:
		result = "failed"
	}
	obs.Inc(obs.WebhookDeliveriesTotal, result)
	if obs.WebhookAttemptLatency != nil {
		obs.WebhookAttemptLatency.WithLabelValues(result).Observe(obs.DurationMillis(elapsed))
	}

	record := db.InsertWebhookDeliveryParams{
		ID:         deliveryID,
		EndpointID: endpoint.ID,
		EventID:    event.ID,
		Attempt:    int32(task.Attempt),
		Status:     result,
		DurationMs: elapsed.Milliseconds(),
	}
	if status > 0 {
		record.ResponseCode = pgtype.Int4{Int32: int32(status), Valid: true}
	}
	if deliverErr != nil {
		record.Error = pgtype.Text{String: deliverErr.Error(), Valid: true}
	}
	if err := d.Store.InsertWebhookDelivery(ctx, record); err != nil {
		obs.Logger(ctx).Warn().Err(err).Str("endpoint_id", endpoint.ID.String()).Msg("webhook_delivery_record_failed")
	}

	if deliverErr == nil {
		return nil
	}
	var permanent *permanentError
	if errors.As(deliverErr, &permanent) {
		return fmt.Errorf("%w: %w", deliverErr, queue.ErrSkipRetry)
	}
	return deliverErr
}

// permanentError marks a delivery failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Deliver posts the signed event to the endpoint and returns the response status.
func (d *Dispatcher) Deliver(ctx context.Context, ep db.WebhookEndpoint, ev db.DomainEvent, deliveryID uuid.UUID) (int, error) {
	ctx, span := otel.Tracer("notify.Dispatcher").Start(ctx, "Dispatcher.Deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("webhook.endpoint_id", ep.ID.String()),
		attribute.String("webhook.delivery_id", deliveryID.String()),
		attribute.String("webhook.topic", ev.Topic),
	)
	if err := validateURL(ep.URL); err != nil {
		span.RecordError(err)
		return 0, &permanentError{err: err}
	}
	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	body, err := json.Marshal(struct {
		EventID    string          `json:"eventId"`
		Topic      string          `json:"topic"`
		CompanyID  string          `json:"companyId"`
		Data       json.RawMessage `json:"data"`
		OccurredAt time.Time       `json:"occurredAt"`
	}{
		EventID:    ev.ID.String(),
		Topic:      ev.Topic,
		CompanyID:  ev.CompanyID.String(),
		Data:       json.RawMessage(ev.Payload),
		OccurredAt: occurred.UTC(),
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	replay := ""
	if d.Replay != nil && d.ReplayTTL > 0 {
		replay = replayKey(ep.ID, ev.ID)
		ok, err := d.Replay.Acquire(ctx, replay, d.ReplayTTL)
		if err != nil {
			span.RecordError(err)
			return 0, err
		}
		if !ok {
			span.AddEvent("delivery replay prevented")
			return http.StatusOK, nil
		}
	}
	status, err := d.post(ctx, ep, ev.ID.String(), deliveryID.String(), body)
	if err != nil && replay != "" {
		_ = d.Replay.Release(ctx, replay)
	}
	if err != nil {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	return status, err
}

func (d *Dispatcher) post(ctx context.Context, ep db.WebhookEndpoint, eventID, deliveryID string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return 0, &permanentError{err: err}
	}
	ts := time.Now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "backend-invoice-webhooks/1.0")
	req.Header.Set("X-Event-ID", eventID)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Idempotency-Key", deliveryID)
	req.Header.Set("X-Signature", ComputeSignature(ep.Secret, ts, eventID, body))

	client := d.Client
	if client == nil {
		client = HTTPClient(5*time.Second, false)
	}
	hc := resilience.HTTPClient{
		Client:      client,
		Breaker:     d.breakerFor(ep.ID),
		MaxAttempts: 1,
		Target:      "webhook",
		Logger:      obs.Logger(ctx),
	}
	resp, err := hc.Do(ctx, req)
	if err != nil {
		var statusErr *resilience.StatusError
		if errors.As(err, &statusErr) {
			return statusErr.StatusCode, err
		}
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, &permanentError{err: fmt.Errorf("endpoint responded %s", resp.Status)}
}

func (d *Dispatcher) breakerFor(endpointID uuid.UUID) *resilience.Breaker {
	if d.Breakers == nil {
		return nil
	}
	return d.Breakers.For(endpointID.String())
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid endpoint url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.New("webhook url must be http or https")
	}
	if parsed.Host == "" {
		return errors.New("webhook url must include host")
	}
	if parsed.Scheme == "http" {
		host := parsed.Hostname()
		if host != "localhost" && host != "127.0.0.1" {
			return errors.New("http webhook only allowed for localhost")
		}
	}
	return nil
}

// ComputeSignature calculates the webhook signature for the provided payload. The
// format is HMAC-SHA256 over "<ts>.<eventID>.<body>" using the endpoint secret.
func ComputeSignature(secret string, ts int64, eventID string, body []byte) string {
	msg := make([]byte, 0, len(body)+len(eventID)+24)
	msg = strconv.AppendInt(msg, ts, 10)
	msg = append(msg, '.')
	msg = append(msg, eventID...)
	msg = append(msg, '.')
	msg = append(msg, body...)
	return common.HMACSHA256Hex(secret, msg)
}

// HTTPClient returns an HTTP client configured for webhook delivery.
func HTTPClient(timeout time.Duration, insecure bool) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(transport),
	}
}

// ReplayProtector guards against sending duplicate deliveries within a TTL.
type ReplayProtector interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

func replayKey(endpointID, eventID uuid.UUID) string {
	return fmt.Sprintf("wh:%s:%s", endpointID, eventID)
}
