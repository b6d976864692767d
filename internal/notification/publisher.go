package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/aquatel/hydronet-go/internal/conf"
	"github.com/aquatel/hydronet-go/internal/logging"
)

// PendencyEvent is published when a batch run creates or refreshes a
// treatment pendency.
type PendencyEvent struct {
	PendencyID     uint    `json:"pendency_id"`
	PointID        uint    `json:"point_id"`
	Tag            string  `json:"tag"`
	Date           string  `json:"date"`
	Hour           int     `json:"hour"`
	AnomalyType    string  `json:"anomaly_type"`
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	SuggestedValue float64 `json:"suggested_value"`
	Method         string  `json:"method"`
}

// BatchEvent is published when a batch run finishes.
type BatchEvent struct {
	RunID      string `json:"run_id"`
	Date       string `json:"date"`
	Status     string `json:"status"`
	Processed  int    `json:"processed"`
	Anomalies  int    `json:"anomalies"`
	ErrorCount int    `json:"error_count"`
	DurationMs int64  `json:"duration_ms"`
}

// Publisher serializes engine events and publishes them under the configured
// topic prefix. Publishing is fire-and-forget; failures are logged and never
// propagate to the caller.
type Publisher struct {
	client Client
	topic  string
	logger *slog.Logger
}

// NewPublisher creates a publisher. Returns nil when MQTT is disabled so
// callers can use a nil check instead of a no-op implementation.
func NewPublisher(settings *conf.Settings) *Publisher {
	if !settings.Notification.Enabled {
		return nil
	}
	client, err := NewClient(settings)
	if err != nil {
		logging.Warn("MQTT notifications disabled", "error", err)
		return nil
	}
	topic := strings.TrimSuffix(settings.Notification.Topic, "/")
	if topic == "" {
		topic = "hydronet"
	}
	return &Publisher{
		client: client,
		topic:  topic,
		logger: logging.ForService("notification"),
	}
}

// Connect dials the broker. Safe to call on a nil publisher.
func (p *Publisher) Connect(ctx context.Context) {
	if p == nil {
		return
	}
	if err := p.client.Connect(ctx); err != nil {
		p.logger.Warn("MQTT connect failed", "error", err)
	}
}

// Close disconnects from the broker. Safe to call on a nil publisher.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.client.Disconnect()
}

// PendencyCreated publishes a pendency event. Safe on a nil publisher.
func (p *Publisher) PendencyCreated(ctx context.Context, ev *PendencyEvent) {
	if p == nil {
		return
	}
	p.publish(ctx, p.topic+"/pendency/created", ev)
}

// BatchCompleted publishes a batch completion event. Safe on a nil publisher.
func (p *Publisher) BatchCompleted(ctx context.Context, ev *BatchEvent) {
	if p == nil {
		return
	}
	p.publish(ctx, p.topic+"/batch/completed", ev)
}

func (p *Publisher) publish(ctx context.Context, topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal event", "topic", topic, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.client.Publish(ctx, topic, string(data)); err != nil {
		p.logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
}
