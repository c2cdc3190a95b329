package notify

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/domain/service"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
)

// LogNotifier writes alerts to the structured log. It is the fallback
// when no message broker is configured.
type LogNotifier struct {
	l *applogger.Logger
}

func NewLogNotifier(l *applogger.Logger) *LogNotifier {
	return &LogNotifier{l: l}
}

func (n *LogNotifier) Notify(_ context.Context, level service.AlertLevel, message string, fields map[string]any) {
	logFields := []applogger.Field{applogger.String("level", string(level))}
	for k, v := range fields {
		logFields = append(logFields, applogger.Any(k, v))
	}

	switch level {
	case service.AlertCritical, service.AlertError:
		n.l.Error(message, logFields...)
	case service.AlertWarning:
		n.l.Warn(message, logFields...)
	default:
		n.l.Info(message, logFields...)
	}
}

func (n *LogNotifier) NotifySignal(_ context.Context, sig models.TradeSignal, pred *models.Prediction) {
	fields := []applogger.Field{
		applogger.String("symbol", sig.Symbol),
		applogger.String("signal", string(sig.Signal)),
		applogger.String("confidence", string(sig.Confidence)),
		applogger.Float64("entry", sig.Entry),
		applogger.Float64("target", sig.Target),
		applogger.Float64("stop_loss", sig.StopLoss),
	}
	if pred != nil && pred.Condition != nil {
		fields = append(fields, applogger.String("condition", pred.Condition.Label()))
	}
	n.l.Info("trade signal", fields...)
}

// signalEvent is the wire shape published to the signals topic.
type signalEvent struct {
	Symbol           string    `json:"symbol"`
	Signal           string    `json:"signal"`
	Confidence       string    `json:"confidence"`
	Entry            float64   `json:"entry,omitempty"`
	Target           float64   `json:"target,omitempty"`
	StopLoss         float64   `json:"stop_loss,omitempty"`
	FilterConfidence float64   `json:"filter_confidence"`
	Reasons          []string  `json:"reasons,omitempty"`
	Condition        string    `json:"condition,omitempty"`
	CurrentPrice     float64   `json:"current_price,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

type alertEvent struct {
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// KafkaNotifier publishes alerts and signals to a Kafka topic, keyed by
// symbol so per-symbol ordering is preserved. Delivery failures are
// logged, never propagated.
type KafkaNotifier struct {
	l        *applogger.Logger
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaNotifier(l *applogger.Logger, producer *pkgkafka.Producer, topic string) *KafkaNotifier {
	return &KafkaNotifier{l: l, producer: producer, topic: topic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, level service.AlertLevel, message string, fields map[string]any) {
	evt := alertEvent{
		Level:     string(level),
		Message:   message,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
	if err := n.producer.Publish(ctx, n.topic, []byte("alert"), evt); err != nil {
		n.l.Warn("alert publish failed",
			applogger.String("message", message),
			applogger.Error(err))
	}
}

func (n *KafkaNotifier) NotifySignal(ctx context.Context, sig models.TradeSignal, pred *models.Prediction) {
	evt := signalEvent{
		Symbol:           sig.Symbol,
		Signal:           string(sig.Signal),
		Confidence:       string(sig.Confidence),
		Entry:            sig.Entry,
		Target:           sig.Target,
		StopLoss:         sig.StopLoss,
		FilterConfidence: sig.FilterConfidence,
		Reasons:          sig.Reasons,
		Timestamp:        sig.Timestamp,
	}
	if pred != nil {
		evt.CurrentPrice = pred.CurrentPrice
		if pred.Condition != nil {
			evt.Condition = pred.Condition.Label()
		}
	}

	if err := n.producer.Publish(ctx, n.topic, []byte(sig.Symbol), evt); err != nil {
		n.l.Warn("signal publish failed",
			applogger.String("symbol", sig.Symbol),
			applogger.Error(err))
	}
}

// Close releases the underlying producer.
func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}
