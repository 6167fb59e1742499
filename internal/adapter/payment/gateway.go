package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/rl1809/basket-checkout/internal/core/domain"
	"github.com/rl1809/basket-checkout/internal/port"
)

// NoopGateway accepts every receipt and only logs it.
type NoopGateway struct {
	logger zerolog.Logger
}

func NewNoopGateway(logger zerolog.Logger) *NoopGateway {
	return &NoopGateway{logger: logger}
}

func (g *NoopGateway) Charge(ctx context.Context, receipt domain.CheckoutReceipt) error {
	g.logger.Debug().Int64("basket_id", receipt.BasketID).Float64("total_cost", receipt.TotalCost).Msg("noop charge")
	return nil
}

// SettlementEvent is the payload published for every checked out basket.
type SettlementEvent struct {
	EventID    string                 `json:"event_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Receipt    domain.CheckoutReceipt `json:"receipt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaGateway publishes settlement events keyed by basket id, so all events
// of one basket land on the same partition.
type KafkaGateway struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaGateway(brokers []string, topic string) *KafkaGateway {
	return newKafkaGateway(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
	})
}

func newKafkaGateway(w messageWriter) *KafkaGateway {
	return &KafkaGateway{writer: w, now: time.Now}
}

func (g *KafkaGateway) Charge(ctx context.Context, receipt domain.CheckoutReceipt) error {
	event := SettlementEvent{
		EventID:    uuid.NewString(),
		OccurredAt: g.now().UTC(),
		Receipt:    receipt,
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal settlement event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(receipt.BasketID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}
	if err := g.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish settlement of basket %d: %w", receipt.BasketID, err)
	}
	return nil
}

func (g *KafkaGateway) Close() error {
	return g.writer.Close()
}

var (
	_ port.PaymentGateway = (*NoopGateway)(nil)
	_ port.PaymentGateway = (*KafkaGateway)(nil)
)
