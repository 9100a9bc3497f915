package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

var _ usecase.ChangePublisher = (*RabbitMQProducer)(nil)

// ChangePayload é o corpo publicado na exchange, no mesmo formato do webhook
// do banco.
type ChangePayload struct {
	Type      entity.ChangeKind `json:"type"`
	Table     string            `json:"table,omitempty"`
	Record    *entity.Lead      `json:"record,omitempty"`
	OldRecord *oldRecord        `json:"old_record,omitempty"`
}

type oldRecord struct {
	ID int64 `json:"id"`
}

func NewChangePayload(ev entity.ChangeEvent) ChangePayload {
	p := ChangePayload{Type: ev.Kind, Table: ev.Table, Record: ev.Record}
	if ev.OldID != 0 {
		p.OldRecord = &oldRecord{ID: ev.OldID}
	}
	return p
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch publisher
}

func NewProducer(ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) PublishChange(ctx context.Context, ev entity.ChangeEvent) error {
	body, err := json.Marshal(NewChangePayload(ev))
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Transient, // mudança perdida é coberta pelo próximo reload
		},
	)
	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %w", err)
	}
	return nil
}
