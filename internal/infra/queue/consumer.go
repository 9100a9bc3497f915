package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

var _ usecase.ChangeSubscriber = (*ChangeConsumer)(nil)

type consumerChannel interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
}

// ChangeConsumer entrega as mudanças publicadas em ex.leads para o ingestor.
type ChangeConsumer struct {
	Channel consumerChannel
	Queue   string
	logger  *zap.Logger
}

func NewChangeConsumer(ch *amqp.Channel, queueName string, logger *zap.Logger) *ChangeConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeConsumer{Channel: ch, Queue: queueName, logger: logger}
}

type consumerSubscription struct {
	cancel func() error
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

func (s *consumerSubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.err = s.cancel()
		s.wg.Wait()
	})
	return s.err
}

func (c *ChangeConsumer) Subscribe(ctx context.Context, onEvent func(entity.ChangeEvent, error)) (entity.Subscription, error) {
	tag := "leads-dashboard-" + uuid.NewString()
	msgs, err := c.Channel.Consume(
		c.Queue, // fila
		tag,     // consumer
		false,   // auto-ack (manual é mais seguro)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return nil, fmt.Errorf("falha ao registrar consumidor RabbitMQ: %w", err)
	}

	sub := &consumerSubscription{
		cancel: func() error { return c.Channel.Cancel(tag, false) },
		done:   make(chan struct{}),
	}
	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				c.handleDelivery(d, onEvent)
			}
		}
	}()

	c.logger.Info("consumindo mudanças de leads", zap.String("queue", c.Queue))
	return sub, nil
}

func (c *ChangeConsumer) handleDelivery(d amqp.Delivery, onEvent func(entity.ChangeEvent, error)) {
	ev, err := entity.DecodeChangeEvent(d.Body)
	if err != nil {
		// Mensagem podre. Rejeita sem requeue para não travar a fila.
		if nerr := d.Nack(false, false); nerr != nil {
			c.logger.Warn("nack falhou", zap.Error(nerr))
		}
		onEvent(entity.ChangeEvent{}, &usecase.MalformedChangeEventError{Body: d.Body, Err: err})
		return
	}

	onEvent(ev, nil)
	if err := d.Ack(false); err != nil {
		c.logger.Warn("ack falhou", zap.Error(err))
	}
}
