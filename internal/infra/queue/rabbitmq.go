package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "ex.leads"
	DLQName      = "q.lead-changes.dlq"
	DLXName      = "ex.leads.dlx" // Dead Letter Exchange
	RoutingKey   = "k.lead-changed"
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("falha ao abrir canal: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

// setupTopology declara a exchange de mudanças (fanout, cada instância do
// dashboard tem sua própria fila) e a DLX para payloads rejeitados.
func setupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(DLQName, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(DLQName, RoutingKey, DLXName, false, nil); err != nil {
		return err
	}

	return ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil)
}

// DeclareInstanceQueue cria a fila desta instância e liga na exchange. Nome
// vazio gera uma fila exclusiva que some junto com a conexão.
func (r *RabbitMQ) DeclareInstanceQueue(name string) (string, error) {
	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName,    // Se der Nack, manda pra DLX
		"x-dead-letter-routing-key": RoutingKey, // Com essa chave
	}

	durable, autoDelete, exclusive := true, false, false
	if name == "" {
		durable, autoDelete, exclusive = false, true, true
	}

	q, err := r.Ch.QueueDeclare(name, durable, autoDelete, exclusive, false, args)
	if err != nil {
		return "", fmt.Errorf("falha ao declarar fila: %w", err)
	}
	if err := r.Ch.QueueBind(q.Name, RoutingKey, ExchangeName, false, nil); err != nil {
		return "", fmt.Errorf("falha ao ligar fila: %w", err)
	}
	return q.Name, nil
}

func (r *RabbitMQ) Close() error {
	if r.Ch != nil {
		r.Ch.Close()
	}
	if r.Conn != nil {
		return r.Conn.Close()
	}
	return nil
}
