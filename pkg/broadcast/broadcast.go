package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/wazend/go-whatsapp-instance-api/pkg/log"
)

// Caster publishes instance events to a RabbitMQ topic exchange. The
// routing key is the instance key, so consumers subscribe per instance.
// Publish failures are logged and dropped, socket traffic must never stall
// on the broker.
type Caster struct {
	conn     *amqp091.Connection
	exchange string
}

// envelope is the wire shape of every broadcast event.
type envelope struct {
	ID        string    `json:"id"`
	Instance  string    `json:"instance"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

func New(url string, exchange string) (*Caster, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	return &Caster{conn: conn, exchange: exchange}, nil
}

func (c *Caster) Publish(ctx context.Context, channel string, event string, payload any) {
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := json.Marshal(envelope{
		ID:        uuid.NewString(),
		Instance:  channel,
		Event:     event,
		Timestamp: time.Now(),
		Payload:   payload,
	})
	if err != nil {
		log.Instance(channel).Errorln("Error Encoding Broadcast Event:", err.Error())
		return
	}

	ch, err := c.conn.Channel()
	if err != nil {
		log.Instance(channel).Warnln("Error Opening Broker Channel:", err.Error())
		return
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx, c.exchange, channel, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Type:         event,
		Body:         body,
	})
	if err != nil {
		log.Instance(channel).Warnln("Error Publishing Broadcast Event:", err.Error())
	}
}

func (c *Caster) Close() error {
	return c.conn.Close()
}

// Noop is the broadcaster used when no broker is configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, channel string, event string, payload any) {}
