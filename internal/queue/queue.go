package queue

import (
	"context"
	"encoding/json"

	"updates_notifier/internal/logger"
	"updates_notifier/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Producer публикует события изменений в очередь брокера.
type Producer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewProducer(url, queue string) (*Producer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Producer{conn: conn, ch: ch, queue: queue}, nil
}

// PublishEvent сериализует событие в JSON и кладёт его в очередь.
func (p *Producer) PublishEvent(ctx context.Context, ev models.ChangeEvent) error {
	// Явно объявляем очередь с durable=true
	_, err := p.ch.QueueDeclare(
		p.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key (имя очереди)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent, // Сохранять события при перезапуске
			ContentType:  "application/json",
			Body:         body,
		},
	)
}

func (p *Producer) Close() {
	p.ch.Close()
	p.conn.Close()
}

// Consumer читает события изменений из очереди. Обработка идёт в одном
// потоке, чтобы сохранить порядок доставки уведомлений.
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewConsumer(url, queue string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, ch: ch, queue: queue}, nil
}

// Consume доставляет каждое событие очереди в handler. Событие с
// нечитаемым телом подтверждается и отбрасывается; ошибка handler
// возвращает событие в очередь.
func (c *Consumer) Consume(handler func(models.ChangeEvent) error) {
	q, err := c.ch.QueueDeclare(
		c.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		logger.Log.Errorf("Queue declare error: %v", err)
		return
	}

	logger.Log.Infof("Consuming queue: %s (messages: %d)", q.Name, q.Messages)

	msgs, err := c.ch.Consume(
		q.Name,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		logger.Log.Errorf("Consume failed: %v", err)
		return
	}

	go func() {
		for msg := range msgs {
			var ev models.ChangeEvent
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				logger.Log.Errorf("Malformed change event dropped: %v", err)
				msg.Ack(false)
				continue
			}

			if err := handler(ev); err == nil {
				msg.Ack(false)
			} else {
				msg.Nack(false, true)
				logger.Log.Errorf("Change event handling failed: %v", err)
			}
		}
	}()
}

func (c *Consumer) Close() {
	c.ch.Close()
	c.conn.Close()
}
