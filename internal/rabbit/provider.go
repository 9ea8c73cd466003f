package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/medfolio/calendar/internal/storage"
	"github.com/streadway/amqp"
)

var ErrNotConnected = errors.New("rabbit is not connected")

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Queue    string
}

// Message is the invite notification placed on the queue for the sender.
type Message struct {
	EventID    string
	EventTitle string
	Date       string
	AttendeeID string
	UserID     string
	Email      string
}

type Provider struct {
	conn       *amqp.Connection
	queue      amqp.Queue
	channel    *amqp.Channel
	connString string
	queueName  string
}

func New(config Config) *Provider {
	return &Provider{
		connString: fmt.Sprintf(
			"amqp://%s:%s@%s:%d/",
			config.User,
			config.Password,
			config.Host,
			config.Port,
		),
		queueName: config.Queue,
	}
}

func (r *Provider) Connect() error {
	var err error
	r.conn, err = amqp.Dial(r.connString)
	if err != nil {
		return err
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		return err
	}
	r.queue, err = r.channel.QueueDeclare(
		r.queueName,
		false,
		true,
		false,
		false,
		nil,
	)
	return err
}

func (r *Provider) Close() {
	r.conn.Close()
}

// NotifyInvite publishes an invite notification for the sender to deliver.
func (r *Provider) NotifyInvite(_ context.Context, event storage.Event, attendee storage.Attendee) error {
	data, err := json.Marshal(Message{
		EventID:    event.ID,
		EventTitle: event.Title,
		Date:       event.Date,
		AttendeeID: attendee.ID,
		UserID:     attendee.UserID,
		Email:      attendee.Email,
	})
	if err != nil {
		return err
	}
	return r.Publish(data)
}

func (r *Provider) Publish(body []byte) error {
	if r.channel == nil {
		return ErrNotConnected
	}
	return r.channel.Publish(
		"",           // exchange
		r.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType: "text/plain",
			Body:        body,
		})
}

type MessageProcess = func(msg amqp.Delivery)

func (r Provider) Consume(ctx context.Context, process MessageProcess) error {
	if r.channel == nil {
		return ErrNotConnected
	}
	msgs, err := r.channel.Consume(
		r.queue.Name, // queue
		"",           // consumer
		true,         // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if ok {
				process(m)
			}
		}
	}
}
