// Package amqp publishes ledger change events to RabbitMQ and consumes them
// in the worker.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"ledger/internal/core"
	"ledger/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	url          string
	exchangeName string
	queueName    string
	routingKey   string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time

	logger *log.Logger
}

var _ core.EventPublisher = (*Client)(nil)

// NewClient dials url and declares a durable direct exchange with one
// durable queue bound under routingKey. An empty routingKey uses the queue
// name.
func NewClient(url, exchangeName, queueName, routingKey string, logger *log.Logger) (*Client, error) {
	if routingKey == "" {
		routingKey = queueName
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		routingKey:   routingKey,
		logger:       logger,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) log() *log.Logger {
	if c.logger == nil {
		return log.Wrap(nil, log.ComponentAMQP)
	}
	return c.logger.WithComponent(log.ComponentAMQP)
}

// connect opens a fresh connection and channel. Must not hold c.mu.
func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName, c.routingKey); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	oldConn, oldChannel := c.conn, c.channel
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	if oldChannel != nil {
		oldChannel.Close()
	}
	if oldConn != nil {
		oldConn.Close()
	}
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue, routingKey string) error {
	if err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish sends ev as a persistent JSON message. A lost connection is
// re-established once before giving up.
func (c *Client) Publish(ctx context.Context, ev core.ChangeEvent) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s/%s: %w", ev.Ledger, ev.Operation, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := NewChangeMessage(ev)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = c.publish(ctx, msg.ID, body)
	if err != nil && isConnectionError(err) {
		c.log().WarnContext(ctx, "AMQP connection lost, reconnecting", log.FieldError, err)
		if rerr := c.connect(); rerr == nil {
			err = c.publish(ctx, msg.ID, body)
		}
	}
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.log().InfoContext(ctx, "Published change event",
		log.FieldMessageID, msg.ID,
		log.FieldLedger, msg.Ledger,
		log.FieldOperation, msg.Operation,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, id string, body []byte) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return errors.New("connection closed")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(ctx,
		c.exchangeName, // exchange
		c.routingKey,   // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    id,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Consume delivers change messages to handler until ctx is cancelled.
// Undecodable messages are dropped; handler failures are requeued.
func (c *Client) Consume(ctx context.Context, handler func(context.Context, *ChangeMessage) error) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return errors.New("connection closed")
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	logger := c.log()
	logger.InfoContext(ctx, "Started consuming change events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			process(ctx, logger, delivery.Body, delivery, handler)
		}
	}
}

// acknowledger is the subset of amqp091.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func process(ctx context.Context, logger *log.Logger, body []byte, ack acknowledger, handler func(context.Context, *ChangeMessage) error) {
	msg, err := ChangeMessageFromJSON(body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to decode change message", log.FieldError, err)
		_ = ack.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Failed to handle change message",
			log.FieldMessageID, msg.ID, log.FieldLedger, msg.Ledger, log.FieldError, err)
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
	logger.DebugContext(ctx, "Processed change message", log.FieldMessageID, msg.ID)
}

// ConsumeWithRetry runs Consume and reconnects with exponential backoff
// whenever the delivery channel breaks. It returns when ctx is cancelled.
func (c *Client) ConsumeWithRetry(ctx context.Context, handler func(context.Context, *ChangeMessage) error) error {
	attempt := 0
	for {
		err := c.Consume(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		wait := exponentialBackoff(attempt)
		c.log().WarnContext(ctx, "Consumer stopped, retrying", log.FieldError, err, "backoff", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if err := c.connect(); err != nil {
			attempt++
			continue
		}
		attempt = 0
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	return min(d, maxBackoff)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
