package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hszk-dev/mediagate/internal/domain/repository"
)

const cleanupMessageType = "mediagate.cleanup"

// ClientConfig holds configuration for the RabbitMQ client.
type ClientConfig struct {
	URL       string
	QueueName string
	// DeadLetterQueue receives tasks that were rejected: malformed bodies and
	// tasks that ran out of retries. Empty disables dead-lettering.
	DeadLetterQueue string
	Exchange        string
	RoutingKey      string
	Prefetch        int
	// MaxRetries is how many times a failed task is republished before it
	// is dead-lettered.
	MaxRetries int
}

// DefaultClientConfig returns the cleanup queue settings used by the API and
// the reaper.
func DefaultClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:             url,
		QueueName:       "cleanup_tasks",
		DeadLetterQueue: "cleanup_tasks.dead",
		RoutingKey:      "cleanup_tasks",
		Prefetch:        4,
		MaxRetries:      5,
	}
}

type amqpConnection interface {
	Channel() (*amqp.Channel, error)
	Close() error
	IsClosed() bool
}

type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

// Client carries cleanup tasks from the API to the reaper.
type Client struct {
	conn    amqpConnection
	channel amqpChannel
	config  ClientConfig
}

var _ repository.CleanupQueue = (*Client)(nil)

// ErrConnectionClosed is returned by Healthy once the broker connection is gone.
var ErrConnectionClosed = errors.New("rabbitmq connection closed")

// NewClient dials the broker and declares the cleanup queues.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return newClient(ctx, conn, ch, cfg)
}

func newClient(_ context.Context, conn amqpConnection, ch amqpChannel, cfg ClientConfig) (*Client, error) {
	fail := func(err error) (*Client, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		return fail(fmt.Errorf("failed to set QoS: %w", err))
	}

	var args amqp.Table
	if cfg.DeadLetterQueue != "" {
		if _, err := ch.QueueDeclare(cfg.DeadLetterQueue, true, false, false, false, nil); err != nil {
			return fail(fmt.Errorf("failed to declare dead letter queue: %w", err))
		}
		// Rejected deliveries are routed through the default exchange.
		args = amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": cfg.DeadLetterQueue,
		}
	}

	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, args); err != nil {
		return fail(fmt.Errorf("failed to declare queue: %w", err))
	}

	return &Client{
		conn:    conn,
		channel: ch,
		config:  cfg,
	}, nil
}

// PublishCleanupTask enqueues a persistent cleanup task.
func (c *Client) PublishCleanupTask(ctx context.Context, task repository.CleanupTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	err = c.channel.PublishWithContext(ctx, c.config.Exchange, c.config.RoutingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Type:         cleanupMessageType,
		MessageId:    task.AssetID.String(),
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			"family":      task.Family.String(),
			"retry_count": int32(task.RetryCount),
		},
		Body: body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}

	return nil
}

// ConsumeCleanupTasks hands every delivered task to handler until ctx is
// done or the delivery channel closes.
//
// A handler failure republishes the task with RetryCount+1 and acks the
// original; redelivering the same message would never advance the count.
// Malformed tasks and tasks past MaxRetries are nacked without requeue and
// end up in the dead letter queue when one is configured.
func (c *Client) ConsumeCleanupTasks(ctx context.Context, handler func(task repository.CleanupTask) error) error {
	msgs, err := c.channel.Consume(c.config.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed unexpectedly")
			}
			c.handleDelivery(ctx, msg, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, msg amqp.Delivery, handler func(task repository.CleanupTask) error) {
	var task repository.CleanupTask
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		slog.Warn("dead-lettering malformed cleanup task",
			slog.String("message_id", msg.MessageId),
			slog.String("error", err.Error()),
		)
		_ = msg.Nack(false, false)
		return
	}

	err := handler(task)
	if err == nil {
		_ = msg.Ack(false)
		return
	}

	logger := slog.With(
		slog.String("asset_id", task.AssetID.String()),
		slog.Int("retry_count", task.RetryCount),
	)

	if task.RetryCount >= c.config.MaxRetries {
		logger.Error("cleanup task exhausted retries", slog.String("error", err.Error()))
		_ = msg.Nack(false, false)
		return
	}

	task.RetryCount++
	if pubErr := c.PublishCleanupTask(ctx, task); pubErr != nil {
		logger.Error("failed to republish cleanup task", slog.String("error", pubErr.Error()))
		_ = msg.Nack(false, false)
		return
	}
	logger.Warn("cleanup task failed, retry scheduled", slog.String("error", err.Error()))
	_ = msg.Ack(false)
}

// Healthy reports whether the broker connection is still open.
func (c *Client) Healthy(context.Context) error {
	if c.conn == nil || c.conn.IsClosed() {
		return ErrConnectionClosed
	}
	return nil
}

// Close closes the channel and then the connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}
