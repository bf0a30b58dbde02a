// Package broker wraps the AMQP connection the four producers and four
// result consumers share: one direct exchange, eight durable queues, manual
// acknowledgement, and exponential-backoff reconnection.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/smilemakc/mcqflow/internal/application/retry"
	"github.com/smilemakc/mcqflow/internal/domain/jobkind"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
)

// Priority maps a jobkind.Priority to the queue's x-max-priority scale.
func Priority(p jobkind.Priority) uint8 {
	return p.BrokerPriority()
}

// Config holds the broker's connection and reconnection settings.
type Config struct {
	URL                 string
	HeartbeatInterval   time.Duration
	PrefetchCount       int
	ReconnectInitial    time.Duration
	ReconnectFactor     float64
	ReconnectMaxRetries int
}

// Broker owns the AMQP connection and channel and declares the fixed
// topology of queues on every (re)connect.
type Broker struct {
	cfg Config

	mu   sync.RWMutex
	conn *amqp.Connection
	ch   *amqp.Channel

	closed chan struct{}
}

// Dial connects to the broker, declares the exchange and all eight queues,
// and starts the background reconnection watcher.
func Dial(cfg Config) (*Broker, error) {
	b := &Broker{cfg: cfg, closed: make(chan struct{})}
	if err := b.connect(); err != nil {
		return nil, err
	}
	go b.watch()
	return b, nil
}

func (b *Broker) connect() error {
	conn, err := amqp.DialConfig(b.cfg.URL, amqp.Config{
		Heartbeat: b.cfg.HeartbeatInterval,
	})
	if err != nil {
		return fmt.Errorf("broker: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("broker: open channel: %w", err)
	}

	if err := ch.Qos(b.cfg.PrefetchCount, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("broker: set qos: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("broker: declare topology: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.ch = ch
	b.mu.Unlock()

	logger.Default().Info("broker connected", "url", redactURL(b.cfg.URL))
	return nil
}

// declareTopology declares the direct exchange and the request/result
// queue pair for every job kind, bound by routing key, with x-max-priority
// so URGENT jobs jump LOW/NORMAL ones already sitting in the queue.
func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(jobkind.ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, kind := range jobkind.AllKinds {
		q := jobkind.DefaultQueues[kind]
		for _, pair := range []struct{ name, key string }{
			{q.RequestQueue, q.RequestKey},
			{q.ResultQueue, q.ResultKey},
		} {
			args := amqp.Table{"x-max-priority": int32(9)}
			if _, err := ch.QueueDeclare(pair.name, true, false, false, false, args); err != nil {
				return fmt.Errorf("declare queue %s: %w", pair.name, err)
			}
			if err := ch.QueueBind(pair.name, pair.key, jobkind.ExchangeName, false, nil); err != nil {
				return fmt.Errorf("bind queue %s: %w", pair.name, err)
			}
		}
	}
	return nil
}

// watch reconnects with exponential backoff whenever the connection drops,
// capped at cfg.ReconnectMaxRetries before giving up and logging an error;
// the next Publish/Consume call surfaces the dead connection to its caller.
func (b *Broker) watch() {
	for {
		b.mu.RLock()
		conn := b.conn
		b.mu.RUnlock()
		if conn == nil {
			return
		}

		notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-b.closed:
			return
		case err, ok := <-notifyClose:
			if !ok {
				return
			}
			logger.Default().Warn("broker connection closed, reconnecting", "error", err)
		}

		policy := &retry.RetryPolicy{
			MaxAttempts:     b.cfg.ReconnectMaxRetries,
			InitialDelay:    b.cfg.ReconnectInitial,
			MaxDelay:        b.cfg.ReconnectInitial * time.Duration(1<<uint(b.cfg.ReconnectMaxRetries)),
			BackoffStrategy: retry.BackoffExponential,
		}

		reconnectErr := policy.Execute(context.Background(), b.connect)
		if reconnectErr != nil {
			logger.Default().Error("broker reconnection exhausted", "error", reconnectErr)
			return
		}
	}
}

// Channel returns the current AMQP channel. Callers should re-fetch it on
// every operation rather than caching it, since it's replaced on reconnect.
func (b *Broker) Channel() *amqp.Channel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ch
}

// Publish publishes body to queueRoutingKey on the exchange with the given
// priority, as a persistent message.
func (b *Broker) Publish(ctx context.Context, routingKey string, body []byte, priority uint8) error {
	ch := b.Channel()
	if ch == nil {
		return fmt.Errorf("broker: not connected")
	}
	return ch.PublishWithContext(ctx, jobkind.ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Priority:     priority,
		Body:         body,
		Timestamp:    time.Now(),
	})
}

// Consume starts a manual-ack delivery stream for queueName.
func (b *Broker) Consume(queueName, consumerTag string) (<-chan amqp.Delivery, error) {
	ch := b.Channel()
	if ch == nil {
		return nil, fmt.Errorf("broker: not connected")
	}
	return ch.Consume(queueName, consumerTag, false, false, false, false, nil)
}

// Close shuts down the channel and connection and stops the reconnection
// watcher.
func (b *Broker) Close() error {
	close(b.closed)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch != nil {
		b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func redactURL(url string) string {
	at := -1
	for i, c := range url {
		if c == '@' {
			at = i
		}
	}
	if at == -1 {
		return url
	}
	scheme := ""
	for i, c := range url {
		if c == ':' {
			scheme = url[:i+3]
			break
		}
	}
	return scheme + "***@" + url[at+1:]
}
