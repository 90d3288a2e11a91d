package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/datamigrate/internal/config"
	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
	ErrConsumerClosed = errors.New(errors.ErrCodeMessageQueueError, "consumer closed")
)

// Handler processes one fetched message.  Returning an error triggers the
// retry and dead-letter path.
type Handler func(ctx context.Context, msg *ConsumedMessage) error

// ConsumedMessage is one record pulled off a topic.
type ConsumedMessage struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerMetrics counts consumer activity.
type ConsumerMetrics struct {
	MessagesConsumed     atomic.Int64
	MessagesProcessed    atomic.Int64
	MessagesFailed       atomic.Int64
	MessagesRetried      atomic.Int64
	MessagesDeadLettered atomic.Int64
}

// Consumer pulls job messages off subscribed topics and dispatches them to
// per-topic handlers, committing offsets after handling.
type Consumer struct {
	reader   ReaderInterface
	logger   logging.Logger
	handlers map[string]Handler
	mu       sync.RWMutex

	maxRetries   int
	retryBackoff time.Duration
	deadLetter   *Producer

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	metrics *ConsumerMetrics
}

// NewConsumer joins the configured group on the given topics.  A dead
// letter producer is created so exhausted jobs are preserved.
func NewConsumer(cfg config.KafkaConfig, workerCfg config.WorkerConfig, topics []string, log logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka group id required")
	}

	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       topics,
		MinBytes:          1,
		MaxBytes:          50 * 1024 * 1024,
		MaxWait:           time.Second,
		SessionTimeout:    30 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		StartOffset:       startOffset,
	})

	deadLetter, err := NewProducer(cfg, log)
	if err != nil {
		reader.Close()
		return nil, err
	}

	maxRetries := workerCfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryBackoff := workerCfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = time.Second
	}

	return &Consumer{
		reader:       reader,
		logger:       log,
		handlers:     make(map[string]Handler),
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		deadLetter:   deadLetter,
		metrics:      &ConsumerMetrics{},
	}, nil
}

// Subscribe registers the handler for a topic.
func (c *Consumer) Subscribe(topic string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("Subscribed to topic", logging.String("topic", topic))
}

// Start launches the consume loop.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.consumeLoop(ctx)
	c.logger.Info("Kafka consumer started")
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Fetch failed", logging.Err(err))
			time.Sleep(time.Second)
			continue
		}
		c.metrics.MessagesConsumed.Add(1)

		msg := &ConsumedMessage{
			Topic:     m.Topic,
			Partition: m.Partition,
			Offset:    m.Offset,
			Key:       m.Key,
			Value:     m.Value,
			Headers:   make(map[string]string, len(m.Headers)),
			Timestamp: m.Time,
		}
		for _, h := range m.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}

		c.mu.RLock()
		handler, ok := c.handlers[m.Topic]
		c.mu.RUnlock()
		if !ok {
			c.logger.Warn("No handler for topic", logging.String("topic", m.Topic))
			c.commit(ctx, m)
			continue
		}

		if err := c.process(ctx, msg, handler); err == nil {
			c.metrics.MessagesProcessed.Add(1)
		} else {
			c.metrics.MessagesFailed.Add(1)
		}
		c.commit(ctx, m)
	}
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.logger.Error("Commit failed", logging.Err(err), logging.String("topic", m.Topic))
	}
}

// process retries the handler with exponential backoff and routes exhausted
// messages to the dead-letter topic.  Offsets advance either way.
func (c *Consumer) process(ctx context.Context, msg *ConsumedMessage, handler Handler) error {
	err := handler(ctx, msg)
	if err == nil {
		return nil
	}

	backoff := c.retryBackoff
	for i := 0; i < c.maxRetries; i++ {
		c.metrics.MessagesRetried.Add(1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}

	c.logger.Error("Message failed after retries",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Err(err))

	dl := &Message{
		Topic: TopicDeadLetter,
		Key:   msg.Key,
		Value: msg.Value,
		Headers: map[string]string{
			"original_topic": msg.Topic,
			"error_message":  err.Error(),
		},
	}
	if dlErr := c.deadLetter.Publish(ctx, dl); dlErr != nil {
		c.logger.Error("Dead letter publish failed", logging.Err(dlErr))
		return err
	}
	c.metrics.MessagesDeadLettered.Add(1)
	return err
}

// Metrics returns a snapshot signature of the counters.
func (c *Consumer) Metrics() *ConsumerMetrics {
	return c.metrics
}

// Close stops the loop and closes the reader and dead-letter producer.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	err := c.reader.Close()
	if dlErr := c.deadLetter.Close(); err == nil {
		err = dlErr
	}
	c.logger.Info("Kafka consumer closed", logging.Int64("consumed", c.metrics.MessagesConsumed.Load()))
	return err
}
