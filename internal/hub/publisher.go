package hub

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dimitrije/teamsync-api/internal/logger"
	"go.uber.org/zap"
)

// Sink is anything events can be published to.
type Sink interface {
	Publish(ctx context.Context, topic, eventType string, payload any) error
}

type PublisherConfig struct {
	Timeout    time.Duration
	MaxRetries uint64
}

// Publisher delivers events to a Sink in the background, retrying with
// exponential backoff. Callers never wait on delivery and never see its errors.
type Publisher struct {
	sink Sink
	cfg  PublisherConfig
	log  *zap.Logger
	wg   sync.WaitGroup
}

func NewPublisher(sink Sink, cfg PublisherConfig, log *zap.Logger) *Publisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &Publisher{sink: sink, cfg: cfg, log: logger.OrNop(log)}
}

func (p *Publisher) Notify(topic, eventType string, payload any) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.deliver(topic, eventType, payload)
	}()
}

func (p *Publisher) deliver(topic, eventType string, payload any) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 50 * time.Millisecond
	eb.MaxElapsedTime = 10 * p.cfg.Timeout

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
		defer cancel()
		return p.sink.Publish(ctx, topic, eventType, payload)
	}, backoff.WithMaxRetries(eb, p.cfg.MaxRetries))
	if err != nil {
		p.log.Warn("failed to publish event",
			zap.String("topic", topic),
			zap.String("type", eventType),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
	}
}

// Close waits for in-flight deliveries.
func (p *Publisher) Close() {
	p.wg.Wait()
}
