package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const emitTimeout = 5 * time.Second

// Publisher fires events in the background so request paths never wait on the broker.
// A nil Publisher, or one without an emitter, drops events.
type Publisher struct {
	emitter Emitter
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewPublisher wraps emitter. A nil emitter yields a Publisher that drops events.
func NewPublisher(emitter Emitter, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{emitter: emitter, log: log}
}

// Publish emits ev asynchronously with its own timeout; request cancellation does not abort it.
// Failures are logged and otherwise ignored.
func (p *Publisher) Publish(ev Event) {
	if p == nil || p.emitter == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := p.emitter.Emit(ctx, ev); err != nil {
			p.log.Warn("registration event emit failed", zap.String("type", string(ev.Type)), zap.Error(err))
		}
	}()
}

// Drain waits for in-flight emits, up to ctx's deadline, then closes the emitter.
func (p *Publisher) Drain(ctx context.Context) error {
	if p == nil || p.emitter == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		p.log.Warn("registration events: drain timed out")
	}
	return p.emitter.Close()
}
