package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/PunchCam/internal/capture"
	"github.com/bryanchriswhite/PunchCam/internal/logger"
)

// DefaultQueueCapacity is how many captured frames may wait for the consumer
const DefaultQueueCapacity = 10

// Processor consumes frames in arrival order
type Processor interface {
	Process(f capture.Frame) error
}

// Pipeline connects a capture source to a processor through a bounded queue.
// Capture runs on its own goroutine; processing runs on the caller's.
type Pipeline struct {
	source   capture.Source
	proc     Processor
	capacity int
	stats    *Stats
	log      zerolog.Logger
}

// New creates a pipeline. The source must already be started.
func New(source capture.Source, proc Processor, capacity int, stats *Stats) *Pipeline {
	if capacity < 1 {
		capacity = DefaultQueueCapacity
	}
	if stats == nil {
		stats = NewStats("")
	}
	return &Pipeline{
		source:   source,
		proc:     proc,
		capacity: capacity,
		stats:    stats,
		log:      logger.WithComponent("pipeline").With().Str("session", stats.SessionID).Logger(),
	}
}

// Stats returns the live counters
func (p *Pipeline) Stats() *Stats { return p.stats }

// Run processes frames until the source ends or either side fails
func (p *Pipeline) Run() error {
	queue := make(chan capture.Frame, p.capacity)
	produced := make(chan error, 1)

	go func() {
		defer close(queue)
		produced <- p.produce(queue)
	}()

	p.log.Info().Str("source", p.source.Name()).Int("queue", p.capacity).Msg("Pipeline started")

	consumeErr := p.consume(queue)
	if consumeErr != nil {
		if err := p.source.Stop(); err != nil {
			p.log.Warn().Err(err).Msg("Failed to stop source")
		}
		dropped := 0
		for range queue {
			dropped++
		}
		if dropped > 0 {
			p.log.Warn().Int("frames", dropped).Msg("Discarded queued frames")
		}
	}
	produceErr := <-produced

	p.log.Info().
		Uint64("captured", p.stats.captured.Load()).
		Uint64("emitted", p.stats.emitted.Load()).
		Msg("Pipeline finished")

	if consumeErr != nil {
		return consumeErr
	}
	return produceErr
}

func (p *Pipeline) produce(queue chan<- capture.Frame) error {
	full := false
	for {
		f, err := p.source.Next()
		if errors.Is(err, io.EOF) || errors.Is(err, capture.ErrStopped) {
			p.log.Debug().Err(err).Msg("Source ended")
			return nil
		}
		if err != nil {
			return fmt.Errorf("capture failed: %w", err)
		}
		p.stats.captured.Add(1)

		if len(queue) == cap(queue) {
			p.stats.queueFull.Add(1)
			if !full {
				p.log.Warn().Uint64("seq", f.Seq).Msg("Queue full, capture is waiting on processing")
			}
			full = true
		} else {
			full = false
		}

		queue <- f
		p.stats.setBacklog(len(queue))
	}
}

func (p *Pipeline) consume(queue <-chan capture.Frame) error {
	for f := range queue {
		if err := p.proc.Process(f); err != nil {
			return err
		}
	}
	return nil
}
