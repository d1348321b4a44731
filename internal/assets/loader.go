package assets

import (
	"fmt"
	"log/slog"
	"time"
)

// popTimeout bounds how long the loader blocks on an empty queue
// between stop flag checks.
const popTimeout = 100 * time.Millisecond

// loader is the single background goroutine that decodes queued
// assets. A decode failure is fatal: the error goes to the crash
// channel and the goroutine exits without retrying.
type loader struct {
	queue   *loadQueue
	results *resultQueue
	crash   chan<- error
	logger  *slog.Logger
	stop    chan struct{}
	done    chan struct{}
}

func startLoader(queue *loadQueue, results *resultQueue, crash chan<- error, logger *slog.Logger) *loader {
	l := &loader{
		queue:   queue,
		results: results,
		crash:   crash,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *loader) run() {
	defer close(l.done)
	defer func() {
		if r := recover(); r != nil {
			l.report(fmt.Errorf("asset loader panic: %v", r))
		}
	}()

	for {
		select {
		case <-l.stop:
			return
		default:
		}

		a := l.queue.pop(popTimeout)
		if a == nil {
			continue
		}

		// A duplicate queue entry may arrive for an asset the loader
		// already decoded. Skip the decode but still push a result so
		// the poll-side counters stay balanced.
		if a.claimDecode() {
			start := time.Now()
			a.decodeMu.Lock()
			err := a.payload.Load()
			a.decodeMu.Unlock()
			if err != nil {
				l.report(fmt.Errorf("load %s %q from %s: %w", a.Kind(), a.Name(), a.File(), err))
				return
			}
			l.logger.Debug("asset decoded",
				"asset", a.Name(),
				"kind", a.Kind(),
				"duration", time.Since(start))
		}

		l.results.put(a)
	}
}

// report delivers a fatal loader error without blocking forever if
// nobody is listening anymore.
func (l *loader) report(err error) {
	select {
	case l.crash <- err:
	case <-l.stop:
	}
}

// Stop halts the loader and waits for the goroutine to exit. Queued
// work is discarded.
func (l *loader) Stop() {
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
	<-l.done
	l.queue.drain()
}
