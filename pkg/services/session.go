package services

import (
	"context"
	"sync"
	"time"
)

// ReadingSession periodically flushes the reader's scroll offset while the
// reader view is open. End stops the ticker and performs a final flush.
type ReadingSession struct {
	reader *Reader
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Begin starts a reading session that lives until End is called or ctx is done.
func (r *Reader) Begin(ctx context.Context, interval time.Duration) *ReadingSession {
	ctx, cancel := context.WithCancel(ctx)
	s := &ReadingSession{reader: r, cancel: cancel, done: make(chan struct{})}
	go s.run(ctx, interval)
	return s
}

func (s *ReadingSession) run(ctx context.Context, interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reader.Flush()
		}
	}
}

// End is safe to call more than once.
func (s *ReadingSession) End() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.reader.Flush()
	})
}
