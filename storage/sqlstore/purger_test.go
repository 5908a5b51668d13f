package sqlstore

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type countingDeleter struct {
	calls atomic.Int32
	err   error
}

func (d *countingDeleter) DeleteExpired(context.Context) (int64, error) {
	d.calls.Add(1)
	return 1, d.err
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPurgerRunsUntilCancelled(t *testing.T) {
	d := &countingDeleter{}
	p := newPurger(d, 5*time.Millisecond, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for d.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("purger did not stop after cancel")
	}
	if got := d.calls.Load(); got < 3 {
		t.Fatalf("expected at least 3 purge passes, got %d", got)
	}
}

func TestPurgerSurvivesErrors(t *testing.T) {
	d := &countingDeleter{err: errors.New("connection refused")}
	p := newPurger(d, time.Millisecond, quietLogger())

	p.purgeOnce(context.Background())
	p.purgeOnce(context.Background())
	if d.calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", d.calls.Load())
	}
}

func TestNewPurgerDefaultsInterval(t *testing.T) {
	p := newPurger(&countingDeleter{}, 0, nil)
	if p.interval != DefaultPurgeInterval {
		t.Fatalf("expected default interval, got %v", p.interval)
	}
}
