package sqlstore

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPurgeInterval is how often expired revocations are deleted.
const DefaultPurgeInterval = 10 * time.Minute

type expiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Purger periodically deletes expired revocation rows, standing in for the
// TTL index a document store would provide.
type Purger struct {
	store    expiredDeleter
	interval time.Duration
	log      logrus.FieldLogger
}

// NewPurger returns a Purger for store. A non-positive interval selects
// DefaultPurgeInterval.
func NewPurger(store *RevocationStore, interval time.Duration, logger logrus.FieldLogger) *Purger {
	return newPurger(store, interval, logger)
}

func newPurger(store expiredDeleter, interval time.Duration, logger logrus.FieldLogger) *Purger {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Purger{store: store, interval: interval, log: logger.WithField("component", "revocation-purger")}
}

// Run purges once immediately and then on every tick until ctx is done.
func (p *Purger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.purgeOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Purger) purgeOnce(ctx context.Context) {
	n, err := p.store.DeleteExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.WithError(err).Warn("purge expired revocations failed")
		}
		return
	}
	if n > 0 {
		p.log.WithField("deleted", n).Debug("purged expired revocations")
	}
}
