package engine

import (
	"time"

	"go.uber.org/zap"
)

// retentionInterval is how often old evaluation rows are pruned.
const retentionInterval = time.Hour

// Prune deletes evaluation rows older than the retention period.
func (e *Engine) Prune() (int64, error) {
	if e.DB == nil || e.opts.Retention <= 0 {
		return 0, nil
	}
	return e.DB.PruneEvaluations(time.Now().Add(-e.opts.Retention))
}

func (e *Engine) prune() {
	if n, err := e.Prune(); err != nil {
		e.log.Warn("retention prune", zap.Error(err))
	} else if n > 0 {
		e.log.Info("retention: pruned evaluations", zap.Int64("rows", n))
	}
}

// StartRetentionTimer prunes on startup and then hourly until Stop.
// Drift state is never touched here.
func (e *Engine) StartRetentionTimer() {
	if e.DB == nil || e.opts.Retention <= 0 {
		return
	}
	e.prune()

	go func() {
		ticker := time.NewTicker(retentionInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.prune()
			case <-e.stopCh:
				return
			}
		}
	}()
}
