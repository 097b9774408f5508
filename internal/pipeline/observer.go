package pipeline

import (
	"go.uber.org/zap"

	"archloom/loom/internal/track"
)

// Observer is notified exactly once per applied batch, after its last chunk
// has committed. Sequence numbers are monotonically increasing per pipeline;
// observers see batches in commit order.
type Observer interface {
	OnCommitted(records []track.ChangeRecord, seq uint64)
}

// LogObserver logs each applied batch. It is registered by default on
// pipelines built with a logger.
type LogObserver struct {
	Logger *zap.Logger
}

func (o *LogObserver) OnCommitted(records []track.ChangeRecord, seq uint64) {
	var added, modified, deleted int
	for _, r := range records {
		switch r.Status {
		case track.StatusAdded:
			added++
		case track.StatusModified:
			modified++
		case track.StatusDeleted:
			deleted++
		}
	}
	o.Logger.Info("batch applied",
		zap.Uint64("seq", seq),
		zap.Int("added", added),
		zap.Int("modified", modified),
		zap.Int("deleted", deleted))
}
