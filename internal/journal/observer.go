package journal

import (
	"context"
	"log/slog"
	"time"

	"gridsight/internal/logging"
	"gridsight/internal/pipeline"
)

// Observer adapts the store to the pipeline's observer interface. Journal
// writes must never stall or fail a transition, so each record gets a
// short timeout and errors are logged and dropped.
func (s *Store) Observer(logger *slog.Logger) pipeline.Observer {
	logger = logging.NewComponentLogger(logger, "journal")
	return pipeline.ObserverFunc(func(change pipeline.Change) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := s.RecordTransition(ctx, Transition{
			SessionID:  change.SessionID,
			SourcePath: change.Snapshot.SourcePath,
			From:       string(change.From),
			To:         string(change.To),
			Stage:      change.Stage,
			Payload:    change.Payload,
			ErrorMsg:   change.Snapshot.ErrorMsg,
			StartedAt:  change.Snapshot.StartedAt,
			DeadlineAt: change.Snapshot.DeadlineAt,
			At:         change.Timestamp,
		})
		if err != nil {
			logger.Error("journal write failed",
				logging.String(logging.FieldSessionID, change.SessionID),
				logging.Error(err),
			)
		}
	})
}
