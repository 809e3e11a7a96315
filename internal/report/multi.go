package report

import (
	"context"

	"APKBackup/internal/logger"
)

// Multi writes every row to a primary sink and, best effort, to secondaries.
// Only primary failures are returned.
type Multi struct {
	primary     Sink
	secondaries []Sink
	logger      logger.Logger
}

// NewMulti fans rows out from primary to the given secondaries.
func NewMulti(log logger.Logger, primary Sink, secondaries ...Sink) *Multi {
	if log == nil {
		log = logger.NewStandardLogger()
	}
	kept := make([]Sink, 0, len(secondaries))
	for _, s := range secondaries {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Multi{primary: primary, secondaries: kept, logger: log}
}

// Append implements Sink.
func (m *Multi) Append(ctx context.Context, row Row) error {
	if err := m.primary.Append(ctx, row); err != nil {
		return err
	}
	for _, s := range m.secondaries {
		if err := s.Append(ctx, row); err != nil {
			m.logger.WarnContext(ctx, "Secondary audit sink rejected row",
				logger.String("app", row.AppName),
				logger.String("release_id", row.ReleaseID),
				logger.Error(err))
		}
	}
	return nil
}
