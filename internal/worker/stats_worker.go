package worker

import (
	"context"
	"log/slog"

	"meet-vote/internal/domain/poll"
	"meet-vote/internal/metrics"
)

// VoteEvent is published after a vote submission commits.
type VoteEvent struct {
	PollID     int64
	Voter      string
	Selections []poll.Selection
}

type StatsWorker struct {
	Ch     <-chan VoteEvent
	logger *slog.Logger
	// processed is called after each event; tests use it to synchronize.
	processed func(VoteEvent)
}

func NewStatsWorker(ch <-chan VoteEvent, logger *slog.Logger) *StatsWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsWorker{Ch: ch, logger: logger}
}

// Run consumes events until ctx is done or the channel is closed.
func (w *StatsWorker) Run(ctx context.Context) {
	w.logger.Info("stats worker started")
	defer w.logger.Info("stats worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Ch:
			if !ok {
				return
			}
			w.handle(ev)
		}
	}
}

func (w *StatsWorker) handle(ev VoteEvent) {
	values := make([]string, 0, len(ev.Selections))
	for _, s := range ev.Selections {
		values = append(values, string(s.Value))
	}
	metrics.ObserveVote(values)

	w.logger.Info("vote recorded",
		"poll_id", ev.PollID,
		"voter", ev.Voter,
		"selections", len(ev.Selections),
	)
	if w.processed != nil {
		w.processed(ev)
	}
}
