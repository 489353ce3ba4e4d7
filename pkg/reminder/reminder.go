// Package reminder implements the single background job named in spec
// §5: a daily tick that notifies signers on documents nearing their
// deadline. It is fire-and-forget and holds no cross-request state, the
// way the teacher's background validator loop runs off a ticker rather
// than a request goroutine.
package reminder

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/inkchain/esigner/internal/capability"
	"github.com/inkchain/esigner/pkg/database"
	"github.com/inkchain/esigner/pkg/notify"
)

// Job polls for documents nearing their deadline and notifies their
// outstanding signers. It is not given retry/backoff logic: reminder
// delivery is best-effort (SPEC_FULL.md §C.3).
type Job struct {
	db       *sql.DB
	repos    *database.Repositories
	notifier notify.Notifier
	clock    capability.Clock
	horizon  time.Duration
	interval time.Duration
	logger   *log.Logger
}

// New constructs a reminder Job. horizon is how far ahead of
// deadlineAt a document is considered "nearing" (config reminder_horizon,
// default 48h); interval is config reminder_interval (default 24h).
func New(db *sql.DB, repos *database.Repositories, notifier notify.Notifier, clock capability.Clock, horizon, interval time.Duration, logger *log.Logger) *Job {
	return &Job{db: db, repos: repos, notifier: notifier, clock: clock, horizon: horizon, interval: interval, logger: logger}
}

// Run ticks once per interval until ctx is cancelled, running one pass
// immediately on start.
func (j *Job) Run(ctx context.Context) {
	j.runOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *Job) runOnce(ctx context.Context) {
	deadline := sql.NullTime{Time: j.clock.Now().Add(j.horizon), Valid: true}
	docs, err := j.repos.Documents.ListNearingDeadline(ctx, deadline)
	if err != nil {
		j.logger.Printf("reminder: list documents nearing deadline: %v", err)
		return
	}

	for _, doc := range docs {
		signers, err := j.repos.Signers.ListByDocument(ctx, j.db, doc.ID)
		if err != nil {
			j.logger.Printf("reminder: list signers for document %s: %v", doc.ID, err)
			continue
		}
		var outstanding []string
		for _, s := range signers {
			if s.Status == database.SignerPending || s.Status == database.SignerViewed {
				outstanding = append(outstanding, s.Email)
			}
		}
		if len(outstanding) == 0 {
			continue
		}
		if err := j.notifier.SendReminder(ctx, notify.Reminder{DocumentID: doc.ID, Recipients: outstanding, DeadlineAt: doc.DeadlineAt.Time}); err != nil {
			j.logger.Printf("reminder: notify document %s: %v", doc.ID, err)
		}
	}
}
