// Package notify is the fire-and-forget notification capability the
// engine emits into. Delivery failures are logged by the collaborator
// and never surfaced to callers.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/KDS-OurMemory/Server-sub001/internal/jobs"
)

type Notifier interface {
	Notify(ctx context.Context, userID uint64, title, body string, metadata map[string]string)
}

// Queue durably enqueues a PUSH_DISPATCH job; the jobs worker picks it
// up and delivers it out of band.
type Queue struct {
	Repo *jobs.Repo
	Log  *zap.SugaredLogger
}

func (q *Queue) Notify(_ context.Context, userID uint64, title, body string, metadata map[string]string) {
	err := q.Repo.EnqueuePush(userID, jobs.PushPayload{
		Title:    title,
		Body:     body,
		Metadata: metadata,
	})
	if err != nil {
		q.Log.Errorw("enqueue push", "user", userID, "title", title, "err", err)
	}
}

// Log notifier for tests and local runs without a worker.
type Log struct {
	Log *zap.SugaredLogger
}

func (l *Log) Notify(_ context.Context, userID uint64, title, body string, _ map[string]string) {
	l.Log.Infow("notify", "user", userID, "title", title, "body", body)
}
