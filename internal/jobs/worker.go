package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDS-OurMemory/Server-sub001/internal/user"
)

// PushSender delivers one push message to a device token. The default
// implementation only logs; swapping in a real FCM client happens here.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, metadata map[string]string) error
}

type LogSender struct {
	Log *zap.SugaredLogger
}

func (s *LogSender) Send(_ context.Context, token, title, body string, _ map[string]string) error {
	s.Log.Infow("push delivered", "token", token, "title", title, "body", body)
	return nil
}

type Worker struct {
	ID     string
	Repo   *Repo
	DB     *gorm.DB
	Sender PushSender
	Log    *zap.SugaredLogger
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(800 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				w.Log.Errorw("worker claim", "err", err)
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	switch job.Type {
	case TypePushDispatch:
		w.handlePush(ctx, job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handlePush(ctx context.Context, job *Job) {
	var p PushPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}

	u, err := user.GetTx(w.DB, job.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// target deleted between enqueue and dispatch
			_ = w.Repo.MarkDone(job.ID)
			return
		}
		w.retry(job, "db read error")
		return
	}

	if !u.Push || u.PushToken == nil || *u.PushToken == "" {
		_ = w.Repo.MarkDone(job.ID)
		return
	}

	if err := w.Sender.Send(ctx, *u.PushToken, p.Title, p.Body, p.Metadata); err != nil {
		w.retry(job, err.Error())
		return
	}
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}
