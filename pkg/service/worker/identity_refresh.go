package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/iris/pkg/domain/model"
	"github.com/secmon-lab/iris/pkg/utils/logging"
	"github.com/slack-go/slack"
)

// UserLister lists every user of the workspace (users.list)
type UserLister interface {
	ListUsers(ctx context.Context) ([]slack.User, error)
}

// IdentityStore receives refreshed profiles
type IdentityStore interface {
	Put(profile *model.UserProfile)
}

// IdentityRefreshWorker periodically overwrites the identity cache with the current
// user list so that long-lived entries do not go stale.
//
// Architecture assumptions:
// - Single server instance; every instance refreshes its own cache
type IdentityRefreshWorker struct {
	users    UserLister
	store    IdentityStore
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewIdentityRefreshWorker creates a new worker refreshing store from users
func NewIdentityRefreshWorker(users UserLister, store IdentityStore, interval time.Duration) *IdentityRefreshWorker {
	return &IdentityRefreshWorker{
		users:    users,
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background refresh loop. The initial refresh also runs in the
// background and does not block server startup.
func (w *IdentityRefreshWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("refresh interval must be positive", goerr.V("interval", w.interval))
	}

	logging.Default().Info("Identity refresh worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *IdentityRefreshWorker) Stop() {
	logging.Default().Info("Identity refresh worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Identity refresh worker stopped")
}

func (w *IdentityRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if _, err := w.Refresh(ctx); err != nil {
		logging.Default().Error("Initial identity refresh failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.Refresh(ctx); err != nil {
				logging.Default().Error("Identity refresh failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Identity refresh worker context cancelled")
			return
		}
	}
}

// Refresh performs a single refresh cycle and returns the number of stored profiles.
// Deleted users are skipped; existing entries are kept when the listing fails.
func (w *IdentityRefreshWorker) Refresh(ctx context.Context) (int, error) {
	startTime := time.Now()

	users, err := w.users.ListUsers(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list Slack users")
	}

	count := 0
	for i := range users {
		if users[i].Deleted {
			continue
		}
		w.store.Put(model.NewUserProfile(&users[i]))
		count++
	}

	logging.Default().Info("Identity refresh completed",
		"count", count,
		"duration", time.Since(startTime).String())

	return count, nil
}
