// internal/app/system/workers/janitor.go
package workers

import (
	"context"
	"sync"
	"time"

	membershipstore "github.com/dalemusser/gatherhub/internal/app/store/memberships"
	tokenstore "github.com/dalemusser/gatherhub/internal/app/store/tokens"
	userstore "github.com/dalemusser/gatherhub/internal/app/store/users"
	"github.com/dalemusser/gatherhub/internal/app/system/paging"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Janitor is a background worker that prunes expired refresh tokens and
// sweeps memberships left behind by deleted accounts.
type Janitor struct {
	memberships *membershipstore.Store
	users       *userstore.Store
	tokens      *tokenstore.Store
	log         *zap.Logger
	interval    time.Duration
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewJanitor creates the janitor. interval is how often a sweep runs
// (e.g. 15 minutes).
func NewJanitor(memberships *membershipstore.Store, users *userstore.Store, tokens *tokenstore.Store, logger *zap.Logger, interval time.Duration) *Janitor {
	return &Janitor{
		memberships: memberships,
		users:       users,
		tokens:      tokens,
		log:         logger,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *Janitor) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("janitor started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *Janitor) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("janitor stopped")
}

func (w *Janitor) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one janitor pass. Exported so operators can trigger it
// out of band.
func (w *Janitor) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log := w.log.With(zap.String("sweep_id", uuid.NewString()))

	pruned, err := w.tokens.PruneExpired(ctx)
	if err != nil {
		log.Error("failed to prune expired refresh tokens", zap.Error(err))
	} else if pruned > 0 {
		log.Info("pruned expired refresh tokens", zap.Int64("count", pruned))
	}

	removed, err := w.sweepOrphanedMemberships(ctx)
	if err != nil {
		log.Error("failed to sweep orphaned memberships", zap.Error(err))
	} else if removed > 0 {
		log.Info("swept orphaned memberships", zap.Int64("count", removed))
	}
}

// sweepOrphanedMemberships deletes membership rows whose user no longer
// exists.
func (w *Janitor) sweepOrphanedMemberships(ctx context.Context) (int64, error) {
	ids, err := w.memberships.DistinctUserIDs(ctx)
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, chunk := range paging.ChunkIn(ids) {
		users, err := w.users.ListByIDs(ctx, chunk)
		if err != nil {
			return removed, err
		}
		existing := make(map[primitive.ObjectID]bool, len(users))
		for _, u := range users {
			existing[u.ID] = true
		}
		for _, id := range chunk {
			if existing[id] {
				continue
			}
			n, err := w.memberships.DeleteByUser(ctx, id)
			if err != nil {
				return removed, err
			}
			removed += n
		}
	}
	return removed, nil
}
