package enhance

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/store"
)

// DefaultStaleAge is how long an in-progress claim may go without completing
// before the sweep considers its owner crashed.
const DefaultStaleAge = time.Hour

// Sweep resets prospects stuck in the in-progress state. Enhancement claims
// live only in the database, so a crashed or restarted process leaves its
// claimed records orphaned until swept.
type Sweep struct {
	store store.Store
	log   *zap.Logger
}

func NewSweep(st store.Store) *Sweep {
	return &Sweep{store: st, log: zap.L().Named("cleanup")}
}

// Run resets in-progress prospects whose claim is older than the threshold,
// clearing the started timestamp and owner. A non-positive threshold resets
// every in-progress prospect.
func (s *Sweep) Run(ctx context.Context, olderThan time.Duration) (int, error) {
	n, err := s.store.ResetStaleInProgress(ctx, olderThan)
	if err != nil {
		return 0, eris.Wrap(err, "cleanup: reset stale prospects")
	}
	if n > 0 {
		s.log.Info("reset stale in-progress prospects",
			zap.Int("count", n),
			zap.Duration("older_than", olderThan))
	}
	return n, nil
}

// OnStartup resets all in-progress prospects unconditionally. No run can be
// active when the process is starting, so any claim found is stale.
func (s *Sweep) OnStartup(ctx context.Context) (int, error) {
	return s.Run(ctx, 0)
}
