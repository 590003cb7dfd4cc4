package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
)

// errNotStale skips an account that changed after it was listed.
var errNotStale = errors.New("twofactor: pending record is no longer stale")

// ReclaimPending returns Pending accounts older than mfa.pending_ttl_minutes
// to Unconfigured and reports how many were reclaimed. Per-account failures
// are logged and skipped.
func (s *Usecase) ReclaimPending(ctx context.Context) (int, error) {
	ctx, span := s.startSpan(ctx, "ReclaimPending")
	defer span.End()

	ttl := s.duration("mfa.pending_ttl_minutes", time.Minute, defaultPendingTTL)
	batch := defaultReclaimBatch
	if s.cfg != nil {
		if v := s.cfg.GetInt("mfa.reclaim_batch_size"); v > 0 {
			batch = v
		}
	}

	cutoff := s.clock.Now().Add(-ttl)
	ids, err := s.repoDB.ListStalePending(ctx, cutoff, batch)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list stale pending", "error", err)
		return 0, goerror.NewServer(err)
	}

	reclaimed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return reclaimed, err
		}

		err := s.withAccount(ctx, id, func(ctx context.Context) error {
			st, err := s.loadState(ctx, id)
			if err != nil {
				return err
			}

			if !st.State.Can(entity.ActionReclaim) || st.UpdatedAt.After(cutoff) {
				return errNotStale
			}

			if err := s.repoDB.SaveTwoFactorState(ctx, s.unconfigured(st), st.Version); err != nil {
				return s.persistErr(ctx, id, "reclaim pending two-factor", err)
			}
			return nil
		})
		if errors.Is(err, errNotStale) {
			continue
		}
		if err != nil {
			slog.WarnContext(ctx, "failed to reclaim pending two-factor", "account_id", id, "error", err)
			continue
		}

		reclaimed++
	}

	if reclaimed > 0 {
		slog.InfoContext(ctx, "reclaimed stale pending two-factor setups", "count", reclaimed)
	}

	return reclaimed, nil
}
