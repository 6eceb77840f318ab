// AngelaMos | 2026
// keeper.go

// Package keeper is the in-process keeper: a cron loop that finds
// holders whose payout gate has opened and advances them. Anyone on
// the outside can do the same through the disburse endpoint; running
// one locally just means nobody's payout stalls for lack of callers.
package keeper

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/angelamos/nestfund/internal/core"
	"github.com/angelamos/nestfund/internal/payout"
)

type Keeper struct {
	cron      *cron.Cron
	payouts   *payout.Service
	batchSize int
	logger    *slog.Logger
}

func New(
	payouts *payout.Service,
	batchSize int,
	logger *slog.Logger,
) *Keeper {
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Keeper{
		cron:      cron.New(cron.WithSeconds()),
		payouts:   payouts,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (k *Keeper) Register(schedule string) error {
	if _, err := k.cron.AddFunc(schedule, k.runOnce); err != nil {
		return err
	}
	return nil
}

func (k *Keeper) Start() {
	k.cron.Start()
	k.logger.Info("keeper started")
}

func (k *Keeper) Stop() {
	<-k.cron.Stop().Done()
	k.logger.Info("keeper stopped")
}

func (k *Keeper) runOnce() {
	ctx := context.Background()

	due, err := k.payouts.DueHolders(ctx, k.batchSize)
	if err != nil {
		k.logger.Error("keeper: list due holders", "error", err)
		return
	}

	for _, holderID := range due {
		amount, remaining, err := k.payouts.Disburse(ctx, holderID)
		if err != nil {
			// Races with external keepers and in-flight holder
			// operations are expected; only real faults are errors.
			if errors.Is(err, core.ErrTooEarly) ||
				errors.Is(err, core.ErrReentrantCall) ||
				errors.Is(err, core.ErrNoPaymentsRemaining) {
				continue
			}
			k.logger.Error("keeper: disburse",
				"holder_id", holderID,
				"error", err,
			)
			continue
		}

		k.logger.Info("keeper: payment sent",
			"holder_id", holderID,
			"amount", amount,
			"payments_remaining", remaining,
		)
	}
}
