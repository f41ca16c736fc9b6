package dkp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/guildtools/dkpledger/internal/logging"
)

type AdjustRequest struct {
	GuildID   uuid.UUID
	MemberID  uuid.UUID
	Amount    int64
	Reason    string
	AwardedBy uuid.UUID
}

// Adjust applies a signed officer correction. A zero amount still writes a
// ledger row: the correction was ordered even if its numeric effect is null.
// Positive amounts count toward lifetime earned, negative toward lifetime
// spent.
func (s *Service) Adjust(ctx context.Context, req AdjustRequest) (*domain.Transaction, error) {
	log := logging.FromContext(ctx)

	if req.Reason == "" {
		return nil, fmt.Errorf("Adjust: %w", domain.ErrReasonRequired)
	}

	t := &domain.Transaction{
		ID:        uuid.New(),
		GuildID:   req.GuildID,
		MemberID:  req.MemberID,
		Amount:    req.Amount,
		Type:      domain.TransactionTypeAdjustment,
		Reason:    &req.Reason,
		AwardedBy: req.AwardedBy,
		Metadata:  domain.AdjustmentMetadata{AdjustmentReason: req.Reason},
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Adjust: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.transactions.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("Adjust: %w", err)
	}

	delta := domain.BalanceDelta{Current: req.Amount}
	switch {
	case req.Amount > 0:
		delta.Earned = req.Amount
	case req.Amount < 0:
		delta.Spent = -req.Amount
	}
	if err := s.balances.ApplyDelta(ctx, tx, req.GuildID, req.MemberID, delta); err != nil {
		return nil, fmt.Errorf("Adjust: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Adjust: commit: %w", err)
	}

	log.Info("points adjusted",
		"transaction_id", t.ID,
		"member_id", req.MemberID,
		"amount", req.Amount,
		"reason", req.Reason,
	)

	return t, nil
}
