package dkp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/guildtools/dkpledger/internal/logging"
)

type BulkAwardRequest struct {
	GuildID   uuid.UUID
	MemberIDs []uuid.UUID
	Amount    int64
	Type      domain.TransactionType
	Reason    *string
	EventID   *uuid.UUID
	AwardedBy uuid.UUID
}

// BulkAwardResult reports partial application explicitly: members in
// FailedMemberIDs have a ledger row whose balance upsert did not land and
// need a manual adjustment.
type BulkAwardResult struct {
	Awarded         int
	FailedMemberIDs []uuid.UUID
}

// BulkAward grants the same amount to every listed member. The ledger rows
// go in as one batched insert; the balance upserts then run per member and
// are deliberately not one atomic unit across members. A failed upsert does
// not roll back earlier members, it is surfaced in the result instead.
func (s *Service) BulkAward(ctx context.Context, req BulkAwardRequest) (*BulkAwardResult, error) {
	log := logging.FromContext(ctx)

	if len(req.MemberIDs) == 0 {
		return nil, fmt.Errorf("BulkAward: %w", domain.ErrEmptyMemberList)
	}
	if err := s.validateAward(AwardRequest{
		GuildID: req.GuildID, Amount: req.Amount, Type: req.Type,
	}); err != nil {
		return nil, fmt.Errorf("BulkAward: %w", err)
	}

	now := time.Now().UTC()
	txs := make([]domain.Transaction, len(req.MemberIDs))
	for i, memberID := range req.MemberIDs {
		txs[i] = domain.Transaction{
			ID:        uuid.New(),
			GuildID:   req.GuildID,
			MemberID:  memberID,
			Amount:    req.Amount,
			Type:      req.Type,
			Reason:    req.Reason,
			EventID:   req.EventID,
			AwardedBy: req.AwardedBy,
			CreatedAt: now,
		}
	}

	if err := s.transactions.CreateBatch(ctx, s.db, txs); err != nil {
		return nil, fmt.Errorf("BulkAward: %w", err)
	}

	result := &BulkAwardResult{}
	delta := domain.BalanceDelta{Current: req.Amount, Earned: req.Amount}
	for _, memberID := range req.MemberIDs {
		if err := s.balances.ApplyDelta(ctx, s.db, req.GuildID, memberID, delta); err != nil {
			// The ledger row for this member exists without its balance
			// update; that is a correctness bug a later adjustment must fix.
			log.Error("bulk award balance update failed",
				"member_id", memberID,
				"amount", req.Amount,
				"error", err,
			)
			result.FailedMemberIDs = append(result.FailedMemberIDs, memberID)
			continue
		}
		result.Awarded++
	}

	log.Info("bulk award completed",
		"members", len(req.MemberIDs),
		"awarded", result.Awarded,
		"failed", len(result.FailedMemberIDs),
		"amount", req.Amount,
		"type", req.Type,
	)

	return result, nil
}
