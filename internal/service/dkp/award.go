package dkp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/guildtools/dkpledger/internal/logging"
)

type AwardRequest struct {
	GuildID     uuid.UUID
	MemberID    uuid.UUID
	Amount      int64
	Type        domain.TransactionType
	Reason      *string
	EventID     *uuid.UUID
	CharacterID *uuid.UUID
	Metadata    domain.Metadata
	AwardedBy   uuid.UUID
}

// Award grants a positive amount of points to one member. The ledger insert
// and the balance upsert commit as one unit; a failure of either leaves no
// trace of the other.
func (s *Service) Award(ctx context.Context, req AwardRequest) (*domain.Transaction, error) {
	log := logging.FromContext(ctx)

	if err := s.validateAward(req); err != nil {
		return nil, fmt.Errorf("Award: %w", err)
	}

	t := &domain.Transaction{
		ID:          uuid.New(),
		GuildID:     req.GuildID,
		MemberID:    req.MemberID,
		CharacterID: req.CharacterID,
		Amount:      req.Amount,
		Type:        req.Type,
		Reason:      req.Reason,
		EventID:     req.EventID,
		AwardedBy:   req.AwardedBy,
		Metadata:    req.Metadata,
		CreatedAt:   time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Award: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.transactions.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("Award: %w", err)
	}

	delta := domain.BalanceDelta{Current: req.Amount, Earned: req.Amount}
	if err := s.balances.ApplyDelta(ctx, tx, req.GuildID, req.MemberID, delta); err != nil {
		return nil, fmt.Errorf("Award: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Award: commit: %w", err)
	}

	log.Info("points awarded",
		"transaction_id", t.ID,
		"member_id", req.MemberID,
		"amount", req.Amount,
		"type", req.Type,
	)

	return t, nil
}

func (s *Service) validateAward(req AwardRequest) error {
	if req.Amount <= 0 {
		return fmt.Errorf("validateAward: %w", domain.ErrInvalidAmount)
	}
	if req.Amount > s.config.MaxAwardAmount {
		return fmt.Errorf("validateAward: amount %d exceeds limit %d: %w",
			req.Amount, s.config.MaxAwardAmount, domain.ErrInvalidAmount)
	}
	if !req.Type.IsValid() {
		return fmt.Errorf("validateAward: %q: %w", req.Type, domain.ErrInvalidTransactionType)
	}
	if req.Metadata != nil && req.Metadata.Kind() != req.Type {
		return fmt.Errorf("validateAward: %w", domain.ErrMetadataMismatch)
	}
	return nil
}
