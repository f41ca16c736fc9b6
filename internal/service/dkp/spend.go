package dkp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/guildtools/dkpledger/internal/logging"
)

type SpendRequest struct {
	GuildID      uuid.UUID
	MemberID     uuid.UUID
	Amount       int64
	Reason       *string
	LootRecordID *uuid.UUID
	Metadata     domain.Metadata
	AwardedBy    uuid.UUID
}

// Spend deducts a positive amount as a loot purchase. The sufficiency check
// and the decrement are one conditional UPDATE, so two concurrent spends
// can never both drain the same points; zero rows affected is the rejection.
func (s *Service) Spend(ctx context.Context, req SpendRequest) (*domain.Transaction, error) {
	log := logging.FromContext(ctx)

	if req.Amount <= 0 {
		return nil, fmt.Errorf("Spend: %w", domain.ErrInvalidAmount)
	}
	if req.Metadata != nil && req.Metadata.Kind() != domain.TransactionTypeLootPurchase {
		return nil, fmt.Errorf("Spend: %w", domain.ErrMetadataMismatch)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Spend: begin tx: %w", err)
	}
	defer tx.Rollback()

	newBalance, err := s.balances.SpendIfSufficient(ctx, tx, req.GuildID, req.MemberID, req.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return nil, fmt.Errorf("Spend: %w", s.insufficientBalance(ctx, req))
		}
		return nil, fmt.Errorf("Spend: %w", err)
	}

	t := &domain.Transaction{
		ID:           uuid.New(),
		GuildID:      req.GuildID,
		MemberID:     req.MemberID,
		Amount:       -req.Amount,
		Type:         domain.TransactionTypeLootPurchase,
		Reason:       req.Reason,
		LootRecordID: req.LootRecordID,
		AwardedBy:    req.AwardedBy,
		Metadata:     req.Metadata,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.transactions.Create(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("Spend: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Spend: commit: %w", err)
	}

	log.Info("points spent",
		"transaction_id", t.ID,
		"member_id", req.MemberID,
		"amount", req.Amount,
		"new_balance", newBalance,
	)

	return t, nil
}

// insufficientBalance re-reads the current balance purely for the error
// message; the rejection itself already happened atomically.
func (s *Service) insufficientBalance(ctx context.Context, req SpendRequest) error {
	current := int64(0)
	if b, err := s.balances.Get(ctx, req.GuildID, req.MemberID); err == nil {
		current = b.CurrentBalance
	}
	return &domain.InsufficientBalanceError{Current: current, Required: req.Amount}
}
