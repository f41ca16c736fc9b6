package dkp

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/config"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/guildtools/dkpledger/internal/repository"
)

type transactionRepo interface {
	Create(ctx context.Context, e repository.Execer, t *domain.Transaction) error
	CreateBatch(ctx context.Context, e repository.Execer, ts []domain.Transaction) error
	List(ctx context.Context, guildID uuid.UUID, f domain.TransactionFilter) ([]domain.Transaction, int, error)
}

type balanceRepo interface {
	ApplyDelta(ctx context.Context, e repository.Execer, guildID, memberID uuid.UUID, d domain.BalanceDelta) error
	SpendIfSufficient(ctx context.Context, tx *sql.Tx, guildID, memberID uuid.UUID, amount int64) (int64, error)
	Get(ctx context.Context, guildID, memberID uuid.UUID) (*domain.Balance, error)
	Leaderboard(ctx context.Context, guildID uuid.UUID, limit, offset int) ([]domain.LeaderboardEntry, int, error)
}

// Service owns the point ledger: every award, spend, and adjustment writes
// one immutable transaction row and applies the matching balance delta in
// the same database transaction.
type Service struct {
	transactions transactionRepo
	balances     balanceRepo
	db           *sql.DB
	config       *config.Config
}

func NewService(transactions transactionRepo, balances balanceRepo, db *sql.DB, cfg *config.Config) *Service {
	return &Service{
		transactions: transactions,
		balances:     balances,
		db:           db,
		config:       cfg,
	}
}

func (s *Service) GetBalance(ctx context.Context, guildID, memberID uuid.UUID) (*domain.Balance, error) {
	b, err := s.balances.Get(ctx, guildID, memberID)
	if err != nil {
		return nil, fmt.Errorf("GetBalance: %w", err)
	}
	return b, nil
}

func (s *Service) Leaderboard(ctx context.Context, guildID uuid.UUID, limit, offset int) ([]domain.LeaderboardEntry, int, error) {
	entries, total, err := s.balances.Leaderboard(ctx, guildID, clampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, 0, fmt.Errorf("Leaderboard: %w", err)
	}
	return entries, total, nil
}

func (s *Service) Transactions(ctx context.Context, guildID uuid.UUID, f domain.TransactionFilter) ([]domain.Transaction, int, error) {
	f.Limit = clampLimit(f.Limit)
	f.Offset = max(f.Offset, 0)

	if f.Type != nil && !f.Type.IsValid() {
		return nil, 0, fmt.Errorf("Transactions: %w", domain.ErrInvalidTransactionType)
	}

	txs, total, err := s.transactions.List(ctx, guildID, f)
	if err != nil {
		return nil, 0, fmt.Errorf("Transactions: %w", err)
	}
	return txs, total, nil
}

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
