package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/domain"
)

const balanceColumns = `guild_id, member_id, current_balance, lifetime_earned,
	lifetime_spent, last_updated`

type BalanceRepository struct {
	db *sql.DB
}

func NewBalanceRepository(db *sql.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

// ApplyDelta adds a delta to a member's balance row, creating the row if no
// transaction has touched the member before. The arithmetic happens inside
// the upsert, so concurrent deltas against the same member never lose
// updates.
func (r *BalanceRepository) ApplyDelta(ctx context.Context, e Execer, guildID, memberID uuid.UUID, d domain.BalanceDelta) error {
	_, err := e.ExecContext(ctx,
		`INSERT INTO dkp_balances (guild_id, member_id, current_balance, lifetime_earned, lifetime_spent, last_updated)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (guild_id, member_id) DO UPDATE SET
			current_balance = dkp_balances.current_balance + EXCLUDED.current_balance,
			lifetime_earned = dkp_balances.lifetime_earned + EXCLUDED.lifetime_earned,
			lifetime_spent = dkp_balances.lifetime_spent + EXCLUDED.lifetime_spent,
			last_updated = now()`,
		guildID, memberID, d.Current, d.Earned, d.Spent,
	)
	if err != nil {
		return fmt.Errorf("ApplyDelta: %w", err)
	}
	return nil
}

// SpendIfSufficient is the conditional counterpart of ApplyDelta: it
// subtracts amount only when the current balance covers it, in a single
// statement. Zero rows affected (including a missing row, which is a zero
// balance) means the spend was rejected; no separate read precedes the
// write, so concurrent spends cannot overdraw.
func (r *BalanceRepository) SpendIfSufficient(ctx context.Context, tx *sql.Tx, guildID, memberID uuid.UUID, amount int64) (int64, error) {
	var newBalance int64
	err := tx.QueryRowContext(ctx,
		`UPDATE dkp_balances SET
			current_balance = current_balance - $3,
			lifetime_spent = lifetime_spent + $3,
			last_updated = now()
		WHERE guild_id = $1 AND member_id = $2 AND current_balance >= $3
		RETURNING current_balance`,
		guildID, memberID, amount,
	).Scan(&newBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("SpendIfSufficient: %w", domain.ErrInsufficientBalance)
	}
	if err != nil {
		return 0, fmt.Errorf("SpendIfSufficient: %w", err)
	}
	return newBalance, nil
}

func (r *BalanceRepository) Get(ctx context.Context, guildID, memberID uuid.UUID) (*domain.Balance, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+balanceColumns+` FROM dkp_balances WHERE guild_id = $1 AND member_id = $2`,
		guildID, memberID,
	)
	b, err := scanBalance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return b, nil
}

func (r *BalanceRepository) Leaderboard(ctx context.Context, guildID uuid.UUID, limit, offset int) ([]domain.LeaderboardEntry, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dkp_balances WHERE guild_id = $1`, guildID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("Leaderboard: count: %w", err)
	}

	// member_id breaks balance ties so pagination is deterministic
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.member_id, m.display_name, b.current_balance, b.lifetime_earned, b.lifetime_spent
		FROM dkp_balances b
		JOIN members m ON m.id = b.member_id AND m.guild_id = b.guild_id
		WHERE b.guild_id = $1
		ORDER BY b.current_balance DESC, b.member_id
		LIMIT $2 OFFSET $3`,
		guildID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("Leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.MemberID, &e.DisplayName, &e.CurrentBalance, &e.LifetimeEarned, &e.LifetimeSpent); err != nil {
			return nil, 0, fmt.Errorf("Leaderboard: scan: %w", err)
		}
		e.Rank = offset + len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("Leaderboard: rows: %w", err)
	}
	return entries, total, nil
}

func scanBalance(s scanner) (*domain.Balance, error) {
	var b domain.Balance
	err := s.Scan(
		&b.GuildID, &b.MemberID, &b.CurrentBalance,
		&b.LifetimeEarned, &b.LifetimeSpent, &b.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
