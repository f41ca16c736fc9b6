package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/domain"
)

const transactionColumns = `id, guild_id, member_id, character_id, amount, type,
	reason, event_id, loot_record_id, awarded_by, metadata, created_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, e Execer, t *domain.Transaction) error {
	meta, err := domain.MarshalMetadata(t.Metadata)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	_, err = e.ExecContext(ctx,
		`INSERT INTO dkp_transactions (
			id, guild_id, member_id, character_id, amount, type,
			reason, event_id, loot_record_id, awarded_by, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.GuildID, t.MemberID, t.CharacterID, t.Amount, t.Type,
		t.Reason, t.EventID, t.LootRecordID, t.AwardedBy, nullableJSON(meta), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// CreateBatch inserts all transactions in one multi-row statement.
func (r *TransactionRepository) CreateBatch(ctx context.Context, e Execer, ts []domain.Transaction) error {
	if len(ts) == 0 {
		return nil
	}

	var (
		placeholders = make([]string, 0, len(ts))
		args         = make([]any, 0, len(ts)*12)
	)
	for i, t := range ts {
		meta, err := domain.MarshalMetadata(t.Metadata)
		if err != nil {
			return fmt.Errorf("CreateBatch: %w", err)
		}
		base := i * 12
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11, base+12,
		))
		args = append(args,
			t.ID, t.GuildID, t.MemberID, t.CharacterID, t.Amount, t.Type,
			t.Reason, t.EventID, t.LootRecordID, t.AwardedBy, nullableJSON(meta), t.CreatedAt,
		)
	}

	query := `INSERT INTO dkp_transactions (
		id, guild_id, member_id, character_id, amount, type,
		reason, event_id, loot_record_id, awarded_by, metadata, created_at
	) VALUES ` + strings.Join(placeholders, ", ")

	if _, err := e.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("CreateBatch: %w", err)
	}
	return nil
}

func (r *TransactionRepository) List(ctx context.Context, guildID uuid.UUID, f domain.TransactionFilter) ([]domain.Transaction, int, error) {
	where := []string{"guild_id = $1"}
	args := []any{guildID}

	if f.MemberID != nil {
		args = append(args, *f.MemberID)
		where = append(where, fmt.Sprintf("member_id = $%d", len(args)))
	}
	if f.Type != nil {
		args = append(args, *f.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dkp_transactions WHERE `+cond, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("List: count: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM dkp_transactions
		WHERE `+cond+`
		ORDER BY created_at DESC, id
		LIMIT $`+fmt.Sprint(len(args)-1)+` OFFSET $`+fmt.Sprint(len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("List: scan: %w", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("List: rows: %w", err)
	}
	return txs, total, nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var (
		t    domain.Transaction
		meta []byte
	)
	err := s.Scan(
		&t.ID, &t.GuildID, &t.MemberID, &t.CharacterID, &t.Amount, &t.Type,
		&t.Reason, &t.EventID, &t.LootRecordID, &t.AwardedBy, &meta, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Metadata, err = domain.UnmarshalMetadata(t.Type, meta)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
