package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/lib/pq"
)

const lootColumns = `id, guild_id, character_name, character_id, item_name, cost,
	import_source, import_hash, event_id, metadata, awarded_by, created_at`

type LootRepository struct {
	db *sql.DB
}

func NewLootRepository(db *sql.DB) *LootRepository {
	return &LootRepository{db: db}
}

func (r *LootRepository) Create(ctx context.Context, rec *domain.LootRecord) error {
	if err := r.CreateBatch(ctx, []domain.LootRecord{*rec}); err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// CreateBatch inserts all records in one multi-row statement.
func (r *LootRepository) CreateBatch(ctx context.Context, recs []domain.LootRecord) error {
	if len(recs) == 0 {
		return nil
	}

	var (
		placeholders = make([]string, 0, len(recs))
		args         = make([]any, 0, len(recs)*12)
	)
	for i, rec := range recs {
		meta, err := json.Marshal(rec.Metadata)
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
			rec.ID, rec.GuildID, rec.CharacterName, rec.CharacterID, rec.ItemName, rec.Cost,
			rec.ImportSource, rec.ImportHash, rec.EventID, meta, rec.AwardedBy, rec.CreatedAt,
		)
	}

	query := `INSERT INTO loot_records (
		id, guild_id, character_name, character_id, item_name, cost,
		import_source, import_hash, event_id, metadata, awarded_by, created_at
	) VALUES ` + strings.Join(placeholders, ", ")

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("CreateBatch: %w", err)
	}
	return nil
}

// ExistingHashes returns which of the given import hashes are already
// present for the guild.
func (r *LootRepository) ExistingHashes(ctx context.Context, guildID uuid.UUID, hashes []string) (map[string]struct{}, error) {
	if len(hashes) == 0 {
		return map[string]struct{}{}, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT import_hash FROM loot_records
		WHERE guild_id = $1 AND import_hash = ANY($2)`,
		guildID, pq.Array(hashes),
	)
	if err != nil {
		return nil, fmt.Errorf("ExistingHashes: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{}, len(hashes))
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("ExistingHashes: scan: %w", err)
		}
		seen[h] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistingHashes: rows: %w", err)
	}
	return seen, nil
}

// MarkDeductionSkipped annotates a record whose point deduction did not
// happen. The record itself is untouched otherwise.
func (r *LootRepository) MarkDeductionSkipped(ctx context.Context, guildID, id uuid.UUID, reason string) error {
	meta, err := json.Marshal(domain.LootRecordMetadata{
		DKPNotDeducted:       true,
		DKPNotDeductedReason: reason,
	})
	if err != nil {
		return fmt.Errorf("MarkDeductionSkipped: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE loot_records SET metadata = metadata || $3::jsonb
		WHERE guild_id = $1 AND id = $2`,
		guildID, id, meta,
	)
	if err != nil {
		return fmt.Errorf("MarkDeductionSkipped: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("MarkDeductionSkipped: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("MarkDeductionSkipped: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *LootRepository) GetByID(ctx context.Context, guildID, id uuid.UUID) (*domain.LootRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+lootColumns+` FROM loot_records WHERE guild_id = $1 AND id = $2`,
		guildID, id,
	)
	rec, err := scanLootRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return rec, nil
}

func (r *LootRepository) List(ctx context.Context, guildID uuid.UUID, limit, offset int) ([]domain.LootRecord, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loot_records WHERE guild_id = $1`, guildID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("List: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+lootColumns+` FROM loot_records
		WHERE guild_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		guildID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var recs []domain.LootRecord
	for rows.Next() {
		rec, err := scanLootRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("List: scan: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("List: rows: %w", err)
	}
	return recs, total, nil
}

func scanLootRecord(s scanner) (*domain.LootRecord, error) {
	var (
		rec  domain.LootRecord
		meta []byte
	)
	err := s.Scan(
		&rec.ID, &rec.GuildID, &rec.CharacterName, &rec.CharacterID, &rec.ItemName, &rec.Cost,
		&rec.ImportSource, &rec.ImportHash, &rec.EventID, &meta, &rec.AwardedBy, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}
