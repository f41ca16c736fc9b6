package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/domain"
)

const characterColumns = `id, guild_id, name, class, member_id, created_at`

// RosterRepository is a read-only view over the characters and members
// owned elsewhere; this service only resolves names and validates links.
type RosterRepository struct {
	db *sql.DB
}

func NewRosterRepository(db *sql.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

func (r *RosterRepository) ListCharacters(ctx context.Context, guildID uuid.UUID) ([]domain.Character, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE guild_id = $1`, guildID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListCharacters: %w", err)
	}
	defer rows.Close()

	var chars []domain.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCharacters: scan: %w", err)
		}
		chars = append(chars, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCharacters: rows: %w", err)
	}
	return chars, nil
}

func (r *RosterRepository) GetCharacter(ctx context.Context, guildID, id uuid.UUID) (*domain.Character, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE guild_id = $1 AND id = $2`,
		guildID, id,
	)
	c, err := scanCharacter(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetCharacter: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetCharacter: %w", err)
	}
	return c, nil
}

// FindCharactersByName matches the exact name, case-sensitive. Bulk import
// does its own case-insensitive matching over ListCharacters.
func (r *RosterRepository) FindCharactersByName(ctx context.Context, guildID uuid.UUID, name string) ([]domain.Character, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE guild_id = $1 AND name = $2`,
		guildID, name,
	)
	if err != nil {
		return nil, fmt.Errorf("FindCharactersByName: %w", err)
	}
	defer rows.Close()

	var chars []domain.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("FindCharactersByName: scan: %w", err)
		}
		chars = append(chars, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FindCharactersByName: rows: %w", err)
	}
	return chars, nil
}

func (r *RosterRepository) GetMember(ctx context.Context, guildID, id uuid.UUID) (*domain.Member, error) {
	var m domain.Member
	err := r.db.QueryRowContext(ctx,
		`SELECT id, guild_id, display_name, created_at FROM members
		WHERE guild_id = $1 AND id = $2`,
		guildID, id,
	).Scan(&m.ID, &m.GuildID, &m.DisplayName, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("GetMember: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetMember: %w", err)
	}
	return &m, nil
}

func scanCharacter(s scanner) (*domain.Character, error) {
	var c domain.Character
	err := s.Scan(&c.ID, &c.GuildID, &c.Name, &c.Class, &c.MemberID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
