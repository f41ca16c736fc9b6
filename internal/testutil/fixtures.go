package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/domain"
)

var OfficerUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func SeedGuild(t *testing.T, db *sql.DB, name string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO guilds (id, name) VALUES ($1, $2)`,
		id, name,
	)
	if err != nil {
		t.Fatalf("seed guild %s: %v", name, err)
	}
	return id
}

func SeedMember(t *testing.T, db *sql.DB, guildID uuid.UUID, displayName string) *domain.Member {
	t.Helper()

	m := &domain.Member{
		ID:          uuid.New(),
		GuildID:     guildID,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO members (id, guild_id, display_name, created_at) VALUES ($1, $2, $3, $4)`,
		m.ID, m.GuildID, m.DisplayName, m.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed member %s: %v", displayName, err)
	}
	return m
}

// SeedCharacter links the character to memberID when it is non-nil;
// a nil memberID seeds an unlinked roster entry.
func SeedCharacter(t *testing.T, db *sql.DB, guildID uuid.UUID, name, class string, memberID *uuid.UUID) *domain.Character {
	t.Helper()

	c := &domain.Character{
		ID:        uuid.New(),
		GuildID:   guildID,
		Name:      name,
		Class:     &class,
		MemberID:  memberID,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO characters (id, guild_id, name, class, member_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.GuildID, c.Name, c.Class, c.MemberID, c.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed character %s: %v", name, err)
	}
	return c
}

func SeedBalance(t *testing.T, db *sql.DB, guildID, memberID uuid.UUID, current, earned, spent int64) {
	t.Helper()

	_, err := db.Exec(
		`INSERT INTO dkp_balances (guild_id, member_id, current_balance, lifetime_earned, lifetime_spent, last_updated)
		 VALUES ($1, $2, $3, $4, $5, now())`,
		guildID, memberID, current, earned, spent,
	)
	if err != nil {
		t.Fatalf("seed balance for member %s: %v", memberID, err)
	}
}

func GetBalanceRow(t *testing.T, db *sql.DB, guildID, memberID uuid.UUID) (current, earned, spent int64) {
	t.Helper()

	err := db.QueryRow(
		`SELECT current_balance, lifetime_earned, lifetime_spent
		 FROM dkp_balances WHERE guild_id = $1 AND member_id = $2`,
		guildID, memberID,
	).Scan(&current, &earned, &spent)
	if err != nil {
		t.Fatalf("get balance row for member %s: %v", memberID, err)
	}
	return current, earned, spent
}

func BalanceRowExists(t *testing.T, db *sql.DB, guildID, memberID uuid.UUID) bool {
	t.Helper()

	var exists bool
	err := db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM dkp_balances WHERE guild_id = $1 AND member_id = $2)`,
		guildID, memberID,
	).Scan(&exists)
	if err != nil {
		t.Fatalf("check balance row for member %s: %v", memberID, err)
	}
	return exists
}

func CountTransactions(t *testing.T, db *sql.DB, guildID, memberID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM dkp_transactions WHERE guild_id = $1 AND member_id = $2`,
		guildID, memberID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for member %s: %v", memberID, err)
	}
	return count
}

func CountLootRecords(t *testing.T, db *sql.DB, guildID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM loot_records WHERE guild_id = $1`, guildID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count loot records: %v", err)
	}
	return count
}
