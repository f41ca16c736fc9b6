package domain

import (
	"time"

	"github.com/google/uuid"
)

// Balance is the mutable aggregate derived from the transaction ledger,
// one row per (guild, member). CurrentBalance == LifetimeEarned -
// LifetimeSpent at all times; the row is maintained incrementally by
// storage-side arithmetic, never recomputed from the ledger.
type Balance struct {
	GuildID        uuid.UUID
	MemberID       uuid.UUID
	CurrentBalance int64
	LifetimeEarned int64
	LifetimeSpent  int64
	LastUpdated    time.Time
}

// BalanceDelta is an increment applied atomically to a Balance row.
// Current may be negative; Earned and Spent are always >= 0.
type BalanceDelta struct {
	Current int64
	Earned  int64
	Spent   int64
}

// LeaderboardEntry is a Balance joined with member identity for ranked reads.
type LeaderboardEntry struct {
	Rank           int
	MemberID       uuid.UUID
	DisplayName    string
	CurrentBalance int64
	LifetimeEarned int64
	LifetimeSpent  int64
}
