package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionTypeRaidAttendance TransactionType = "raid_attendance"
	TransactionTypeBossKill       TransactionType = "boss_kill"
	TransactionTypeLootPurchase   TransactionType = "loot_purchase"
	TransactionTypeDecay          TransactionType = "decay"
	TransactionTypeAdjustment     TransactionType = "adjustment"
	TransactionTypeBonus          TransactionType = "bonus"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeRaidAttendance, TransactionTypeBossKill,
		TransactionTypeLootPurchase, TransactionTypeDecay,
		TransactionTypeAdjustment, TransactionTypeBonus:
		return true
	}
	return false
}

// Transaction is an append-only ledger row. Amount is signed: positive
// amounts are earned points, negative amounts are spent points. Rows are
// never updated or deleted after creation.
type Transaction struct {
	ID           uuid.UUID
	GuildID      uuid.UUID
	MemberID     uuid.UUID
	CharacterID  *uuid.UUID
	Amount       int64
	Type         TransactionType
	Reason       *string
	EventID      *uuid.UUID
	LootRecordID *uuid.UUID
	AwardedBy    uuid.UUID
	Metadata     Metadata
	CreatedAt    time.Time
}

type TransactionFilter struct {
	MemberID *uuid.UUID
	Type     *TransactionType
	Limit    int
	Offset   int
}
