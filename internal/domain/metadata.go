package domain

import (
	"encoding/json"
	"fmt"
)

// Metadata is type-specific transaction detail. Each variant belongs to
// exactly one TransactionType; storage encodes it as a JSON object and
// decodes it back by the transaction's type, so an unconstrained key-value
// blob never leaks into the domain.
type Metadata interface {
	Kind() TransactionType
}

type LootPurchaseMetadata struct {
	ItemName     string `json:"item_name"`
	ImportSource string `json:"import_source,omitempty"`
}

func (LootPurchaseMetadata) Kind() TransactionType { return TransactionTypeLootPurchase }

type AdjustmentMetadata struct {
	AdjustmentReason string `json:"adjustment_reason"`
}

func (AdjustmentMetadata) Kind() TransactionType { return TransactionTypeAdjustment }

// DecayMetadata is reserved for a decay scheduler outside this service;
// the variant exists so stored decay rows stay decodable.
type DecayMetadata struct {
	DecayPercentage int64 `json:"decay_percentage"`
}

func (DecayMetadata) Kind() TransactionType { return TransactionTypeDecay }

type BossKillMetadata struct {
	BossName string `json:"boss_name"`
}

func (BossKillMetadata) Kind() TransactionType { return TransactionTypeBossKill }

type RaidAttendanceMetadata struct {
	RaidName string `json:"raid_name"`
}

func (RaidAttendanceMetadata) Kind() TransactionType { return TransactionTypeRaidAttendance }

type BonusMetadata struct {
	Note string `json:"note"`
}

func (BonusMetadata) Kind() TransactionType { return TransactionTypeBonus }

// MarshalMetadata encodes m for storage. A nil m encodes as nil, which the
// repository stores as SQL NULL.
func MarshalMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("MarshalMetadata: %w", err)
	}
	return b, nil
}

// UnmarshalMetadata decodes raw into the variant matching typ.
func UnmarshalMetadata(typ TransactionType, raw []byte) (Metadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var m Metadata
	switch typ {
	case TransactionTypeLootPurchase:
		m = &LootPurchaseMetadata{}
	case TransactionTypeAdjustment:
		m = &AdjustmentMetadata{}
	case TransactionTypeDecay:
		m = &DecayMetadata{}
	case TransactionTypeBossKill:
		m = &BossKillMetadata{}
	case TransactionTypeRaidAttendance:
		m = &RaidAttendanceMetadata{}
	case TransactionTypeBonus:
		m = &BonusMetadata{}
	default:
		return nil, fmt.Errorf("UnmarshalMetadata: %w: %s", ErrInvalidTransactionType, typ)
	}

	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("UnmarshalMetadata: %w", err)
	}
	return deref(m), nil
}

func deref(m Metadata) Metadata {
	switch v := m.(type) {
	case *LootPurchaseMetadata:
		return *v
	case *AdjustmentMetadata:
		return *v
	case *DecayMetadata:
		return *v
	case *BossKillMetadata:
		return *v
	case *RaidAttendanceMetadata:
		return *v
	case *BonusMetadata:
		return *v
	}
	return m
}
