package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	DeductionSkipReasonInsufficientBalance = "insufficient_balance"
	DeductionSkipReasonNoMemberLink        = "no_member_link"
)

// LootRecord is an externally-sourced loot drop. ImportHash is the
// caller-supplied fingerprint that makes batch imports idempotent per guild;
// manually recorded drops may leave it unset. CharacterID stays nil when the
// character name could not be resolved against the roster.
type LootRecord struct {
	ID            uuid.UUID
	GuildID       uuid.UUID
	CharacterName string
	CharacterID   *uuid.UUID
	ItemName      string
	Cost          *int64
	ImportSource  string
	ImportHash    *string
	EventID       *uuid.UUID
	Metadata      LootRecordMetadata
	AwardedBy     uuid.UUID
	CreatedAt     time.Time
}

// LootRecordMetadata flags a costed drop whose point deduction was skipped.
// The record itself always persists; accounting failures only annotate it.
type LootRecordMetadata struct {
	DKPNotDeducted       bool   `json:"dkpNotDeducted,omitempty"`
	DKPNotDeductedReason string `json:"dkpNotDeductedReason,omitempty"`
}
