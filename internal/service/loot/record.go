package loot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/guildtools/dkpledger/internal/service/dkp"
)

type RecordRequest struct {
	CharacterID   *uuid.UUID
	CharacterName string
	ItemName      string
	Cost          *int64
	EventID       *uuid.UUID
	ImportSource  string
	ImportHash    *string
	// SkipDeduction records the drop without charging anyone, even when a
	// cost is present.
	SkipDeduction bool
}

// Record writes a single loot drop. Without an explicit character id the
// name is matched exactly against the roster; an unmatched name is recorded
// with no character link, and a name shared by several characters is
// rejected rather than silently picking one. Cost handling then follows the
// same deduct-or-flag policy as bulk import.
func (s *Service) Record(ctx context.Context, guildID, actorID uuid.UUID, req RecordRequest) (*domain.LootRecord, error) {
	if req.ItemName == "" || req.CharacterName == "" && req.CharacterID == nil {
		return nil, fmt.Errorf("Record: %w", domain.ErrInvalidRequest)
	}

	character, err := s.resolveCharacter(ctx, guildID, req)
	if err != nil {
		return nil, fmt.Errorf("Record: %w", err)
	}

	rec := &domain.LootRecord{
		ID:            uuid.New(),
		GuildID:       guildID,
		CharacterName: req.CharacterName,
		ItemName:      req.ItemName,
		Cost:          req.Cost,
		ImportSource:  req.ImportSource,
		ImportHash:    req.ImportHash,
		EventID:       req.EventID,
		AwardedBy:     actorID,
		CreatedAt:     time.Now().UTC(),
	}

	var memberID *uuid.UUID
	if character != nil {
		id := character.ID
		rec.CharacterID = &id
		if rec.CharacterName == "" {
			rec.CharacterName = character.Name
		}
		memberID = character.MemberID
	}

	if err := s.loot.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("Record: %w", err)
	}

	if !req.SkipDeduction {
		summary := &ImportSummary{}
		if reason := s.deductOrFlag(ctx, rec, memberID, actorID, req.ImportSource, summary); reason != "" {
			// Reflect the flag the repository just wrote so callers see it
			// without a re-read.
			rec.Metadata = domain.LootRecordMetadata{
				DKPNotDeducted:       true,
				DKPNotDeductedReason: reason,
			}
		}
	}

	return rec, nil
}

func (s *Service) resolveCharacter(ctx context.Context, guildID uuid.UUID, req RecordRequest) (*domain.Character, error) {
	if req.CharacterID != nil {
		c, err := s.roster.GetCharacter(ctx, guildID, *req.CharacterID)
		if err != nil {
			return nil, fmt.Errorf("resolveCharacter: %w", domain.ErrCharacterNotFound)
		}
		return c, nil
	}

	matches, err := s.roster.FindCharactersByName(ctx, guildID, req.CharacterName)
	if err != nil {
		return nil, fmt.Errorf("resolveCharacter: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("resolveCharacter: %q: %w", req.CharacterName, domain.ErrAmbiguousCharacter)
	}
}

func spendForLoot(rec *domain.LootRecord, memberID, actorID uuid.UUID, importSource string) dkp.SpendRequest {
	recID := rec.ID
	reason := fmt.Sprintf("loot: %s", rec.ItemName)
	return dkp.SpendRequest{
		GuildID:      rec.GuildID,
		MemberID:     memberID,
		Amount:       *rec.Cost,
		Reason:       &reason,
		LootRecordID: &recID,
		Metadata: domain.LootPurchaseMetadata{
			ItemName:     rec.ItemName,
			ImportSource: importSource,
		},
		AwardedBy: actorID,
	}
}
