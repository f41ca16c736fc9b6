package loot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/guildtools/dkpledger/internal/logging"
)

type ImportItem struct {
	ImportHash    string
	CharacterName string
	ItemName      string
	Cost          *int64
	EventID       *uuid.UUID
}

type ImportSummary struct {
	Imported    int
	Skipped     int
	DKPDeducted int
	DKPSkipped  int
}

// BulkImport reconciles a batch of externally-sourced loot drops. Items
// whose import hash was seen before, in an earlier batch or earlier in this
// one, are skipped; the first occurrence wins. Accepted items are written in
// one batched insert, then costed items are charged to the linked member
// where possible. A deduction that cannot happen never fails the import, it
// is recorded on the loot record and counted instead.
func (s *Service) BulkImport(ctx context.Context, guildID, actorID uuid.UUID, items []ImportItem, importSource string) (*ImportSummary, error) {
	log := logging.FromContext(ctx)

	if len(items) == 0 {
		return nil, fmt.Errorf("BulkImport: %w", domain.ErrEmptyBatch)
	}
	if len(items) > s.config.MaxImportBatchSize {
		return nil, fmt.Errorf("BulkImport: %d items, limit %d: %w",
			len(items), s.config.MaxImportBatchSize, domain.ErrBatchTooLarge)
	}

	byName, err := s.rosterByLowerName(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("BulkImport: %w", err)
	}

	hashes := make([]string, len(items))
	for i, item := range items {
		hashes[i] = item.ImportHash
	}
	seen, err := s.loot.ExistingHashes(ctx, guildID, hashes)
	if err != nil {
		return nil, fmt.Errorf("BulkImport: %w", err)
	}

	summary := &ImportSummary{}
	var accepted []ImportItem
	for _, item := range items {
		if _, dup := seen[item.ImportHash]; dup {
			summary.Skipped++
			continue
		}
		seen[item.ImportHash] = struct{}{}
		accepted = append(accepted, item)
	}

	if len(accepted) == 0 {
		log.Info("bulk import: nothing new", "items", len(items), "source", importSource)
		return summary, nil
	}

	now := time.Now().UTC()
	records := make([]domain.LootRecord, len(accepted))
	for i, item := range accepted {
		rec := domain.LootRecord{
			ID:            uuid.New(),
			GuildID:       guildID,
			CharacterName: item.CharacterName,
			ItemName:      item.ItemName,
			Cost:          item.Cost,
			ImportSource:  importSource,
			EventID:       item.EventID,
			AwardedBy:     actorID,
			CreatedAt:     now,
		}
		hash := item.ImportHash
		rec.ImportHash = &hash
		if c, ok := byName[strings.ToLower(item.CharacterName)]; ok {
			id := c.ID
			rec.CharacterID = &id
		}
		records[i] = rec
	}

	if err := s.loot.CreateBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("BulkImport: %w", err)
	}
	summary.Imported = len(records)

	for i := range records {
		s.deductOrFlag(ctx, &records[i], s.memberFor(&records[i], byName), actorID, importSource, summary)
	}

	log.Info("bulk import completed",
		"source", importSource,
		"imported", summary.Imported,
		"skipped", summary.Skipped,
		"dkp_deducted", summary.DKPDeducted,
		"dkp_skipped", summary.DKPSkipped,
	)

	return summary, nil
}

// deductOrFlag charges a costed record to its linked member, or annotates
// the record with why it could not. It returns the skip reason it flagged,
// or "" when the deduction happened or no cost was involved.
func (s *Service) deductOrFlag(ctx context.Context, rec *domain.LootRecord, memberID *uuid.UUID, actorID uuid.UUID, importSource string, summary *ImportSummary) string {
	log := logging.FromContext(ctx)

	if rec.Cost == nil || *rec.Cost <= 0 {
		return ""
	}

	if memberID == nil {
		summary.DKPSkipped++
		s.flagSkipped(ctx, rec, domain.DeductionSkipReasonNoMemberLink)
		return domain.DeductionSkipReasonNoMemberLink
	}

	_, err := s.dkp.Spend(ctx, spendForLoot(rec, *memberID, actorID, importSource))
	if err == nil {
		summary.DKPDeducted++
		return ""
	}

	summary.DKPSkipped++
	if errors.Is(err, domain.ErrInsufficientBalance) {
		s.flagSkipped(ctx, rec, domain.DeductionSkipReasonInsufficientBalance)
		return domain.DeductionSkipReasonInsufficientBalance
	}

	// Any other accounting failure still must not fail the record write.
	log.Error("loot deduction failed",
		"loot_record_id", rec.ID,
		"member_id", *memberID,
		"cost", *rec.Cost,
		"error", err,
	)
	return ""
}

func (s *Service) flagSkipped(ctx context.Context, rec *domain.LootRecord, reason string) {
	if err := s.loot.MarkDeductionSkipped(ctx, rec.GuildID, rec.ID, reason); err != nil {
		logging.FromContext(ctx).Error("failed to flag skipped deduction",
			"loot_record_id", rec.ID, "error", err)
	}
}

func (s *Service) memberFor(rec *domain.LootRecord, byName map[string]domain.Character) *uuid.UUID {
	if rec.CharacterID == nil {
		return nil
	}
	c, ok := byName[strings.ToLower(rec.CharacterName)]
	if !ok || c.ID != *rec.CharacterID {
		return nil
	}
	return c.MemberID
}

func (s *Service) rosterByLowerName(ctx context.Context, guildID uuid.UUID) (map[string]domain.Character, error) {
	chars, err := s.roster.ListCharacters(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("rosterByLowerName: %w", err)
	}

	byName := make(map[string]domain.Character, len(chars))
	for _, c := range chars {
		byName[strings.ToLower(c.Name)] = c
	}
	return byName, nil
}
