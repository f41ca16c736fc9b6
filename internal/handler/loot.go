package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/auth"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/guildtools/dkpledger/internal/logging"
	"github.com/guildtools/dkpledger/internal/service/loot"
)

type lootService interface {
	Record(ctx context.Context, guildID, actorID uuid.UUID, req loot.RecordRequest) (*domain.LootRecord, error)
	BulkImport(ctx context.Context, guildID, actorID uuid.UUID, items []loot.ImportItem, importSource string) (*loot.ImportSummary, error)
	List(ctx context.Context, guildID uuid.UUID, limit, offset int) ([]domain.LootRecord, int, error)
}

type LootHandler struct {
	loot lootService
}

func NewLootHandler(lootSvc lootService) *LootHandler {
	return &LootHandler{loot: lootSvc}
}

type recordLootRequest struct {
	CharacterID   *string `json:"character_id"`
	CharacterName string  `json:"character_name"`
	ItemName      string  `json:"item_name"`
	Cost          *int64  `json:"cost"`
	EventID       *string `json:"event_id"`
	ImportSource  string  `json:"import_source"`
	ImportHash    *string `json:"import_hash"`
	SkipDeduction bool    `json:"skip_deduction"`
}

func (r recordLootRequest) Validate() []FieldError {
	var errs []FieldError
	if r.ItemName == "" {
		errs = append(errs, FieldError{Field: "item_name", Message: "required"})
	}
	if r.CharacterName == "" && r.CharacterID == nil {
		errs = append(errs, FieldError{Field: "character_name", Message: "character_name or character_id required"})
	}
	if r.CharacterID != nil {
		if _, err := uuid.Parse(*r.CharacterID); err != nil {
			errs = append(errs, FieldError{Field: "character_id", Message: "must be a valid uuid"})
		}
	}
	if r.Cost != nil && *r.Cost < 0 {
		errs = append(errs, FieldError{Field: "cost", Message: "must not be negative"})
	}
	if r.EventID != nil {
		if _, err := uuid.Parse(*r.EventID); err != nil {
			errs = append(errs, FieldError{Field: "event_id", Message: "must be a valid uuid"})
		}
	}
	return errs
}

type lootRecordDTO struct {
	ID            uuid.UUID                 `json:"id"`
	CharacterID   *uuid.UUID                `json:"character_id,omitempty"`
	CharacterName string                    `json:"character_name"`
	ItemName      string                    `json:"item_name"`
	Cost          *int64                    `json:"cost,omitempty"`
	EventID       *uuid.UUID                `json:"event_id,omitempty"`
	ImportSource  string                    `json:"import_source,omitempty"`
	ImportHash    *string                   `json:"import_hash,omitempty"`
	Metadata      domain.LootRecordMetadata `json:"metadata"`
	CreatedAt     time.Time                 `json:"created_at"`
}

func toLootRecordDTO(rec *domain.LootRecord) lootRecordDTO {
	return lootRecordDTO{
		ID:            rec.ID,
		CharacterID:   rec.CharacterID,
		CharacterName: rec.CharacterName,
		ItemName:      rec.ItemName,
		Cost:          rec.Cost,
		EventID:       rec.EventID,
		ImportSource:  rec.ImportSource,
		ImportHash:    rec.ImportHash,
		Metadata:      rec.Metadata,
		CreatedAt:     rec.CreatedAt,
	}
}

func (h *LootHandler) Record(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req recordLootRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	rec, err := h.loot.Record(r.Context(), actor.GuildID, actor.UserID, loot.RecordRequest{
		CharacterID:   parseOptionalUUID(req.CharacterID),
		CharacterName: req.CharacterName,
		ItemName:      req.ItemName,
		Cost:          req.Cost,
		EventID:       parseOptionalUUID(req.EventID),
		ImportSource:  req.ImportSource,
		ImportHash:    req.ImportHash,
		SkipDeduction: req.SkipDeduction,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrCharacterNotFound) && !errors.Is(err, domain.ErrAmbiguousCharacter) {
			logging.FromContext(r.Context()).Error("failed to record loot", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toLootRecordDTO(rec))
}

type importItemRequest struct {
	ImportHash    string  `json:"import_hash"`
	CharacterName string  `json:"character_name"`
	ItemName      string  `json:"item_name"`
	Cost          *int64  `json:"cost"`
	EventID       *string `json:"event_id"`
}

type importLootRequest struct {
	Source string              `json:"source"`
	Items  []importItemRequest `json:"items"`
}

func (r importLootRequest) Validate() []FieldError {
	var errs []FieldError
	if len(r.Items) == 0 {
		errs = append(errs, FieldError{Field: "items", Message: "must not be empty"})
	}
	for _, item := range r.Items {
		if item.ImportHash == "" || item.CharacterName == "" || item.ItemName == "" {
			errs = append(errs, FieldError{Field: "items", Message: "every item needs import_hash, character_name and item_name"})
			break
		}
		if item.Cost != nil && *item.Cost < 0 {
			errs = append(errs, FieldError{Field: "items", Message: "cost must not be negative"})
			break
		}
		if item.EventID != nil {
			if _, err := uuid.Parse(*item.EventID); err != nil {
				errs = append(errs, FieldError{Field: "items", Message: "event_id must be a valid uuid"})
				break
			}
		}
	}
	return errs
}

type importSummaryDTO struct {
	Imported    int `json:"imported"`
	Skipped     int `json:"skipped"`
	DKPDeducted int `json:"dkp_deducted"`
	DKPSkipped  int `json:"dkp_skipped"`
}

func (h *LootHandler) Import(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req importLootRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	items := make([]loot.ImportItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = loot.ImportItem{
			ImportHash:    item.ImportHash,
			CharacterName: item.CharacterName,
			ItemName:      item.ItemName,
			Cost:          item.Cost,
			EventID:       parseOptionalUUID(item.EventID),
		}
	}

	source := req.Source
	if source == "" {
		source = "import"
	}

	summary, err := h.loot.BulkImport(r.Context(), actor.GuildID, actor.UserID, items, source)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to import loot", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, importSummaryDTO{
		Imported:    summary.Imported,
		Skipped:     summary.Skipped,
		DKPDeducted: summary.DKPDeducted,
		DKPSkipped:  summary.DKPSkipped,
	})
}

func (h *LootHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit, offset := parsePagination(r)
	recs, total, err := h.loot.List(r.Context(), actor.GuildID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list loot", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]lootRecordDTO, len(recs))
	for i := range recs {
		dtos[i] = toLootRecordDTO(&recs[i])
	}

	RespondSuccess(w, http.StatusOK, pagedResponse{Items: dtos, Total: total})
}
