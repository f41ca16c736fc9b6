package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/auth"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/guildtools/dkpledger/internal/logging"
	"github.com/guildtools/dkpledger/internal/service/dkp"
)

type dkpService interface {
	Award(ctx context.Context, req dkp.AwardRequest) (*domain.Transaction, error)
	Spend(ctx context.Context, req dkp.SpendRequest) (*domain.Transaction, error)
	Adjust(ctx context.Context, req dkp.AdjustRequest) (*domain.Transaction, error)
	BulkAward(ctx context.Context, req dkp.BulkAwardRequest) (*dkp.BulkAwardResult, error)
	GetBalance(ctx context.Context, guildID, memberID uuid.UUID) (*domain.Balance, error)
	Leaderboard(ctx context.Context, guildID uuid.UUID, limit, offset int) ([]domain.LeaderboardEntry, int, error)
	Transactions(ctx context.Context, guildID uuid.UUID, f domain.TransactionFilter) ([]domain.Transaction, int, error)
}

type DKPHandler struct {
	dkp dkpService
}

func NewDKPHandler(dkpSvc dkpService) *DKPHandler {
	return &DKPHandler{dkp: dkpSvc}
}

type awardRequest struct {
	MemberID    string         `json:"member_id"`
	Amount      int64          `json:"amount"`
	Type        string         `json:"type"`
	Reason      *string        `json:"reason"`
	EventID     *string        `json:"event_id"`
	CharacterID *string        `json:"character_id"`
	Metadata    map[string]any `json:"metadata"`
}

func (r awardRequest) Validate() []FieldError {
	var errs []FieldError
	if _, err := uuid.Parse(r.MemberID); err != nil {
		errs = append(errs, FieldError{Field: "member_id", Message: "must be a valid uuid"})
	}
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if r.Type == "" {
		errs = append(errs, FieldError{Field: "type", Message: "required"})
	} else if !domain.TransactionType(r.Type).IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "unknown transaction type"})
	}
	if r.EventID != nil {
		if _, err := uuid.Parse(*r.EventID); err != nil {
			errs = append(errs, FieldError{Field: "event_id", Message: "must be a valid uuid"})
		}
	}
	if r.CharacterID != nil {
		if _, err := uuid.Parse(*r.CharacterID); err != nil {
			errs = append(errs, FieldError{Field: "character_id", Message: "must be a valid uuid"})
		}
	}
	return errs
}

type transactionDTO struct {
	ID           uuid.UUID  `json:"id"`
	MemberID     uuid.UUID  `json:"member_id"`
	CharacterID  *uuid.UUID `json:"character_id,omitempty"`
	Amount       int64      `json:"amount"`
	Type         string     `json:"type"`
	Reason       *string    `json:"reason,omitempty"`
	EventID      *uuid.UUID `json:"event_id,omitempty"`
	LootRecordID *uuid.UUID `json:"loot_record_id,omitempty"`
	AwardedBy    uuid.UUID  `json:"awarded_by"`
	Metadata     any        `json:"metadata,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	return transactionDTO{
		ID:           t.ID,
		MemberID:     t.MemberID,
		CharacterID:  t.CharacterID,
		Amount:       t.Amount,
		Type:         string(t.Type),
		Reason:       t.Reason,
		EventID:      t.EventID,
		LootRecordID: t.LootRecordID,
		AwardedBy:    t.AwardedBy,
		Metadata:     t.Metadata,
		CreatedAt:    t.CreatedAt,
	}
}

type balanceDTO struct {
	MemberID       uuid.UUID `json:"member_id"`
	CurrentBalance int64     `json:"current_balance"`
	LifetimeEarned int64     `json:"lifetime_earned"`
	LifetimeSpent  int64     `json:"lifetime_spent"`
	LastUpdated    time.Time `json:"last_updated"`
}

func (h *DKPHandler) Award(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req awardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	typ := domain.TransactionType(req.Type)
	meta, err := decodeAwardMetadata(typ, req.Metadata)
	if err != nil {
		RespondAppError(w, ErrMetadataMismatch, nil)
		return
	}

	t, err := h.dkp.Award(r.Context(), dkp.AwardRequest{
		GuildID:     actor.GuildID,
		MemberID:    uuid.MustParse(req.MemberID),
		Amount:      req.Amount,
		Type:        typ,
		Reason:      req.Reason,
		EventID:     parseOptionalUUID(req.EventID),
		CharacterID: parseOptionalUUID(req.CharacterID),
		Metadata:    meta,
		AwardedBy:   actor.UserID,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to award points", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toTransactionDTO(t))
}

type spendRequest struct {
	MemberID     string  `json:"member_id"`
	Amount       int64   `json:"amount"`
	Reason       *string `json:"reason"`
	LootRecordID *string `json:"loot_record_id"`
}

func (r spendRequest) Validate() []FieldError {
	var errs []FieldError
	if _, err := uuid.Parse(r.MemberID); err != nil {
		errs = append(errs, FieldError{Field: "member_id", Message: "must be a valid uuid"})
	}
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if r.LootRecordID != nil {
		if _, err := uuid.Parse(*r.LootRecordID); err != nil {
			errs = append(errs, FieldError{Field: "loot_record_id", Message: "must be a valid uuid"})
		}
	}
	return errs
}

func (h *DKPHandler) Spend(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	t, err := h.dkp.Spend(r.Context(), dkp.SpendRequest{
		GuildID:      actor.GuildID,
		MemberID:     uuid.MustParse(req.MemberID),
		Amount:       req.Amount,
		Reason:       req.Reason,
		LootRecordID: parseOptionalUUID(req.LootRecordID),
		AwardedBy:    actor.UserID,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientBalance) {
			logging.FromContext(r.Context()).Error("failed to spend points", "error", err)
		}
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toTransactionDTO(t))
}

type adjustRequest struct {
	MemberID string `json:"member_id"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
}

func (r adjustRequest) Validate() []FieldError {
	var errs []FieldError
	if _, err := uuid.Parse(r.MemberID); err != nil {
		errs = append(errs, FieldError{Field: "member_id", Message: "must be a valid uuid"})
	}
	if r.Reason == "" {
		errs = append(errs, FieldError{Field: "reason", Message: "required"})
	}
	return errs
}

func (h *DKPHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	t, err := h.dkp.Adjust(r.Context(), dkp.AdjustRequest{
		GuildID:   actor.GuildID,
		MemberID:  uuid.MustParse(req.MemberID),
		Amount:    req.Amount,
		Reason:    req.Reason,
		AwardedBy: actor.UserID,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to adjust points", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toTransactionDTO(t))
}

type bulkAwardRequest struct {
	MemberIDs []string `json:"member_ids"`
	Amount    int64    `json:"amount"`
	Type      string   `json:"type"`
	Reason    *string  `json:"reason"`
	EventID   *string  `json:"event_id"`
}

func (r bulkAwardRequest) Validate() []FieldError {
	var errs []FieldError
	if len(r.MemberIDs) == 0 {
		errs = append(errs, FieldError{Field: "member_ids", Message: "must not be empty"})
	}
	for _, id := range r.MemberIDs {
		if _, err := uuid.Parse(id); err != nil {
			errs = append(errs, FieldError{Field: "member_ids", Message: "all entries must be valid uuids"})
			break
		}
	}
	if r.Amount <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if r.Type == "" {
		errs = append(errs, FieldError{Field: "type", Message: "required"})
	} else if !domain.TransactionType(r.Type).IsValid() {
		errs = append(errs, FieldError{Field: "type", Message: "unknown transaction type"})
	}
	if r.EventID != nil {
		if _, err := uuid.Parse(*r.EventID); err != nil {
			errs = append(errs, FieldError{Field: "event_id", Message: "must be a valid uuid"})
		}
	}
	return errs
}

type bulkAwardResponse struct {
	Awarded         int         `json:"awarded"`
	FailedMemberIDs []uuid.UUID `json:"failed_member_ids,omitempty"`
}

func (h *DKPHandler) BulkAward(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req bulkAwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	memberIDs := make([]uuid.UUID, len(req.MemberIDs))
	for i, id := range req.MemberIDs {
		memberIDs[i] = uuid.MustParse(id)
	}

	result, err := h.dkp.BulkAward(r.Context(), dkp.BulkAwardRequest{
		GuildID:   actor.GuildID,
		MemberIDs: memberIDs,
		Amount:    req.Amount,
		Type:      domain.TransactionType(req.Type),
		Reason:    req.Reason,
		EventID:   parseOptionalUUID(req.EventID),
		AwardedBy: actor.UserID,
	})
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to bulk award points", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, bulkAwardResponse{
		Awarded:         result.Awarded,
		FailedMemberIDs: result.FailedMemberIDs,
	})
}

func (h *DKPHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	memberID, err := uuid.Parse(r.PathValue("memberId"))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	b, err := h.dkp.GetBalance(r.Context(), actor.GuildID, memberID)
	if err != nil {
		// A member with no transactions has no balance row yet
		if errors.Is(err, domain.ErrNotFound) {
			RespondSuccess(w, http.StatusOK, nil)
			return
		}
		logging.FromContext(r.Context()).Error("failed to get balance", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, balanceDTO{
		MemberID:       b.MemberID,
		CurrentBalance: b.CurrentBalance,
		LifetimeEarned: b.LifetimeEarned,
		LifetimeSpent:  b.LifetimeSpent,
		LastUpdated:    b.LastUpdated,
	})
}

type leaderboardEntryDTO struct {
	Rank           int       `json:"rank"`
	MemberID       uuid.UUID `json:"member_id"`
	DisplayName    string    `json:"display_name"`
	CurrentBalance int64     `json:"current_balance"`
	LifetimeEarned int64     `json:"lifetime_earned"`
	LifetimeSpent  int64     `json:"lifetime_spent"`
}

type pagedResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

func (h *DKPHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit, offset := parsePagination(r)
	entries, total, err := h.dkp.Leaderboard(r.Context(), actor.GuildID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load leaderboard", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]leaderboardEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = leaderboardEntryDTO{
			Rank:           e.Rank,
			MemberID:       e.MemberID,
			DisplayName:    e.DisplayName,
			CurrentBalance: e.CurrentBalance,
			LifetimeEarned: e.LifetimeEarned,
			LifetimeSpent:  e.LifetimeSpent,
		}
	}

	RespondSuccess(w, http.StatusOK, pagedResponse{Items: dtos, Total: total})
}

func (h *DKPHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit, offset := parsePagination(r)
	filter := domain.TransactionFilter{Limit: limit, Offset: offset}

	if v := r.URL.Query().Get("member_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "member_id", Message: "must be a valid uuid"}})
			return
		}
		filter.MemberID = &id
	}
	if v := r.URL.Query().Get("type"); v != "" {
		typ := domain.TransactionType(v)
		if !typ.IsValid() {
			RespondValidationError(w, []FieldError{{Field: "type", Message: "unknown transaction type"}})
			return
		}
		filter.Type = &typ
	}

	txs, total, err := h.dkp.Transactions(r.Context(), actor.GuildID, filter)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list transactions", "error", err)
		RespondDomainError(w, err)
		return
	}

	dtos := make([]transactionDTO, len(txs))
	for i := range txs {
		dtos[i] = toTransactionDTO(&txs[i])
	}

	RespondSuccess(w, http.StatusOK, pagedResponse{Items: dtos, Total: total})
}

// decodeAwardMetadata turns the loose JSON object of the request into the
// typed variant for the transaction type.
func decodeAwardMetadata(typ domain.TransactionType, raw map[string]any) (domain.Metadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return domain.UnmarshalMetadata(typ, b)
}

func parseOptionalUUID(s *string) *uuid.UUID {
	if s == nil {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}

func parsePagination(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	return limit, offset
}
