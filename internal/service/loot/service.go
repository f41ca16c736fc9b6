package loot

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/guildtools/dkpledger/internal/config"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/guildtools/dkpledger/internal/service/dkp"
)

type lootRepo interface {
	Create(ctx context.Context, rec *domain.LootRecord) error
	CreateBatch(ctx context.Context, recs []domain.LootRecord) error
	ExistingHashes(ctx context.Context, guildID uuid.UUID, hashes []string) (map[string]struct{}, error)
	MarkDeductionSkipped(ctx context.Context, guildID, id uuid.UUID, reason string) error
	List(ctx context.Context, guildID uuid.UUID, limit, offset int) ([]domain.LootRecord, int, error)
}

type rosterRepo interface {
	ListCharacters(ctx context.Context, guildID uuid.UUID) ([]domain.Character, error)
	GetCharacter(ctx context.Context, guildID, id uuid.UUID) (*domain.Character, error)
	FindCharactersByName(ctx context.Context, guildID uuid.UUID, name string) ([]domain.Character, error)
}

type spender interface {
	Spend(ctx context.Context, req dkp.SpendRequest) (*domain.Transaction, error)
}

// Service reconciles externally-sourced loot into records and conditional
// point deductions. Its contract is asymmetric on purpose: the loot record
// write must succeed even when the accounting side cannot.
type Service struct {
	loot   lootRepo
	roster rosterRepo
	dkp    spender
	config *config.Config
}

func NewService(loot lootRepo, roster rosterRepo, dkpSvc spender, cfg *config.Config) *Service {
	return &Service{
		loot:   loot,
		roster: roster,
		dkp:    dkpSvc,
		config: cfg,
	}
}

func (s *Service) List(ctx context.Context, guildID uuid.UUID, limit, offset int) ([]domain.LootRecord, int, error) {
	if limit <= 0 {
		limit = 25
	}
	if limit > 100 {
		limit = 100
	}
	recs, total, err := s.loot.List(ctx, guildID, limit, max(offset, 0))
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	return recs, total, nil
}
