package dkp

import (
	"testing"

	"github.com/guildtools/dkpledger/internal/config"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/stretchr/testify/require"
)

func newServiceWithConfig() *Service {
	return &Service{
		config: &config.Config{
			MaxAwardAmount:     100_000,
			MaxImportBatchSize: 500,
		},
	}
}

func TestValidateAward(t *testing.T) {
	svc := newServiceWithConfig()

	tests := []struct {
		name    string
		req     AwardRequest
		wantErr error
	}{
		{
			name: "valid boss kill award",
			req:  AwardRequest{Amount: 50, Type: domain.TransactionTypeBossKill},
		},
		{
			name:    "amount zero",
			req:     AwardRequest{Amount: 0, Type: domain.TransactionTypeBossKill},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "amount negative",
			req:     AwardRequest{Amount: -50, Type: domain.TransactionTypeBossKill},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "amount over limit",
			req:     AwardRequest{Amount: 100_001, Type: domain.TransactionTypeBossKill},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "unknown type",
			req:     AwardRequest{Amount: 50, Type: domain.TransactionType("pvp_kill")},
			wantErr: domain.ErrInvalidTransactionType,
		},
		{
			name: "metadata matches type",
			req: AwardRequest{
				Amount:   50,
				Type:     domain.TransactionTypeBossKill,
				Metadata: domain.BossKillMetadata{BossName: "Ragnaros"},
			},
		},
		{
			name: "metadata kind mismatch",
			req: AwardRequest{
				Amount:   50,
				Type:     domain.TransactionTypeRaidAttendance,
				Metadata: domain.BossKillMetadata{BossName: "Ragnaros"},
			},
			wantErr: domain.ErrMetadataMismatch,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.validateAward(tc.req)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero uses default", 0, 25},
		{"negative uses default", -5, 25},
		{"in range kept", 40, 40},
		{"over max clamped", 500, 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, clampLimit(tc.limit))
		})
	}
}
