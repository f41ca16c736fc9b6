package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataRoundTrip(t *testing.T) {
	raw, err := MarshalMetadata(BossKillMetadata{BossName: "Nefarian"})
	require.NoError(t, err)

	m, err := UnmarshalMetadata(TransactionTypeBossKill, raw)
	require.NoError(t, err)
	assert.Equal(t, BossKillMetadata{BossName: "Nefarian"}, m)
}

func TestMarshalMetadata_NilIsNull(t *testing.T) {
	raw, err := MarshalMetadata(nil)
	require.NoError(t, err)
	assert.Nil(t, raw)

	m, err := UnmarshalMetadata(TransactionTypeBonus, nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestUnmarshalMetadata_UnknownType(t *testing.T) {
	_, err := UnmarshalMetadata(TransactionType("pvp_kill"), []byte(`{}`))
	require.ErrorIs(t, err, ErrInvalidTransactionType)
}

func TestTransactionTypeIsValid(t *testing.T) {
	for _, typ := range []TransactionType{
		TransactionTypeRaidAttendance,
		TransactionTypeBossKill,
		TransactionTypeLootPurchase,
		TransactionTypeDecay,
		TransactionTypeAdjustment,
		TransactionTypeBonus,
	} {
		assert.True(t, typ.IsValid(), string(typ))
	}
	assert.False(t, TransactionType("").IsValid())
	assert.False(t, TransactionType("pvp_kill").IsValid())
}
