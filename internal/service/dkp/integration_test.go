package dkp_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildtools/dkpledger/internal/config"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/guildtools/dkpledger/internal/repository"
	"github.com/guildtools/dkpledger/internal/service/dkp"
	"github.com/guildtools/dkpledger/internal/testutil"
)

func setupDKPService(t *testing.T, db *sql.DB) *dkp.Service {
	t.Helper()
	return dkp.NewService(
		repository.NewTransactionRepository(db),
		repository.NewBalanceRepository(db),
		db,
		&config.Config{
			MaxAwardAmount:     100_000,
			MaxImportBatchSize: 500,
		},
	)
}

func TestAward_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	member := testutil.SeedMember(t, db, guildID, "Thrall")

	first, err := svc.Award(ctx, dkp.AwardRequest{
		GuildID:   guildID,
		MemberID:  member.ID,
		Amount:    50,
		Type:      domain.TransactionTypeRaidAttendance,
		AwardedBy: testutil.OfficerUserID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), first.Amount)
	assert.Equal(t, domain.TransactionTypeRaidAttendance, first.Type)

	_, err = svc.Award(ctx, dkp.AwardRequest{
		GuildID:   guildID,
		MemberID:  member.ID,
		Amount:    30,
		Type:      domain.TransactionTypeBossKill,
		Metadata:  domain.BossKillMetadata{BossName: "Onyxia"},
		AwardedBy: testutil.OfficerUserID,
	})
	require.NoError(t, err)

	current, earned, spent := testutil.GetBalanceRow(t, db, guildID, member.ID)
	assert.Equal(t, int64(80), current)
	assert.Equal(t, int64(80), earned)
	assert.Equal(t, int64(0), spent)

	assert.Equal(t, 2, testutil.CountTransactions(t, db, guildID, member.ID))
}

func TestAward_InvalidAmountLeavesNoTrace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	member := testutil.SeedMember(t, db, guildID, "Jaina")

	_, err := svc.Award(ctx, dkp.AwardRequest{
		GuildID:   guildID,
		MemberID:  member.ID,
		Amount:    -10,
		Type:      domain.TransactionTypeBonus,
		AwardedBy: testutil.OfficerUserID,
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	assert.Equal(t, 0, testutil.CountTransactions(t, db, guildID, member.ID))
	assert.False(t, testutil.BalanceRowExists(t, db, guildID, member.ID))
}

func TestSpend_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	member := testutil.SeedMember(t, db, guildID, "Rexxar")
	testutil.SeedBalance(t, db, guildID, member.ID, 150, 150, 0)

	tx, err := svc.Spend(ctx, dkp.SpendRequest{
		GuildID:   guildID,
		MemberID:  member.ID,
		Amount:    100,
		Metadata:  domain.LootPurchaseMetadata{ItemName: "Thunderfury"},
		AwardedBy: testutil.OfficerUserID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-100), tx.Amount)
	assert.Equal(t, domain.TransactionTypeLootPurchase, tx.Type)

	current, earned, spent := testutil.GetBalanceRow(t, db, guildID, member.ID)
	assert.Equal(t, int64(50), current)
	assert.Equal(t, int64(150), earned)
	assert.Equal(t, int64(100), spent)
}

func TestSpend_InsufficientBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	member := testutil.SeedMember(t, db, guildID, "Vol'jin")
	testutil.SeedBalance(t, db, guildID, member.ID, 150, 150, 0)

	_, err := svc.Spend(ctx, dkp.SpendRequest{
		GuildID:   guildID,
		MemberID:  member.ID,
		Amount:    200,
		AwardedBy: testutil.OfficerUserID,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	var insufficient *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(150), insufficient.Current)
	assert.Equal(t, int64(200), insufficient.Required)

	assert.Equal(t, 0, testutil.CountTransactions(t, db, guildID, member.ID))
	current, _, spent := testutil.GetBalanceRow(t, db, guildID, member.ID)
	assert.Equal(t, int64(150), current)
	assert.Equal(t, int64(0), spent)
}

func TestSpend_NoBalanceRowIsZeroBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	member := testutil.SeedMember(t, db, guildID, "Fresh Recruit")

	_, err := svc.Spend(ctx, dkp.SpendRequest{
		GuildID:   guildID,
		MemberID:  member.ID,
		Amount:    10,
		AwardedBy: testutil.OfficerUserID,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.False(t, testutil.BalanceRowExists(t, db, guildID, member.ID))
}

func TestSpend_ConcurrentOverdraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	member := testutil.SeedMember(t, db, guildID, "Sylvanas")
	testutil.SeedBalance(t, db, guildID, member.ID, 100, 100, 0)

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Spend(ctx, dkp.SpendRequest{
				GuildID:   guildID,
				MemberID:  member.ID,
				Amount:    70,
				AwardedBy: testutil.OfficerUserID,
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
			failures++
		}
	}

	assert.Equal(t, 1, successes, "exactly one spend should succeed")
	assert.Equal(t, 1, failures, "exactly one spend should fail")

	current, _, _ := testutil.GetBalanceRow(t, db, guildID, member.ID)
	assert.Equal(t, int64(30), current, "balance must be 30, never negative")
}

func TestAward_ConcurrentSameMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	member := testutil.SeedMember(t, db, guildID, "Cairne")

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Award(ctx, dkp.AwardRequest{
				GuildID:   guildID,
				MemberID:  member.ID,
				Amount:    10,
				Type:      domain.TransactionTypeBonus,
				AwardedBy: testutil.OfficerUserID,
			})
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	current, earned, _ := testutil.GetBalanceRow(t, db, guildID, member.ID)
	assert.Equal(t, int64(workers*10), current, "no award may be lost")
	assert.Equal(t, int64(workers*10), earned)
	assert.Equal(t, workers, testutil.CountTransactions(t, db, guildID, member.ID))
}

func TestAdjust_NegativeCountsAsSpent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	member := testutil.SeedMember(t, db, guildID, "Uther")
	testutil.SeedBalance(t, db, guildID, member.ID, 200, 200, 0)

	tx, err := svc.Adjust(ctx, dkp.AdjustRequest{
		GuildID:   guildID,
		MemberID:  member.ID,
		Amount:    -50,
		Reason:    "missed raid start",
		AwardedBy: testutil.OfficerUserID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-50), tx.Amount)
	assert.Equal(t, domain.TransactionTypeAdjustment, tx.Type)

	current, earned, spent := testutil.GetBalanceRow(t, db, guildID, member.ID)
	assert.Equal(t, int64(150), current)
	assert.Equal(t, int64(200), earned)
	assert.Equal(t, int64(50), spent)
}

func TestAdjust_NegativeMayOverdraw(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	member := testutil.SeedMember(t, db, guildID, "Kael'thas")
	testutil.SeedBalance(t, db, guildID, member.ID, 20, 20, 0)

	// Officer corrections skip the sufficiency check; a negative balance is
	// a legitimate outcome of fixing bookkeeping mistakes.
	_, err := svc.Adjust(ctx, dkp.AdjustRequest{
		GuildID:   guildID,
		MemberID:  member.ID,
		Amount:    -100,
		Reason:    "reverse duplicate award",
		AwardedBy: testutil.OfficerUserID,
	})
	require.NoError(t, err)

	current, _, spent := testutil.GetBalanceRow(t, db, guildID, member.ID)
	assert.Equal(t, int64(-80), current)
	assert.Equal(t, int64(100), spent)
}

func TestAdjust_ZeroAmountStillLogged(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	member := testutil.SeedMember(t, db, guildID, "Anduin")

	_, err := svc.Adjust(ctx, dkp.AdjustRequest{
		GuildID:   guildID,
		MemberID:  member.ID,
		Amount:    0,
		Reason:    "audit marker",
		AwardedBy: testutil.OfficerUserID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.CountTransactions(t, db, guildID, member.ID))
}

func TestAdjust_ReasonRequired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	member := testutil.SeedMember(t, db, guildID, "Garrosh")

	_, err := svc.Adjust(ctx, dkp.AdjustRequest{
		GuildID:   guildID,
		MemberID:  member.ID,
		Amount:    10,
		AwardedBy: testutil.OfficerUserID,
	})
	require.ErrorIs(t, err, domain.ErrReasonRequired)
}

func TestBulkAward_HappyPath(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	a := testutil.SeedMember(t, db, guildID, "Tank")
	b := testutil.SeedMember(t, db, guildID, "Healer")
	c := testutil.SeedMember(t, db, guildID, "DPS")

	eventID := uuid.New()
	result, err := svc.BulkAward(ctx, dkp.BulkAwardRequest{
		GuildID:   guildID,
		MemberIDs: []uuid.UUID{a.ID, b.ID, c.ID},
		Amount:    25,
		Type:      domain.TransactionTypeRaidAttendance,
		EventID:   &eventID,
		AwardedBy: testutil.OfficerUserID,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Awarded)
	assert.Empty(t, result.FailedMemberIDs)

	for _, m := range []uuid.UUID{a.ID, b.ID, c.ID} {
		current, earned, _ := testutil.GetBalanceRow(t, db, guildID, m)
		assert.Equal(t, int64(25), current)
		assert.Equal(t, int64(25), earned)
		assert.Equal(t, 1, testutil.CountTransactions(t, db, guildID, m))
	}
}

func TestBulkAward_EmptyMemberList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)

	guildID := testutil.SeedGuild(t, db, "Test Guild")

	_, err := svc.BulkAward(context.Background(), dkp.BulkAwardRequest{
		GuildID:   guildID,
		Amount:    25,
		Type:      domain.TransactionTypeRaidAttendance,
		AwardedBy: testutil.OfficerUserID,
	})
	require.ErrorIs(t, err, domain.ErrEmptyMemberList)
}

func TestLeaderboard_OrderAndRanks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	low := testutil.SeedMember(t, db, guildID, "Low")
	mid := testutil.SeedMember(t, db, guildID, "Mid")
	high := testutil.SeedMember(t, db, guildID, "High")
	testutil.SeedBalance(t, db, guildID, low.ID, 10, 10, 0)
	testutil.SeedBalance(t, db, guildID, mid.ID, 50, 60, 10)
	testutil.SeedBalance(t, db, guildID, high.ID, 300, 300, 0)

	entries, total, err := svc.Leaderboard(ctx, guildID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, entries, 3)

	assert.Equal(t, high.ID, entries[0].MemberID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "High", entries[0].DisplayName)
	assert.Equal(t, mid.ID, entries[1].MemberID)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, low.ID, entries[2].MemberID)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestLeaderboard_Pagination(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	for i := range 5 {
		m := testutil.SeedMember(t, db, guildID, "Member")
		testutil.SeedBalance(t, db, guildID, m.ID, int64(100-i*10), int64(100-i*10), 0)
	}

	entries, total, err := svc.Leaderboard(ctx, guildID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].Rank)
	assert.Equal(t, 4, entries[1].Rank)
	assert.Equal(t, int64(80), entries[0].CurrentBalance)
	assert.Equal(t, int64(70), entries[1].CurrentBalance)
}

func TestTransactions_FilterByMemberAndType(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildID := testutil.SeedGuild(t, db, "Test Guild")
	a := testutil.SeedMember(t, db, guildID, "A")
	b := testutil.SeedMember(t, db, guildID, "B")

	for _, m := range []uuid.UUID{a.ID, b.ID} {
		_, err := svc.Award(ctx, dkp.AwardRequest{
			GuildID: guildID, MemberID: m, Amount: 40,
			Type: domain.TransactionTypeRaidAttendance, AwardedBy: testutil.OfficerUserID,
		})
		require.NoError(t, err)
	}
	_, err := svc.Spend(ctx, dkp.SpendRequest{
		GuildID: guildID, MemberID: a.ID, Amount: 15, AwardedBy: testutil.OfficerUserID,
	})
	require.NoError(t, err)

	txs, total, err := svc.Transactions(ctx, guildID, domain.TransactionFilter{MemberID: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, txs, 2)

	spendType := domain.TransactionTypeLootPurchase
	txs, total, err = svc.Transactions(ctx, guildID, domain.TransactionFilter{Type: &spendType})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(-15), txs[0].Amount)
	assert.Equal(t, a.ID, txs[0].MemberID)
}

func TestTransactions_GuildScopeIsolation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupDKPService(t, db)
	ctx := context.Background()

	guildA := testutil.SeedGuild(t, db, "Guild A")
	guildB := testutil.SeedGuild(t, db, "Guild B")
	memberA := testutil.SeedMember(t, db, guildA, "Alpha")
	memberB := testutil.SeedMember(t, db, guildB, "Beta")

	for _, seed := range []struct {
		guildID  uuid.UUID
		memberID uuid.UUID
	}{{guildA, memberA.ID}, {guildB, memberB.ID}} {
		_, err := svc.Award(ctx, dkp.AwardRequest{
			GuildID: seed.guildID, MemberID: seed.memberID, Amount: 10,
			Type: domain.TransactionTypeBonus, AwardedBy: testutil.OfficerUserID,
		})
		require.NoError(t, err)
	}

	_, total, err := svc.Transactions(ctx, guildA, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	entries, _, err := svc.Leaderboard(ctx, guildA, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, memberA.ID, entries[0].MemberID)
}
