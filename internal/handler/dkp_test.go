package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildtools/dkpledger/internal/auth"
	"github.com/guildtools/dkpledger/internal/domain"
	"github.com/guildtools/dkpledger/internal/service/dkp"
)

type mockDKPService struct {
	awardReq *dkp.AwardRequest
	awardErr error
}

func (m *mockDKPService) Award(_ context.Context, req dkp.AwardRequest) (*domain.Transaction, error) {
	m.awardReq = &req
	if m.awardErr != nil {
		return nil, m.awardErr
	}
	return &domain.Transaction{
		ID:        uuid.New(),
		GuildID:   req.GuildID,
		MemberID:  req.MemberID,
		Amount:    req.Amount,
		Type:      req.Type,
		AwardedBy: req.AwardedBy,
	}, nil
}

func (m *mockDKPService) Spend(context.Context, dkp.SpendRequest) (*domain.Transaction, error) {
	return nil, nil
}

func (m *mockDKPService) Adjust(context.Context, dkp.AdjustRequest) (*domain.Transaction, error) {
	return nil, nil
}

func (m *mockDKPService) BulkAward(context.Context, dkp.BulkAwardRequest) (*dkp.BulkAwardResult, error) {
	return &dkp.BulkAwardResult{}, nil
}

func (m *mockDKPService) GetBalance(context.Context, uuid.UUID, uuid.UUID) (*domain.Balance, error) {
	return nil, domain.ErrNotFound
}

func (m *mockDKPService) Leaderboard(context.Context, uuid.UUID, int, int) ([]domain.LeaderboardEntry, int, error) {
	return nil, 0, nil
}

func (m *mockDKPService) Transactions(context.Context, uuid.UUID, domain.TransactionFilter) ([]domain.Transaction, int, error) {
	return nil, 0, nil
}

func officerRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	actor := &auth.Actor{
		UserID:  uuid.New(),
		GuildID: uuid.New(),
		Role:    auth.RoleOfficer,
	}
	return req.WithContext(auth.ContextWithActor(req.Context(), actor))
}

func TestAwardHandler_HappyPath(t *testing.T) {
	svc := &mockDKPService{}
	h := NewDKPHandler(svc)

	memberID := uuid.New()
	body := `{"member_id":"` + memberID.String() + `","amount":50,"type":"boss_kill","metadata":{"boss_name":"Ragnaros"}}`

	rec := httptest.NewRecorder()
	h.Award(rec, officerRequest(t, http.MethodPost, "/api/v1/dkp/awards", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.awardReq)
	assert.Equal(t, memberID, svc.awardReq.MemberID)
	assert.Equal(t, int64(50), svc.awardReq.Amount)
	assert.Equal(t, domain.TransactionTypeBossKill, svc.awardReq.Type)
	assert.Equal(t, domain.BossKillMetadata{BossName: "Ragnaros"}, svc.awardReq.Metadata)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestAwardHandler_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing member id", `{"amount":50,"type":"boss_kill"}`},
		{"zero amount", `{"member_id":"` + uuid.NewString() + `","amount":0,"type":"boss_kill"}`},
		{"unknown type", `{"member_id":"` + uuid.NewString() + `","amount":50,"type":"pvp_kill"}`},
		{"malformed json", `{`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockDKPService{}
			h := NewDKPHandler(svc)

			rec := httptest.NewRecorder()
			h.Award(rec, officerRequest(t, http.MethodPost, "/api/v1/dkp/awards", tc.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, svc.awardReq, "service must not be called")
		})
	}
}

func TestAwardHandler_MissingActor(t *testing.T) {
	h := NewDKPHandler(&mockDKPService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dkp/awards", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Award(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAwardHandler_MalformedMetadata(t *testing.T) {
	svc := &mockDKPService{}
	h := NewDKPHandler(svc)

	body := `{"member_id":"` + uuid.NewString() + `","amount":50,"type":"boss_kill","metadata":{"boss_name":123}}`

	rec := httptest.NewRecorder()
	h.Award(rec, officerRequest(t, http.MethodPost, "/api/v1/dkp/awards", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.awardReq)
}

func TestSpendHandler_InsufficientBalanceDetails(t *testing.T) {
	spendErr := &domain.InsufficientBalanceError{Current: 30, Required: 100}
	h := NewDKPHandler(&erroringDKPService{
		mockDKPService: &mockDKPService{},
		spendErr:       spendErr,
	})

	body := `{"member_id":"` + uuid.NewString() + `","amount":100}`
	rec := httptest.NewRecorder()
	h.Spend(rec, officerRequest(t, http.MethodPost, "/api/v1/dkp/spends", body))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INSUFFICIENT_BALANCE", resp.Error.Code)

	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(30), details["current_balance"])
	assert.Equal(t, float64(100), details["required"])
}

type erroringDKPService struct {
	*mockDKPService
	spendErr error
}

func (e *erroringDKPService) Spend(context.Context, dkp.SpendRequest) (*domain.Transaction, error) {
	return nil, e.spendErr
}
