package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/dimitrije/teamsync-api/internal/services"
	"github.com/dimitrije/teamsync-api/pkg/dto"
	"github.com/dimitrije/teamsync-api/tests/testutil"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupInviteTest(t *testing.T) (*testutil.MockCoordinator, *InviteHandler) {
	t.Helper()
	coord := new(testutil.MockCoordinator)
	return coord, NewInviteHandler(coord, nil)
}

func TestInviteHandler_Create_New(t *testing.T) {
	coord, handler := setupInviteTest(t)
	userID := uuid.New()
	teamID := uuid.New()
	uses := 5
	inv := &models.TeamInvite{ID: uuid.New(), TeamID: teamID, Code: "abc", ExpiresAt: time.Now().Add(72 * time.Hour), UsesLeft: &uses}

	coord.On("CreateInvite", mock.Anything, userID, teamID, services.InviteInput{TTLDays: 3, MaxUses: &uses}).
		Return(inv, true, nil)

	app := newTestApp(route{http.MethodPost, "/teams/:id/invites", handler.Create})
	rec := doRequest(t, app, http.MethodPost, "/teams/"+teamID.String()+"/invites", userID,
		dto.CreateInviteRequest{ExpiresInDays: 3, MaxUses: &uses})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var response dto.InviteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "abc", response.Code)
	require.NotNil(t, response.UsesLeft)
	assert.Equal(t, 5, *response.UsesLeft)
	coord.AssertExpectations(t)
}

func TestInviteHandler_Create_ReusesExisting(t *testing.T) {
	coord, handler := setupInviteTest(t)
	userID := uuid.New()
	teamID := uuid.New()
	inv := &models.TeamInvite{ID: uuid.New(), TeamID: teamID, Code: "existing", ExpiresAt: time.Now().Add(time.Hour)}

	coord.On("CreateInvite", mock.Anything, userID, teamID, services.InviteInput{}).Return(inv, false, nil)

	app := newTestApp(route{http.MethodPost, "/teams/:id/invites", handler.Create})
	rec := doRequest(t, app, http.MethodPost, "/teams/"+teamID.String()+"/invites", userID, dto.CreateInviteRequest{})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "existing")
	coord.AssertExpectations(t)
}

func TestInviteHandler_Create_InvalidMaxUses(t *testing.T) {
	_, handler := setupInviteTest(t)
	zero := 0

	app := newTestApp(route{http.MethodPost, "/teams/:id/invites", handler.Create})
	rec := doRequest(t, app, http.MethodPost, "/teams/"+uuid.NewString()+"/invites", uuid.New(),
		dto.CreateInviteRequest{MaxUses: &zero})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "max_uses must be at least 1")
}

func TestInviteHandler_Resolve_IsPublic(t *testing.T) {
	coord, handler := setupInviteTest(t)
	teamID := uuid.New()
	inv := &models.TeamInvite{
		ID:     uuid.New(),
		TeamID: teamID,
		Code:   "public-code",
		Team:   &models.Team{ID: teamID, Name: "Preview Team"},
	}

	coord.On("ResolveInvite", mock.Anything, "public-code").Return(inv, nil)

	app := drift.New()
	app.Get("/invites/:code", handler.Resolve)

	req := httptest.NewRequest(http.MethodGet, "/invites/public-code", nil)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Preview Team")
	coord.AssertExpectations(t)
}

func TestInviteHandler_Accept_Outcomes(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"expired", &services.Error{Kind: services.KindExpired}, http.StatusGone},
		{"exhausted", &services.Error{Kind: services.KindExhausted}, http.StatusGone},
		{"already member", &services.Error{Kind: services.KindConflict, Reason: services.ReasonAlreadyMember}, http.StatusConflict},
		{"unknown code", &services.Error{Kind: services.KindNotFound}, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			coord, handler := setupInviteTest(t)
			userID := uuid.New()

			var inv *models.TeamInvite
			if tc.err == nil {
				inv = &models.TeamInvite{ID: uuid.New(), TeamID: uuid.New(), Code: "code"}
			}
			coord.On("AcceptInvite", mock.Anything, userID, "code").Return(inv, tc.err)

			app := newTestApp(route{http.MethodPost, "/invites/:code/accept", handler.Accept})
			rec := doRequest(t, app, http.MethodPost, "/invites/code/accept", userID, nil)

			assert.Equal(t, tc.status, rec.Code)
			coord.AssertExpectations(t)
		})
	}
}

func TestInviteHandler_Revoke(t *testing.T) {
	coord, handler := setupInviteTest(t)
	userID := uuid.New()
	teamID := uuid.New()
	inviteID := uuid.New()

	coord.On("RevokeInvite", mock.Anything, userID, teamID, inviteID).Return(nil)

	app := newTestApp(route{http.MethodDelete, "/teams/:id/invites/:inviteId", handler.Revoke})
	rec := doRequest(t, app, http.MethodDelete, "/teams/"+teamID.String()+"/invites/"+inviteID.String(), userID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	coord.AssertExpectations(t)
}
