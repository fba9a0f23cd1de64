package handlers

import (
	"net/http"
	"testing"

	"github.com/dimitrije/teamsync-api/internal/hub"
	"github.com/dimitrije/teamsync-api/pkg/dto"
	"github.com/dimitrije/teamsync-api/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupSSETest(t *testing.T) (*testutil.MockEventHub, *testutil.MockCoordinator, http.Handler) {
	t.Helper()
	h := new(testutil.MockEventHub)
	coord := new(testutil.MockCoordinator)
	handler := NewSSEHandler(h, coord, nil)
	app := newTestApp(
		route{http.MethodPost, "/events/:clientId/subscribe", handler.Subscribe},
		route{http.MethodPost, "/events/:clientId/unsubscribe", handler.Unsubscribe},
	)
	return h, coord, app
}

func TestSSEHandler_Subscribe_Success(t *testing.T) {
	h, coord, app := setupSSETest(t)
	userID := uuid.New()
	topic := hub.TeamTopic(uuid.New())

	h.On("ClientUser", "client-1").Return(userID, true)
	coord.On("CanSubscribe", mock.Anything, userID, topic).Return(true, nil)
	h.On("Subscribe", "client-1", topic).Return(true)

	rec := doRequest(t, app, http.MethodPost, "/events/client-1/subscribe", userID, dto.SubscriptionRequest{Topic: topic})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "subscribed to "+topic)
	h.AssertExpectations(t)
	coord.AssertExpectations(t)
}

func TestSSEHandler_Subscribe_Denied(t *testing.T) {
	h, coord, app := setupSSETest(t)
	userID := uuid.New()
	topic := hub.TeamTopic(uuid.New())

	h.On("ClientUser", "client-1").Return(userID, true)
	coord.On("CanSubscribe", mock.Anything, userID, topic).Return(false, nil)

	rec := doRequest(t, app, http.MethodPost, "/events/client-1/subscribe", userID, dto.SubscriptionRequest{Topic: topic})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	h.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything)
}

func TestSSEHandler_Subscribe_ForeignClient(t *testing.T) {
	h, coord, app := setupSSETest(t)
	userID := uuid.New()

	h.On("ClientUser", "client-1").Return(uuid.New(), true)

	rec := doRequest(t, app, http.MethodPost, "/events/client-1/subscribe", userID,
		dto.SubscriptionRequest{Topic: hub.UserTeamsTopic(userID)})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	coord.AssertNotCalled(t, "CanSubscribe", mock.Anything, mock.Anything, mock.Anything)
}

func TestSSEHandler_Subscribe_MissingTopic(t *testing.T) {
	h, _, app := setupSSETest(t)
	userID := uuid.New()

	h.On("ClientUser", "client-1").Return(userID, true)

	rec := doRequest(t, app, http.MethodPost, "/events/client-1/subscribe", userID, dto.SubscriptionRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "topic is required")
}

func TestSSEHandler_Unsubscribe(t *testing.T) {
	h, _, app := setupSSETest(t)
	userID := uuid.New()
	topic := hub.ProjectTopic(uuid.New())

	h.On("ClientUser", "client-1").Return(userID, true)
	h.On("Unsubscribe", "client-1", topic).Return()

	rec := doRequest(t, app, http.MethodPost, "/events/client-1/unsubscribe", userID, dto.SubscriptionRequest{Topic: topic})

	assert.Equal(t, http.StatusOK, rec.Code)
	h.AssertExpectations(t)
}
