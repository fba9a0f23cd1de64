package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(id string) *Client {
	return &Client{
		ID:     id,
		UserID: uuid.New(),
		Send:   make(chan []byte, 16),
	}
}

func registered(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	h.Register(c)
	require.Eventually(t, func() bool {
		_, ok := h.ClientUser(c.ID)
		return ok
	}, time.Second, 5*time.Millisecond)
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.Send:
		var ev Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestNewHub(t *testing.T) {
	h := NewHub()

	assert.NotNil(t, h.clients)
	assert.NotNil(t, h.register)
	assert.NotNil(t, h.unregister)
	assert.NotNil(t, h.broadcast)
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := newTestClient("client-1")
	registered(t, h, c)

	userID, ok := h.ClientUser("client-1")
	assert.True(t, ok)
	assert.Equal(t, c.UserID, userID)

	h.Unregister(c)
	require.Eventually(t, func() bool {
		_, ok := h.ClientUser("client-1")
		return !ok
	}, time.Second, 5*time.Millisecond)

	_, open := <-c.Send
	assert.False(t, open)
}

func TestHub_SubscribeUnknownClient(t *testing.T) {
	h := NewHub()

	assert.False(t, h.Subscribe("missing", TeamTopic(uuid.New())))
}

func TestHub_PublishReachesOnlySubscribers(t *testing.T) {
	h := NewHub()
	go h.Run()

	teamID := uuid.New()
	topic := TeamTopic(teamID)

	subscriber := newTestClient("sub")
	bystander := newTestClient("other")
	registered(t, h, subscriber)
	registered(t, h, bystander)
	require.True(t, h.Subscribe("sub", topic))
	assert.True(t, h.IsSubscribed("sub", topic))
	assert.False(t, h.IsSubscribed("other", topic))

	require.NoError(t, h.Publish(context.Background(), topic, "team.updated", map[string]string{"name": "Core"}))

	ev := receive(t, subscriber)
	assert.Equal(t, topic, ev.Topic)
	assert.Equal(t, "team.updated", ev.Type)
	assert.False(t, ev.At.IsZero())

	select {
	case <-bystander.Send:
		t.Fatal("bystander received an event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	go h.Run()

	topic := ProjectTopic(uuid.New())
	c := newTestClient("client-1")
	registered(t, h, c)
	require.True(t, h.Subscribe("client-1", topic))

	h.Unsubscribe("client-1", topic)

	assert.False(t, h.IsSubscribed("client-1", topic))
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	h := NewHub()
	go h.Run()

	topic := TeamTopic(uuid.New())
	slow := &Client{ID: "slow", UserID: uuid.New(), Send: make(chan []byte, 1)}
	fast := newTestClient("fast")
	registered(t, h, slow)
	registered(t, h, fast)
	h.Subscribe("slow", topic)
	h.Subscribe("fast", topic)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.Publish(context.Background(), topic, "member.added", i))
	}

	for i := 0; i < 3; i++ {
		receive(t, fast)
	}
	assert.Len(t, slow.Send, 1)
}

func TestHub_PublishBusy(t *testing.T) {
	h := NewHub()

	for i := 0; i < cap(h.broadcast); i++ {
		require.NoError(t, h.Publish(context.Background(), "team:x", "e", nil))
	}

	err := h.Publish(context.Background(), "team:x", "e", nil)
	assert.ErrorIs(t, err, ErrHubBusy)
}

func TestHub_PublishUnencodablePayload(t *testing.T) {
	h := NewHub()

	err := h.Publish(context.Background(), "team:x", "e", make(chan int))
	assert.Error(t, err)
}
