package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civic-reports/internal/models"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func receive(t *testing.T, ch <-chan []byte) WSMessage {
	t.Helper()
	select {
	case payload, ok := <-ch:
		require.True(t, ok, "channel closed")
		var msg WSMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return WSMessage{}
	}
}

func TestHubDeliversToRecipientRoomOnly(t *testing.T) {
	hub, _ := startHub(t)

	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	aliceClient := newClient(hub, nil, alice)
	bobClient := newClient(hub, nil, bob)
	require.NoError(t, hub.add(aliceClient))
	require.NoError(t, hub.add(bobClient))

	err := hub.Publish(context.Background(), &models.Notification{
		ID:        primitive.NewObjectID(),
		Recipient: alice,
		Type:      models.NotificationTypeComment,
		Title:     "New comment",
	})
	require.NoError(t, err)

	msg := receive(t, aliceClient.send)
	assert.Equal(t, MessageTypeNotification, msg.Type)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, "New comment", data["title"])

	select {
	case <-bobClient.send:
		t.Fatal("bob must not receive alice's notification")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubEvictsSlowClient(t *testing.T) {
	hub, _ := startHub(t)

	user := primitive.NewObjectID()
	slow := &Client{hub: hub, send: make(chan []byte), userID: user}
	require.NoError(t, hub.add(slow))
	require.Equal(t, 1, hub.Connections(user))

	require.NoError(t, hub.Publish(context.Background(), &models.Notification{Recipient: user}))

	require.Eventually(t, func() bool { return hub.Connections(user) == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-slow.send
	assert.False(t, ok)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub, cancel := startHub(t)

	user := primitive.NewObjectID()
	client := newClient(hub, nil, user)
	require.NoError(t, hub.add(client))

	cancel()

	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("client channel not closed on shutdown")
	}

	assert.ErrorIs(t, hub.add(newClient(hub, nil, user)), ErrHubStopped)
	assert.ErrorIs(t, hub.Publish(context.Background(), &models.Notification{Recipient: user}), ErrHubStopped)
}

func TestHubServeOverWebsocket(t *testing.T) {
	hub, _ := startHub(t)
	user := primitive.NewObjectID()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn, user)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connections(user) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), &models.Notification{
		Recipient: user,
		Type:      models.NotificationTypeReportStatus,
		Title:     "Report Updated",
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeNotification, msg.Type)
	assert.Equal(t, "Report Updated", msg.Data.(map[string]interface{})["title"])

	conn.Close()
	require.Eventually(t, func() bool { return hub.Connections(user) == 0 }, 2*time.Second, 10*time.Millisecond)
}
