package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossy-p/meeting-relay/internal/models"
	"github.com/mossy-p/meeting-relay/internal/registry"
	"github.com/mossy-p/meeting-relay/internal/relay"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testRelay struct {
	hub    *relay.Hub
	server *httptest.Server
}

func newTestRelay(t *testing.T, origins ...string) *testRelay {
	t.Helper()
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	hub := relay.NewHub(registry.New(true), zerolog.Nop())
	srv := httptest.NewServer(NewRouter(hub, origins, zerolog.Nop()))
	t.Cleanup(func() {
		hub.Shutdown()
		srv.Close()
	})
	return &testRelay{hub: hub, server: srv}
}

func (r *testRelay) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(r.server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (r *testRelay) members(roomID string) []string {
	return r.hub.Registry().Members(roomID)
}

func send(t *testing.T, conn *websocket.Conn, msg models.SignalMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func receive(t *testing.T, conn *websocket.Conn) models.SignalMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg models.SignalMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func join(t *testing.T, r *testRelay, conn *websocket.Conn, roomID, participantID string) {
	t.Helper()
	send(t, conn, models.SignalMessage{Event: models.EventJoinRoom, RoomID: roomID, ParticipantID: participantID})
	require.Eventually(t, func() bool {
		for _, m := range r.members(roomID) {
			if m == participantID {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSignalingScenario(t *testing.T) {
	r := newTestRelay(t)
	c1 := r.dial(t)
	c2 := r.dial(t)
	c3 := r.dial(t)

	join(t, r, c3, "other", "p3")
	join(t, r, c1, "abc", "p1")
	join(t, r, c2, "abc", "p2")

	assert.Equal(t, models.UserConnected("p2"), receive(t, c1))

	send(t, c1, models.SignalMessage{
		Event:         models.EventSignal,
		ParticipantID: "p1",
		Signal:        json.RawMessage(`"offer-x"`),
	})

	// p2 never saw its own user-connected, so the relayed signal comes first
	got := receive(t, c2)
	assert.Equal(t, models.EventSignal, got.Event)
	assert.Equal(t, "p1", got.ParticipantID)
	assert.JSONEq(t, `"offer-x"`, string(got.Signal))

	require.NoError(t, c2.Close())
	assert.Equal(t, models.UserDisconnected("p2"), receive(t, c1))
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"p1"}, r.members("abc"))
	}, 2*time.Second, 10*time.Millisecond)

	// the other room saw none of this
	send(t, c3, models.SignalMessage{Event: models.EventSignal, ParticipantID: "p3", Signal: json.RawMessage(`"ping"`)})
	require.NoError(t, c3.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := c3.ReadMessage()
	assert.Error(t, err)
}

func TestExplicitDisconnect(t *testing.T) {
	r := newTestRelay(t)
	c1 := r.dial(t)
	c2 := r.dial(t)

	join(t, r, c1, "abc", "p1")
	join(t, r, c2, "abc", "p2")
	assert.Equal(t, models.UserConnected("p2"), receive(t, c1))

	send(t, c2, models.SignalMessage{Event: models.EventDisconnect})

	assert.Equal(t, models.UserDisconnected("p2"), receive(t, c1))

	// the relay closes the transport after cleanup
	require.NoError(t, c2.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := c2.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)

	require.Eventually(t, func() bool { return r.hub.SessionCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"p1"}, r.members("abc"))
}

func TestDisconnectBeforePeerJoins(t *testing.T) {
	r := newTestRelay(t)
	c1 := r.dial(t)
	join(t, r, c1, "abc", "p1")
	require.NoError(t, c1.Close())

	require.Eventually(t, func() bool { return len(r.members("abc")) == 0 }, 2*time.Second, 10*time.Millisecond)

	c2 := r.dial(t)
	join(t, r, c2, "abc", "p2")
	require.NoError(t, c2.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := c2.ReadMessage()
	assert.Error(t, err)
}

func TestMalformedFrameKeepsConnection(t *testing.T) {
	r := newTestRelay(t)
	c1 := r.dial(t)

	require.NoError(t, c1.WriteMessage(websocket.TextMessage, []byte("{broken")))
	send(t, c1, models.SignalMessage{Event: models.EventJoinRoom, RoomID: "abc"})
	join(t, r, c1, "abc", "p1")
}

func TestRoomsAPI(t *testing.T) {
	r := newTestRelay(t)
	c1 := r.dial(t)
	join(t, r, c1, "abc", "p1")

	resp, err := http.Get(r.server.URL + "/api/rooms/abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var room models.RoomMembersResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&room))
	assert.Equal(t, models.RoomMembersResponse{RoomID: "abc", Members: []string{"p1"}}, room)

	resp, err = http.Get(r.server.URL + "/api/rooms/unknown")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&room))
	assert.Equal(t, "unknown", room.RoomID)
	assert.Empty(t, room.Members)

	resp, err = http.Get(r.server.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	var rooms []registry.RoomInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	assert.Equal(t, []registry.RoomInfo{{RoomID: "abc", Members: 1}}, rooms)
}

func TestCreateRoom(t *testing.T) {
	r := newTestRelay(t)

	resp, err := http.Post(r.server.URL+"/api/rooms", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.CreateRoomResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	_, err = uuid.Parse(created.RoomID)
	assert.NoError(t, err)

	// ids are handed out, not stored
	assert.False(t, r.hub.Registry().Exists(created.RoomID))
}

func TestHealth(t *testing.T) {
	router := NewRouter(relay.NewHub(registry.New(true), zerolog.Nop()), nil, zerolog.Nop())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestOriginFilter(t *testing.T) {
	hub := relay.NewHub(registry.New(true), zerolog.Nop())
	t.Cleanup(hub.Shutdown)

	cases := []struct {
		name       string
		origins    []string
		method     string
		origin     string
		wantStatus int
		wantCORS   bool
	}{
		{"no origin", []string{"http://localhost:5173"}, http.MethodGet, "", http.StatusOK, false},
		{"allowed origin", []string{"http://localhost:5173"}, http.MethodGet, "http://localhost:5173", http.StatusOK, true},
		{"foreign origin", []string{"http://localhost:5173"}, http.MethodGet, "https://evil.example", http.StatusForbidden, false},
		{"preflight", []string{"http://localhost:5173"}, http.MethodOptions, "http://localhost:5173", http.StatusNoContent, true},
		{"wildcard", []string{"*"}, http.MethodGet, "https://anywhere.example", http.StatusOK, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := NewRouter(hub, tc.origins, zerolog.Nop())
			req := httptest.NewRequest(tc.method, "/health", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantCORS {
				assert.Equal(t, tc.origin, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestUpgradeRefusedAfterShutdown(t *testing.T) {
	r := newTestRelay(t)
	r.hub.Shutdown()

	conn := r.dial(t)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
}
