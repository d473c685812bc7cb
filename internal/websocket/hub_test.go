package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func signed(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()})
	s, err := tok.SignedString(secret)
	require.NoError(t, err)
	return s
}

func newServer(t *testing.T, hub *Hub) *httptest.Server {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, secret) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHub_DeliversOnlyToAddressedUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	srv := newServer(t, hub)

	alice := uuid.New()
	bob := uuid.New()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token="

	aliceConn, _, err := websocket.DefaultDialer.Dial(wsURL+signed(t, alice.String()), nil)
	require.NoError(t, err)
	defer aliceConn.Close()
	bobConn, _, err := websocket.DefaultDialer.Dial(wsURL+signed(t, bob.String()), nil)
	require.NoError(t, err)
	defer bobConn.Close()

	require.Eventually(t, func() bool { return hub.IsOnline(alice) && hub.IsOnline(bob) }, time.Second, 10*time.Millisecond)

	assert.True(t, hub.SendToUser(alice, []byte(`{"event":"charge_range.approved"}`)))

	_ = aliceConn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := aliceConn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"charge_range.approved"}`, string(msg))

	_ = bobConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = bobConn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_SendToOfflineUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	assert.False(t, hub.SendToUser(uuid.New(), []byte("x")))
}

func TestServeWs_RejectsBadTokens(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	srv := newServer(t, hub)

	tests := []struct {
		name  string
		query string
	}{
		{"missing", ""},
		{"garbage", "?token=not-a-jwt"},
		{"non uuid subject", "?token=" + signed(t, "42")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/ws" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestServeWs_ChecksOrigin(t *testing.T) {
	hub := NewHub("http://localhost:5173")
	go hub.Run()
	srv := newServer(t, hub)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + signed(t, uuid.NewString())

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"no origin header", "", true},
		{"configured origin", "http://localhost:5173", true},
		{"same host", srv.URL, true},
		{"foreign origin", "https://evil.example", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			header := http.Header{}
			if tc.origin != "" {
				header.Set("Origin", tc.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if tc.ok {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}
