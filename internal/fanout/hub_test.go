package fanout

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type hubHarness struct {
	hub    *Hub
	srv    *httptest.Server
	joined chan *RoomClient
}

func newHubHarness(t *testing.T) *hubHarness {
	t.Helper()
	h := &hubHarness{hub: NewHub(zap.NewNop()), joined: make(chan *RoomClient, 8)}
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.joined <- h.hub.Join(r.URL.Query().Get("room"), r.URL.Query().Get("u"), conn)
	}))
	t.Cleanup(func() {
		h.hub.Close()
		h.srv.Close()
	})
	return h
}

// dial 串行调用，join 事件与连接一一对应
func (h *hubHarness) dial(t *testing.T, room, user string) (*websocket.Conn, *RoomClient) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "?room=" + room + "&u=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := <-h.joined
	require.Equal(t, user, client.UserID)
	return conn, client
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestHubBroadcastRoomScoped(t *testing.T) {
	h := newHubHarness(t)
	connA, _ := h.dial(t, "site-1", "a")
	connB, _ := h.dial(t, "site-1", "b")
	connC, _ := h.dial(t, "site-2", "c")

	h.hub.Broadcast("site-1", []byte("hello"), nil)

	require.Equal(t, "hello", readText(t, connA))
	require.Equal(t, "hello", readText(t, connB))
	expectSilence(t, connC)
}

func TestHubBroadcastExceptSender(t *testing.T) {
	h := newHubHarness(t)
	connA, clientA := h.dial(t, "site-1", "a")
	connB, _ := h.dial(t, "site-1", "b")

	h.hub.Broadcast("site-1", []byte("first"), clientA)
	h.hub.Broadcast("site-1", []byte("second"), nil)

	// a 跳过了第一条，直接收到第二条
	require.Equal(t, "second", readText(t, connA))
	require.Equal(t, "first", readText(t, connB))
	require.Equal(t, "second", readText(t, connB))
}

func TestHubSendUnicast(t *testing.T) {
	h := newHubHarness(t)
	connA, clientA := h.dial(t, "site-1", "a")
	connB, _ := h.dial(t, "site-1", "b")

	clientA.Send([]byte("only-a"))
	require.Equal(t, "only-a", readText(t, connA))
	expectSilence(t, connB)
}

// 成员断开与广播并发时绝不能 panic：Broadcast 在锁外投递，
// Leave 不得关闭投递用的通道
func TestHubBroadcastDuringLeave(t *testing.T) {
	h := newHubHarness(t)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				h.hub.Broadcast("site-1", []byte("tick"), nil)
			}
		}
	}()

	for i := 0; i < 30; i++ {
		_, client := h.dial(t, "site-1", "churn")
		h.hub.Leave(client)
	}
	close(stop)
	wg.Wait()
	require.Zero(t, h.hub.RoomSize("site-1"))
}

func TestHubLeave(t *testing.T) {
	h := newHubHarness(t)
	_, clientA := h.dial(t, "site-1", "a")
	connB, _ := h.dial(t, "site-1", "b")
	require.Equal(t, 2, h.hub.RoomSize("site-1"))

	h.hub.Leave(clientA)
	require.Equal(t, 1, h.hub.RoomSize("site-1"))
	// 幂等
	h.hub.Leave(clientA)
	require.Equal(t, 1, h.hub.RoomSize("site-1"))

	// 剩下的成员照常收
	h.hub.Broadcast("site-1", []byte("still-here"), nil)
	require.Equal(t, "still-here", readText(t, connB))
}
