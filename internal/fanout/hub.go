package fanout

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Hub 是房间通道：同一站点的在线客户端互相可见。与原始 socket 中继不同，
// 进来的编辑消息不在这里直接转发 —— transport 层先走修订引擎
// （ACL + version），提交后的文档才通过 Broadcast 发给房间成员。
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*RoomClient]struct{}
	log   *zap.Logger
}

var roomClients = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "realtime_room_clients",
	Help: "Connected websocket room clients",
})

func init() { prometheus.MustRegister(roomClients) }

const (
	writeWait  = 5 * time.Second
	pingPeriod = 15 * time.Second
	sendBuffer = 32
)

// send 永远不 close：Broadcast 可能在 Leave 之后仍持有对 client 的引用，
// 关停通过 done 通知写循环，残留的非阻塞 send 落进缓冲后被丢弃。
type RoomClient struct {
	hub       *Hub
	websiteID string
	UserID    string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	once      sync.Once
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{rooms: map[string]map[*RoomClient]struct{}{}, log: log}
}

// Join 把连接挂进站点房间，并启动写循环（含心跳 ping）
func (h *Hub) Join(websiteID, userID string, conn *websocket.Conn) *RoomClient {
	c := &RoomClient{
		hub:       h,
		websiteID: websiteID,
		UserID:    userID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
	h.mu.Lock()
	if h.rooms[websiteID] == nil {
		h.rooms[websiteID] = map[*RoomClient]struct{}{}
	}
	h.rooms[websiteID][c] = struct{}{}
	h.mu.Unlock()
	roomClients.Inc()

	go c.writeLoop()
	return c
}

func (h *Hub) Leave(c *RoomClient) {
	c.once.Do(func() {
		h.mu.Lock()
		if room, ok := h.rooms[c.websiteID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, c.websiteID)
			}
		}
		h.mu.Unlock()
		roomClients.Dec()
		close(c.done)
	})
}

// Broadcast 投递给房间内除 except 外的全部成员；except 传 nil 则全员。
// 慢客户端丢消息，绝不阻塞调用方。
func (h *Hub) Broadcast(websiteID string, payload []byte, except *RoomClient) {
	h.mu.Lock()
	members := make([]*RoomClient, 0, len(h.rooms[websiteID]))
	for c := range h.rooms[websiteID] {
		if c != except {
			members = append(members, c)
		}
	}
	h.mu.Unlock()

	for _, c := range members {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("room: drop message for slow client",
				zap.String("website_id", websiteID), zap.String("user_id", c.UserID))
		}
	}
}

// RoomSize 当前房间人数（测试用）
func (h *Hub) RoomSize(websiteID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[websiteID])
}

func (h *Hub) Close() {
	h.mu.Lock()
	var all []*RoomClient
	for _, room := range h.rooms {
		for c := range room {
			all = append(all, c)
		}
	}
	h.mu.Unlock()
	for _, c := range all {
		_ = c.conn.Close()
		h.Leave(c)
	}
}

// Send 单播（ws 应答发起者用）
func (c *RoomClient) Send(payload []byte) {
	select {
	case c.send <- payload:
	default:
	}
}

func (c *RoomClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
