package router

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"siteforge/internal/domain"
	httpez "siteforge/internal/transport/http/ez"
	resp "siteforge/internal/transport/http/response"
)

// 实时两通道：
//   - /api/v1/websites/:id/changes —— SSE，话题通道的传输面
//   - /ws/websites/:id             —— websocket 房间通道
//
// 房间里进来的 edit 一律走修订引擎，version 与 ACL 保持权威；
// 引擎提交后的文档才发给房间成员。

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 鉴权靠 token，不靠 Origin（EventSource/ws 均带不了自定义 header）
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsReadLimit    = 1 << 20 // 1MB
	wsReadDeadline = 60 * time.Second
)

func mountRealtimeRoutes(rt *gin.RouterGroup, d Deps) {
	rt.GET("/api/v1/websites/:id/changes", func(c *gin.Context) {
		uid, ok := principal(c, d)
		if !ok {
			return
		}
		websiteID := c.Param("id")
		if _, err := d.Engine.Get(c.Request.Context(), uid, websiteID); err != nil {
			writeDomainErr(c, err)
			return
		}

		ch, cancel, err := d.Broadcaster.Subscribe(c.Request.Context(), websiteID)
		if err != nil {
			c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, err.Error()))
			return
		}
		defer cancel()

		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Stream(func(w io.Writer) bool {
			select {
			case doc, open := <-ch:
				if !open {
					return false
				}
				c.SSEvent("website", doc)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	})

	rt.GET("/ws/websites/:id", func(c *gin.Context) {
		uid, ok := principal(c, d)
		if !ok {
			return
		}
		websiteID := c.Param("id")
		if _, err := d.Engine.Get(c.Request.Context(), uid, websiteID); err != nil {
			writeDomainErr(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			d.Log.Error("websocket upgrade failed", zap.Error(err))
			return
		}

		client := d.Hub.Join(websiteID, uid, conn)
		defer d.Hub.Leave(client)

		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		})

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					d.Log.Debug("websocket closed", zap.String("website_id", websiteID), zap.Error(err))
				}
				return
			}

			var msg wsInbound
			if err := json.Unmarshal(raw, &msg); err != nil {
				client.Send(wsError("malformed message"))
				continue
			}
			switch msg.Type {
			case "edit":
				doc, err := d.Engine.ApplyMutation(c.Request.Context(), websiteID, uid, msg.Patch)
				if err != nil {
					client.Send(wsError(err.Error()))
					continue
				}
				payload, _ := json.Marshal(wsOutbound{Type: "website-updated", Website: doc})
				// 发起者也收一份，作为提交确认
				d.Hub.Broadcast(websiteID, payload, nil)
			default:
				client.Send(wsError("unknown message type"))
			}
		}
	})
}

type wsInbound struct {
	Type  string              `json:"type"`
	Patch domain.WebsitePatch `json:"patch"`
}

type wsOutbound struct {
	Type    string          `json:"type"`
	Website *domain.Website `json:"website,omitempty"`
	Msg     string          `json:"msg,omitempty"`
}

func wsError(msg string) []byte {
	b, _ := json.Marshal(wsOutbound{Type: "error", Msg: msg})
	return b
}

// principal 支持 Authorization header 与 ?token=（SSE / ws 场景）
func principal(c *gin.Context, d Deps) (string, bool) {
	tok := c.Query("token")
	if tok == "" {
		tok = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if tok == "" {
		c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "missing token"))
		return "", false
	}
	claims, err := d.JWTer.Parse(tok)
	if err != nil {
		c.JSON(http.StatusOK, resp.Error(resp.CodeUnauthorized, "invalid token"))
		return "", false
	}
	return claims.UID, true
}

func writeDomainErr(c *gin.Context, err error) {
	ae := httpez.MapDomain(err)
	c.JSON(http.StatusOK, resp.Error(ae.Code, ae.Error()))
}
