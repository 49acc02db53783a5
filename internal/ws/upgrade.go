package ws

import (
	"log"
	"net/http"
	"time"

	"propdesk/config"
	"propdesk/internal/auth"
	"propdesk/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// UpgradePropsWS upgrades a connection onto the live board feed. Auth is a
// token query param since browsers can't set headers on websocket dials.
func UpgradePropsWS(cfg *config.JWTConfig, users *repository.UserRepository, hub *PropsHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		token := c.Query("token")
		if token == "" {
			conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"token required"}`))
			return
		}
		claims, err := auth.ParseAccessToken(cfg, token)
		if err != nil {
			conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
			return
		}
		premium := false
		if u, err := users.GetByID(claims.UserID); err == nil {
			premium = u.IsPremium
		}
		client := &Client{
			ID:        uuid.NewString(),
			UserID:    claims.UserID,
			Role:      claims.Role,
			IsPremium: premium,
			Send:      make(chan []byte, 256),
		}
		client.conn = &wsConn{conn: conn}
		hub.Register(client)
		defer client.Close()
		log.Printf("[ws] client %s connected user=%d premium=%t", client.ID, client.UserID, premium)
		go writePump(client, conn)
		readPump(conn)
		log.Printf("[ws] client %s disconnected", client.ID)
	}
}

// writePump copies messages from client.Send to the connection.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func readPump(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) SendMessage(data []byte) error {
	return w.conn.WriteMessage(websocket.TextMessage, data)
}
