package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"carmeet/config"
	"carmeet/internal/auth"
	"carmeet/internal/livemap"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func markerFrame(markers []livemap.Marker) []byte {
	data, _ := json.Marshal(map[string]interface{}{"type": "markers", "markers": markers})
	return data
}

// UpgradeMapWS upgrades a connection for the live map channel. The client
// authenticates with a token query param and then receives marker snapshots:
// one on connect and a refreshed one every interval. Self-location updates
// arrive sooner via the hub push in the location handler.
func UpgradeMapWS(cfg *config.JWTConfig, mapCfg *config.MapConfig, hub *Hub, sessions *livemap.Manager) gin.HandlerFunc {
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
		client := hub.Attach(claims.UserID)
		defer client.Close()

		session := sessions.Session(claims.UserID)
		if err := session.Refresh(false); err != nil {
			data, _ := json.Marshal(map[string]string{"error": session.Cache().Err()})
			conn.WriteMessage(websocket.TextMessage, data)
		}
		client.send <- markerFrame(session.Markers(time.Now()))

		interval := time.Duration(mapCfg.MapUpdateIntervalSec) * time.Second
		if interval <= 0 {
			interval = 5 * time.Second
		}
		go writePump(client, conn, session, interval)
		readPump(conn)
	}
}

// writePump copies frames from the hub connection to the socket and pushes
// a fresh snapshot every interval.
func writePump(c *Conn, conn *websocket.Conn, session *livemap.Session, interval time.Duration) {
	ticker := time.NewTicker(interval)
	ping := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, markerFrame(session.Markers(time.Now()))); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func readPump(conn *websocket.Conn) {
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

// PushMarkers sends the viewer's current marker list to all of their open
// map connections.
func PushMarkers(hub *Hub, viewerID uint, markers []livemap.Marker) {
	hub.Push(viewerID, markerFrame(markers))
}
