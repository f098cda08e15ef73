package websocket

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
)

// ErrHubStopped is returned by Serve after the hub has shut down
var ErrHubStopped = errors.New("feed hub stopped")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Subscribers authenticate with a bearer token, not cookies
	CheckOrigin: func(*http.Request) bool { return true },
}

// Serve upgrades the request and subscribes the connection to communityID.
// The caller must have authorized userID already. On an upgrade failure the
// upgrader has written the HTTP error response.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, communityID, userID int64) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := newClient(h, conn, communityID, userID)
	if !h.Register(client) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return ErrHubStopped
	}

	go client.writePump()
	go client.readPump()

	h.logger.Info().
		Int64("communityID", communityID).
		Int64("userID", userID).
		Str("remoteAddr", conn.RemoteAddr().String()).
		Msg("Feed subscription established")
	return nil
}
