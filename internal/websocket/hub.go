package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"

	"github.com/storytailer/api/internal/model"
)

// Client represents one WebSocket subscriber for a story.
type Client struct {
	StoryID string
	Conn    *websocket.Conn
	Send    chan []byte
}

// Hub maintains active WebSocket connections grouped by story id and fans
// out status updates to them.
type Hub struct {
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	mu sync.RWMutex
}

type broadcastMessage struct {
	storyID string
	message []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.StoryID] == nil {
				h.clients[client.StoryID] = make(map[*Client]bool)
			}
			h.clients[client.StoryID][client] = true
			h.mu.Unlock()
			log.Debug().Str("storyId", client.StoryID).Msg("WebSocket client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.StoryID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.StoryID)
					}
				}
			}
			h.mu.Unlock()
			log.Debug().Str("storyId", client.StoryID).Msg("WebSocket client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[msg.storyID]; ok {
				for client := range clients {
					select {
					case client.Send <- msg.message:
					default:
						close(client.Send)
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// StoryUpdated pushes the story's current status snapshot to its
// subscribers. It satisfies the pipeline's notifier hook.
func (h *Hub) StoryUpdated(story *model.Story) {
	msg := model.WSStatusMessage{
		Type:         model.WSMessageTypeStatus,
		StoryID:      story.ID,
		Status:       story.Status,
		Title:        story.Title,
		AudioURL:     story.AudioURL,
		ErrorMessage: story.ErrorMessage,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal status message")
		return
	}

	h.broadcast <- &broadcastMessage{storyID: story.ID, message: data}
}

// HandleConnection services one WebSocket connection until the peer closes
// it. A writer goroutine drains the send channel and keeps the connection
// alive with pings.
func (h *Hub) HandleConnection(c *websocket.Conn, storyID string) {
	client := &Client{
		StoryID: storyID,
		Conn:    c,
		Send:    make(chan []byte, 256),
	}

	h.Register(client)
	defer h.Unregister(client)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("storyId", storyID).Msg("WebSocket read error")
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong := model.WSMessage{Type: model.WSMessageTypePong}
			data, _ := json.Marshal(pong)
			client.Send <- data
		}
	}
}
