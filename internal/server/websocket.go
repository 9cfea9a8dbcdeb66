package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/franckalain/nutrisnap/internal/models"
	"github.com/franckalain/nutrisnap/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, this should be more restrictive
	},
}

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type pendingEstimate struct {
	description string
	estimate    *models.NutrientEstimate
}

// client is one websocket connection. Writes are serialized because
// estimations answer from their own goroutines.
type client struct {
	id   string
	conn *websocket.Conn

	mu      sync.Mutex
	pending map[string]pendingEstimate
}

func (c *client) send(messageType string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(map[string]any{"type": messageType, "data": data}); err != nil {
		log.Printf("Error sending %s to client %s: %v", messageType, c.id, err)
	}
}

func (c *client) sendError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(map[string]any{"type": "error", "message": message}); err != nil {
		log.Printf("Error sending error message to client %s: %v", c.id, err)
	}
}

func (c *client) hold(id string, p pendingEstimate) {
	c.mu.Lock()
	c.pending[id] = p
	c.mu.Unlock()
}

func (c *client) take(id string) (pendingEstimate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[id]
	delete(c.pending, id)
	return p, ok
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	defer conn.Close()

	// In-flight estimations are abandoned when the connection goes away
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &client{id: uuid.New().String(), conn: conn, pending: make(map[string]pendingEstimate)}
	s.clients.Store(c.id, c)
	defer s.clients.Delete(c.id)

	var wg sync.WaitGroup
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("Error reading message:", err)
			}
			break
		}

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Println("Error parsing message:", err)
			c.sendError("Invalid message format")
			continue
		}
		if s.debug {
			log.Printf("Received %s from client %s: %s", msg.Type, c.id, msg.Data)
		}

		switch msg.Type {
		case "estimate", "log_meal":
			// Estimations may overlap; each answers when it finishes
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.handleWebSocketMessage(ctx, c, msg)
			}()
		default:
			s.handleWebSocketMessage(ctx, c, msg)
		}
	}

	cancel()
	wg.Wait()
}

func (s *Server) handleWebSocketMessage(ctx context.Context, c *client, msg wsMessage) {
	var data struct {
		ID          string `json:"id"`
		Description string `json:"description"`
	}
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid message data")
			return
		}
	}

	switch msg.Type {
	case "estimate":
		s.handleWSEstimate(ctx, c, data.Description)
	case "confirm_meal":
		s.handleWSConfirm(ctx, c, data.ID)
	case "log_meal":
		meal, err := s.logMeal(ctx, data.Description)
		s.afterRecord(c, meal, err)
	case "delete_meal":
		if data.ID == "" {
			c.sendError("Missing meal ID")
			return
		}
		if err := s.store.Remove(ctx, data.ID); err != nil {
			log.Printf("Error deleting meal %s: %v", data.ID, err)
			c.sendError(errorMessage(err))
		}
		c.send("meal_deleted", map[string]string{"id": data.ID})
		s.broadcastHistory()
	case "get_history":
		c.send("history", s.history(0))
	case "clear_today":
		n, err := s.store.ClearDay(ctx, s.now())
		if err != nil {
			log.Printf("Error clearing today's meals: %v", err)
			c.sendError(errorMessage(err))
		}
		c.send("today_cleared", map[string]int{"removed": n})
		s.broadcastHistory()
	default:
		c.sendError("Unknown message type")
	}
}

type estimateResult struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	models.NutrientEstimate
}

func (s *Server) handleWSEstimate(ctx context.Context, c *client, description string) {
	description, est, err := s.estimateMeal(ctx, description)
	if err != nil {
		log.Printf("Error estimating nutrients: %v", err)
		c.sendError(errorMessage(err))
		return
	}

	id := uuid.New().String()
	c.hold(id, pendingEstimate{description: description, estimate: est})
	c.send("estimate_result", estimateResult{ID: id, Description: description, NutrientEstimate: *est})
}

func (s *Server) handleWSConfirm(ctx context.Context, c *client, id string) {
	if id == "" {
		c.sendError("Missing estimate ID")
		return
	}
	p, ok := c.take(id)
	if !ok {
		log.Printf("Pending estimate not found for ID: %s", id)
		c.sendError("Estimate not found")
		return
	}
	meal, err := s.recordMeal(ctx, p.description, p.estimate)
	s.afterRecord(c, meal, err)
}

// afterRecord reports the outcome of adding a meal. A meal that was added
// in memory is announced even when saving it failed.
func (s *Server) afterRecord(c *client, meal *models.Meal, err error) {
	if err != nil {
		log.Printf("Error logging meal: %v", err)
		c.sendError(errorMessage(err))
		if !errors.Is(err, store.ErrPersist) {
			return
		}
	}
	c.send("meal_added", meal)
	s.broadcastHistory()
}

func (s *Server) broadcastHistory() {
	h := s.history(0)
	s.clients.Range(func(_, value any) bool {
		value.(*client).send("history", h)
		return true
	})
}
