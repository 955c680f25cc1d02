package server

import (
	"encoding/json"
	"net/http"

	"portfolio-dashboard/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *DashboardServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.connections.Store(0)
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connections.Store(int64(len(s.clients)))
			// Send full state on connect
			client.send <- s.initialMessage()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				s.connections.Store(int64(len(s.clients)))
			}

		case client := <-s.snapshots:
			if _, ok := s.clients[client]; ok {
				select {
				case client.send <- s.initialMessage():
				default:
				}
			}

		case message := <-s.broadcast:
			for client := range s.clients {
				select {
				case client.send <- message:
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.connections.Store(int64(len(s.clients)))
		}
	}
}

// -----------------------------------------------------------------------------
// Sink Implementation
// -----------------------------------------------------------------------------

// SetText replaces the text content of a dashboard element.
func (s *DashboardServer) SetText(elementID string, text string) error {
	s.stateMutex.Lock()
	ts := s.now().Unix()
	s.state.Texts[elementID] = text
	s.state.Timestamp = ts
	s.stateMutex.Unlock()

	s.enqueue(&models.MDashboardMessage{
		Type:      models.MessageText,
		ElementID: elementID,
		Text:      text,
		Timestamp: ts,
	})
	return nil
}

// -----------------------------------------------------------------------------

// UpdatePortfolioChart replaces the portfolio value series.
func (s *DashboardServer) UpdatePortfolioChart(dates []string, values []float64) error {
	series := &models.MPortfolioSeries{
		Dates:  append([]string(nil), dates...),
		Values: append([]float64(nil), values...),
	}

	s.stateMutex.Lock()
	ts := s.now().Unix()
	s.state.Portfolio = series
	s.state.Timestamp = ts
	s.stateMutex.Unlock()

	s.enqueue(&models.MDashboardMessage{
		Type:      models.MessagePortfolioChart,
		Portfolio: series,
		Timestamp: ts,
	})
	return nil
}

// -----------------------------------------------------------------------------

// UpdateStockPerformanceChart replaces the stock performance payload.
func (s *DashboardServer) UpdateStockPerformanceChart(data models.MStockPerformance) error {
	payload := cloneRaw(data)

	s.stateMutex.Lock()
	ts := s.now().Unix()
	s.state.Performance = payload
	s.state.Timestamp = ts
	s.stateMutex.Unlock()

	s.enqueue(&models.MDashboardMessage{
		Type:        models.MessageStockChart,
		Performance: payload,
		Timestamp:   ts,
	})
	return nil
}

// -----------------------------------------------------------------------------

// Snapshot returns a copy of the rendered dashboard.
func (s *DashboardServer) Snapshot() *models.MDashboardState {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return cloneState(s.state)
}

// -----------------------------------------------------------------------------

// enqueue hands a message to the hub without blocking the refresh that wrote it.
func (s *DashboardServer) enqueue(msg *models.MDashboardMessage) {
	select {
	case s.broadcast <- msg:
	default:
		s.Logger.Warning("Broadcast queue full, dropping %s update", msg.Type)
	}
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) initialMessage() *models.MDashboardMessage {
	state := s.Snapshot()
	return &models.MDashboardMessage{
		Type:      models.MessageInitial,
		State:     state,
		Timestamp: state.Timestamp,
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MDashboardMessage, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage answers {"command":"snapshot"} with the full state.
func (s *DashboardServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "snapshot" {
		return
	}

	select {
	case s.snapshots <- client:
	case <-s.done:
	}
}
