package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alimohammadiamirhossein/project-7/internal/game"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Client is one websocket connection. Username is set by the hello message.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	username string
	matchID  string
}

func (c *Client) identity() (username, matchID string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username, c.matchID
}

func (c *Client) setUsername(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
}

func (c *Client) setMatch(matchID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matchID = matchID
}

// delivery goes to one client when client is set, else to every client in the match.
type delivery struct {
	client  *Client
	matchID string
	payload []byte
}

// Hub tracks connected clients and routes match notifications to the
// clients that joined the match. It implements game.Notifier.
type Hub struct {
	manager   *game.Manager
	logger    *zap.Logger
	readLimit int64
	upgrader  websocket.Upgrader

	clients    map[*Client]bool
	broadcast  chan delivery
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub creates a hub serving manager. Run must be started before clients connect.
func NewHub(manager *game.Manager, readLimit int64, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		manager:   manager,
		logger:    logger,
		readLimit: readLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Commands arrive from authenticated actors; origin checks belong to the edge proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:    make(map[*Client]bool),
		broadcast:  make(chan delivery, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("client registered", zap.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				username, _ := client.identity()
				h.logger.Debug("client unregistered", zap.String("username", username))
			}

		case d := <-h.broadcast:
			for client := range h.clients {
				if d.client != nil && client != d.client {
					continue
				}
				if _, matchID := client.identity(); d.client == nil && matchID != d.matchID {
					continue
				}
				select {
				case client.send <- d.payload:
				default:
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("client too slow, dropped")
				}
			}
		}
	}
}

// Notify implements game.Notifier.
func (h *Hub) Notify(n game.Notification) {
	data, err := json.Marshal(Outbound{Type: TypeNotification, MatchID: n.MatchID, Payload: n})
	if err != nil {
		h.logger.Error("failed to encode notification", zap.String("match_id", n.MatchID), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- delivery{matchID: n.MatchID, payload: data}:
	case <-h.done:
	}
}

// ServeHTTP upgrades the request and starts the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go h.readPump(client)
}

func (h *Hub) readPump(c *Client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	if h.readLimit > 0 {
		c.conn.SetReadLimit(h.readLimit)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			h.reply(c, Outbound{Type: TypeError, Payload: NewErrorPayload(fmt.Errorf("%w: %v", ErrBadRequest, err))})
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		out := h.handle(ctx, c, env)
		cancel()
		h.reply(c, out)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) reply(c *Client, out Outbound) {
	data, err := json.Marshal(out)
	if err != nil {
		h.logger.Error("failed to encode reply", zap.String("type", string(out.Type)), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- delivery{client: c, payload: data}:
	case <-h.done:
	}
}

var errNoHello = fmt.Errorf("%w: say hello first", ErrBadRequest)

// handle runs one inbound message and returns the direct reply.
func (h *Hub) handle(ctx context.Context, c *Client, env Envelope) Outbound {
	fail := func(err error) Outbound {
		return Outbound{Type: TypeError, RequestID: env.RequestID, MatchID: env.MatchID, Payload: NewErrorPayload(err)}
	}

	username, joined := c.identity()
	if env.Type != TypeHello && username == "" {
		return fail(errNoHello)
	}
	matchID := env.MatchID
	if matchID == "" {
		matchID = joined
	}

	switch {
	case env.Type == TypeHello:
		var p HelloPayload
		if err := decodePayload(env, &p); err != nil {
			return fail(err)
		}
		if p.Username == "" {
			return fail(fmt.Errorf("%w: empty username", ErrBadRequest))
		}
		c.setUsername(p.Username)
		return Outbound{Type: TypeWelcome, RequestID: env.RequestID,
			Payload: WelcomePayload{Username: p.Username, Decks: h.manager.Decks()}}

	case env.Type == TypeCreateMatch:
		var p CreateMatchPayload
		if err := decodePayload(env, &p); err != nil {
			return fail(err)
		}
		gameType, err := game.ParseGameType(p.GameType)
		if err != nil {
			return fail(fmt.Errorf("%w: %v", ErrBadRequest, err))
		}
		id, err := h.manager.Create([2]game.PlayerSpec{
			{Username: username, Deck: p.Deck},
			{Username: p.Opponent, Deck: p.OpponentDeck},
		}, gameType)
		if err != nil {
			return fail(fmt.Errorf("%w: %v", ErrBadRequest, err))
		}
		c.setMatch(id)
		return h.view(env, id, username, TypeMatchCreated)

	case env.Type == TypeJoin:
		if _, err := h.manager.Participants(matchID); err != nil {
			return fail(err)
		}
		c.setMatch(matchID)
		return h.view(env, matchID, username, TypeMatchView)

	case env.Type == TypeView:
		return h.view(env, matchID, username, TypeMatchView)

	case IsCommand(env.Type):
		cmd, err := DecodeCommand(env)
		if err != nil {
			return fail(err)
		}
		result, err := h.manager.Apply(ctx, matchID, username, cmd)
		if result.Command == "" {
			return fail(err)
		}
		payload := ResultPayload{Result: result}
		if err != nil {
			warning := NewErrorPayload(err)
			payload.Warning = &warning
		}
		return Outbound{Type: TypeResult, RequestID: env.RequestID, MatchID: matchID, Payload: payload}

	default:
		return fail(fmt.Errorf("%w: unknown message type %q", ErrBadRequest, env.Type))
	}
}

func (h *Hub) view(env Envelope, matchID, username string, as MessageType) Outbound {
	view, err := h.manager.View(matchID, username)
	if err != nil {
		return Outbound{Type: TypeError, RequestID: env.RequestID, MatchID: matchID, Payload: NewErrorPayload(err)}
	}
	return Outbound{Type: as, RequestID: env.RequestID, MatchID: matchID, Payload: view}
}
