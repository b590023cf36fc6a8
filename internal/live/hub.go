// Package live pushes collection snapshots to websocket clients whenever the
// backing store reports a change.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/entities"
	"github.com/sboapp/admin/internal/logger"
	"github.com/sboapp/admin/internal/metrics"
	"github.com/sboapp/admin/internal/repository"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var ErrUnknownCollection = errors.New("unknown live collection")

// Message is one frame sent to a client: the full current collection.
type Message struct {
	Collection string `json:"collection"`
	Data       any    `json:"data"`
	SentAt     int64  `json:"sentAt"`
}

type subscribeFunc func(ctx context.Context, emit func(any)) (func(), error)

// Hub maps collection names to store subscriptions and tracks open clients.
type Hub struct {
	sources  map[string]subscribeFunc
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub exposes books, users, auditLogs and analytics. Audit frames carry the
// newest auditLimit entries.
func NewHub(lib *repository.Library, auditLimit int) *Hub {
	if auditLimit <= 0 {
		auditLimit = audit.DefaultLimit
	}
	h := &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	h.sources = map[string]subscribeFunc{
		repository.CollectionBooks: func(ctx context.Context, emit func(any)) (func(), error) {
			return lib.Books.Subscribe(ctx, func(books []entities.Book) { emit(books) })
		},
		repository.CollectionUsers: func(ctx context.Context, emit func(any)) (func(), error) {
			return lib.Users.Subscribe(ctx, func(users []entities.User) { emit(users) })
		},
		repository.CollectionAuditLogs: func(ctx context.Context, emit func(any)) (func(), error) {
			return lib.AuditLogs.Subscribe(ctx, func(logs []entities.AuditLog) { emit(audit.Recent(logs, auditLimit)) })
		},
		"analytics": func(ctx context.Context, emit func(any)) (func(), error) {
			return lib.AppData.SubscribeAnalytics(ctx, func(a *entities.Analytics) { emit(a) })
		},
	}
	return h
}

// Collections lists the names accepted by Handle.
func (h *Hub) Collections() []string {
	names := make([]string, 0, len(h.sources))
	for name := range h.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clients returns the number of open sockets.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handle serves GET /api/live/:collection.
func (h *Hub) Handle(c *gin.Context) {
	name := c.Param("collection")
	subscribe, ok := h.sources[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrUnknownCollection.Error(), "code": "not_found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithFields(logrus.Fields{"collection": name, "error": err}).Warn("websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	cl := &client{
		hub:        h,
		conn:       conn,
		collection: name,
		send:       make(chan []byte, 1),
		cancel:     cancel,
	}

	unsubscribe, err := subscribe(ctx, cl.emit)
	if err != nil {
		logger.WithFields(logrus.Fields{"collection": name, "error": err}).Error("live subscribe failed")
		cancel()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	cl.unsubscribe = unsubscribe

	h.register(cl)
	go cl.writePump(ctx)
	go cl.readPump()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.Unlock()

	for _, cl := range clients {
		cl.close()
	}
}

func (h *Hub) register(cl *client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	metrics.SubscriberOpened(cl.collection)
	logger.WithFields(logrus.Fields{"collection": cl.collection}).Debug("live client connected")
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	delete(h.clients, cl)
	h.mu.Unlock()
	if ok {
		metrics.SubscriberClosed(cl.collection)
		logger.WithFields(logrus.Fields{"collection": cl.collection}).Debug("live client disconnected")
	}
}

type client struct {
	hub         *Hub
	conn        *websocket.Conn
	collection  string
	send        chan []byte
	cancel      context.CancelFunc
	unsubscribe func()
	closeOnce   sync.Once
}

// emit keeps only the newest frame when the writer falls behind; each frame
// is a full snapshot so older ones are redundant.
func (c *client) emit(data any) {
	payload, err := json.Marshal(Message{Collection: c.collection, Data: data, SentAt: time.Now().UnixMilli()})
	if err != nil {
		logger.WithFields(logrus.Fields{"collection": c.collection, "error": err}).Error("live encode failed")
		return
	}
	for {
		select {
		case c.send <- payload:
			return
		default:
		}
		select {
		case <-c.send:
		default:
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		c.hub.unregister(c)
		_ = c.conn.Close()
	})
}

// readPump discards client frames; it exists to process pongs and notice the
// peer going away.
func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithFields(logrus.Fields{"collection": c.collection, "error": err}).Debug("live read error")
			}
			return
		}
	}
}

func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
