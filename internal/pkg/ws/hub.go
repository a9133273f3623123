package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
)

type Hub struct {
	// 每个用户可以有多个连接（多标签页、重连等场景），按邮箱索引
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	Email string
	Conn  *websocket.Conn
	mu    sync.Mutex // 写锁，防止并发写入
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.Email] == nil {
		h.clients[client.Email] = make(map[*Client]struct{})
	}
	h.clients[client.Email][client] = struct{}{}

	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	logger.Get().Debug("ws connected",
		zap.String("email", client.Email),
		zap.Int("user_conns", len(h.clients[client.Email])),
		zap.Int("total", total))
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[client.Email]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.Email)
		}
	}
	logger.Get().Debug("ws disconnected", zap.String("email", client.Email))
}

// SendToUser 向指定用户的所有连接发送消息
func (h *Hub) SendToUser(email string, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns, ok := h.clients[email]
	if !ok {
		h.mu.RUnlock()
		return nil
	}
	// 复制一份引用，避免长时间持锁
	clients := make([]*Client, 0, len(conns))
	for c := range conns {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		err := c.Conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			logger.Get().Warn("ws write failed", zap.String("email", email), zap.Error(err))
		}
	}
	return nil
}

// IsOnline 检查用户是否在线
func (h *Hub) IsOnline(email string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.clients[email]
	return ok && len(conns) > 0
}

// ConnectionCount 获取在线连接数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
