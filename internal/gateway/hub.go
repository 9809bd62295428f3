/**
 * @description
 * This file implements the websocket hub: the registry of live connections
 * and the fan-out engine behind the Broadcaster interface consumed by the
 * service layer. The hub keeps three secondary indexes (by user, by room, by
 * country) so targeted emits never scan the full client set.
 *
 * Key features:
 * - Delivery is at-most-once and best-effort: each client has a buffered send
 *   channel, and a client whose buffer is full gets the message dropped and
 *   the connection scheduled for teardown rather than blocking the emitter.
 * - Every channel send happens while holding the hub's read lock, and
 *   unregister closes the channel under the write lock, so a broadcast can
 *   never race a disconnect onto a closed channel.
 * - Ordering is guaranteed only per connection; emit order here is the order
 *   frames enter a client's send channel.
 * - The hub is constructed in main and handed to the service as a dependency.
 *   Nothing reaches it through package-level state.
 *
 * @dependencies
 * - encoding/json, log, sync: Standard Go libraries.
 * - github.com/google/uuid: Identifier keys for the user and room indexes.
 */

package gateway

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Envelope is the wire frame for every outbound websocket message.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub tracks all live websocket clients and routes events to them.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]bool
	byUser    map[uuid.UUID]map[*Client]bool
	byRoom    map[uuid.UUID]map[*Client]bool
	byCountry map[string]map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]bool),
		byUser:    make(map[uuid.UUID]map[*Client]bool),
		byRoom:    make(map[uuid.UUID]map[*Client]bool),
		byCountry: make(map[string]map[*Client]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("level=info component=gateway msg=\"client connected\" total_clients=%d", total)
}

// unregister removes the client from every index and closes its send channel.
// Safe to call more than once for the same client.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	h.removeFromIndexesLocked(c)
	close(c.send)
	total := len(h.clients)
	h.mu.Unlock()
	log.Printf("level=info component=gateway msg=\"client disconnected\" user_id=%s remaining_clients=%d", c.userID, total)
}

func (h *Hub) removeFromIndexesLocked(c *Client) {
	h.dropUserLocked(c)
	h.dropRoomLocked(c)
	h.dropCountryLocked(c)
}

func (h *Hub) dropUserLocked(c *Client) {
	if c.userID == uuid.Nil {
		return
	}
	if set, ok := h.byUser[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byUser, c.userID)
		}
	}
}

func (h *Hub) dropRoomLocked(c *Client) {
	if c.roomID == uuid.Nil {
		return
	}
	if set, ok := h.byRoom[c.roomID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byRoom, c.roomID)
		}
	}
}

func (h *Hub) dropCountryLocked(c *Client) {
	if c.countryCode == "" {
		return
	}
	if set, ok := h.byCountry[c.countryCode]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byCountry, c.countryCode)
		}
	}
}

// bindUser associates an authenticated account (and its country channel) with
// the connection, replacing any earlier binding so a repeated join cannot
// leave the connection on a previous account's channels.
func (h *Hub) bindUser(c *Client, userID uuid.UUID, countryCode string) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	h.mu.Lock()
	h.dropUserLocked(c)
	h.dropCountryLocked(c)
	c.userID = userID
	c.countryCode = ""
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*Client]bool)
	}
	h.byUser[userID][c] = true
	if countryCode != "" {
		c.countryCode = countryCode
		if h.byCountry[countryCode] == nil {
			h.byCountry[countryCode] = make(map[*Client]bool)
		}
		h.byCountry[countryCode][c] = true
	}
	h.mu.Unlock()
}

// bindRoom moves the connection onto a room channel, leaving any previous one.
func (h *Hub) bindRoom(c *Client, roomID uuid.UUID) {
	h.mu.Lock()
	h.dropRoomLocked(c)
	c.roomID = roomID
	if roomID != uuid.Nil {
		if h.byRoom[roomID] == nil {
			h.byRoom[roomID] = make(map[*Client]bool)
		}
		h.byRoom[roomID][c] = true
	}
	h.mu.Unlock()
}

// unbindRoom detaches the connection from its current room channel.
func (h *Hub) unbindRoom(c *Client) {
	h.bindRoom(c, uuid.Nil)
}

// EmitToUser pushes an event to every connection bound to the account.
func (h *Hub) EmitToUser(userID uuid.UUID, event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	h.deliverLocked(h.byUser[userID], frame)
	h.mu.RUnlock()
}

// EmitToRoom pushes an event to every connection bound to the room channel.
func (h *Hub) EmitToRoom(roomID uuid.UUID, event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	h.deliverLocked(h.byRoom[roomID], frame)
	h.mu.RUnlock()
}

// EmitToCountry pushes an event to every connection bound to the country channel.
func (h *Hub) EmitToCountry(countryCode string, event string, payload any) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	h.deliverLocked(h.byCountry[countryCode], frame)
	h.mu.RUnlock()
}

// emitTo queues a frame on one connection. A client that has already been
// unregistered is skipped; its send channel may be closed.
func (h *Hub) emitTo(c *Client, frame []byte) {
	h.mu.RLock()
	if h.clients[c] {
		h.sendLocked(c, frame)
	}
	h.mu.RUnlock()
}

// Shutdown closes every live connection. Used during graceful server stop.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	targets := collect(h.clients)
	h.mu.RUnlock()
	for _, c := range targets {
		c.conn.Close()
	}
}

func marshalEnvelope(event string, payload any) ([]byte, error) {
	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		log.Printf("level=error component=gateway msg=\"envelope marshal failed\" event=%s err=%v", event, err)
		return nil, err
	}
	return frame, nil
}

func collect(set map[*Client]bool) []*Client {
	if len(set) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// deliverLocked enqueues the frame on each target without blocking. Callers
// must hold at least the read lock: unregister closes send channels under the
// write lock, so a send here can never hit a closed channel.
func (h *Hub) deliverLocked(set map[*Client]bool, frame []byte) {
	for c := range set {
		h.sendLocked(c, frame)
	}
}

// sendLocked performs one non-blocking channel send under the hub lock. A full
// buffer means the client is too slow to keep its realtime view; it is
// disconnected.
func (h *Hub) sendLocked(c *Client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		log.Printf("level=warn component=gateway msg=\"send buffer full; dropping client\" user_id=%s", c.userID)
		go c.close()
	}
}
