/**
 * @description
 * This file implements the client side of the websocket gateway: the HTTP
 * upgrade handler, the per-connection read/write pumps, and the dispatch of
 * inbound room events (join, joinRoom, leaveRoom, seatOn, seatOff, sendGift)
 * into the service layer.
 *
 * Key features:
 * - A connection is anonymous until its join event binds it to an account and
 *   the account's country channel.
 * - Failures are reported only to the requesting connection as errorMessage
 *   events; they are never broadcast to the room.
 * - A dropped connection triggers the same room leave path as an explicit
 *   leaveRoom event, so host sessions and member lists stay consistent.
 *
 * @dependencies
 * - github.com/gorilla/websocket: Connection upgrade and frame IO.
 * - internal/app, internal/domain, internal/store: Service entry points,
 *   event vocabulary and error sentinels.
 */

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/usefuns/gifting-service/internal/app"
	"github.com/usefuns/gifting-service/internal/domain"
	"github.com/usefuns/gifting-service/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 64
	dispatchWait   = 10 * time.Second
)

// EconomyService is the slice of the service layer the gateway drives.
type EconomyService interface {
	AccountSnapshot(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	JoinRoom(ctx context.Context, userID, roomID uuid.UUID) (*domain.Room, error)
	LeaveRoom(ctx context.Context, userID, roomID uuid.UUID) error
	SetSeat(ctx context.Context, userID uuid.UUID, onSeat bool) (*domain.Account, error)
	SendGift(ctx context.Context, req app.SendGiftRequest) (*app.SendGiftResult, error)
}

// Client is one live websocket connection and its channel bindings.
type Client struct {
	hub  *Hub
	svc  EconomyService
	conn *websocket.Conn
	send chan []byte

	userID      uuid.UUID
	roomID      uuid.UUID
	countryCode string

	closeOnce sync.Once
}

// Handler upgrades HTTP requests to websocket connections and owns the hub.
type Handler struct {
	hub      *Hub
	svc      EconomyService
	upgrader websocket.Upgrader
}

// NewHandler creates the websocket endpoint handler.
func NewHandler(hub *Hub, svc EconomyService) *Handler {
	return &Handler{
		hub: hub,
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// TODO: restrict origins once the client domains are finalized.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles GET /ws.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("level=error component=gateway msg=\"websocket upgrade failed\" err=%v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		svc:  h.svc,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.hub.register(client)

	go client.writePump()
	go client.readPump()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.teardown()
		c.hub.unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("level=warn component=gateway msg=\"websocket read error\" user_id=%s err=%v", c.userID, err)
			}
			return
		}
		c.dispatch(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
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

// teardown runs the implicit leave path when the socket drops while the
// connection is still inside a room.
func (c *Client) teardown() {
	if c.userID == uuid.Nil || c.roomID == uuid.Nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), dispatchWait)
	defer cancel()
	if err := c.svc.LeaveRoom(ctx, c.userID, c.roomID); err != nil {
		log.Printf("level=warn component=gateway msg=\"implicit room leave failed\" user_id=%s room_id=%s err=%v", c.userID, c.roomID, err)
	}
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinPayload struct {
	UserID uuid.UUID `json:"user_id"`
}

type roomPayload struct {
	RoomID uuid.UUID `json:"room_id"`
}

type sendGiftPayload struct {
	ReceiverID uuid.UUID `json:"receiver_id"`
	GiftID     uuid.UUID `json:"gift_id"`
	TierID     uuid.UUID `json:"tier_id"`
	Count      int64     `json:"count"`
}

func (c *Client) dispatch(raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.emitError("invalid message frame")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchWait)
	defer cancel()

	switch frame.Event {
	case domain.EvtJoin:
		c.handleJoin(ctx, frame.Data)
	case domain.EvtJoinRoom:
		c.handleJoinRoom(ctx, frame.Data)
	case domain.EvtLeaveRoom:
		c.handleLeaveRoom(ctx)
	case domain.EvtSeatOn:
		c.handleSeat(ctx, true)
	case domain.EvtSeatOff:
		c.handleSeat(ctx, false)
	case domain.EvtSendGift:
		c.handleSendGift(ctx, frame.Data)
	default:
		c.emitError("unknown event: " + frame.Event)
	}
}

func (c *Client) handleJoin(ctx context.Context, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.UserID == uuid.Nil {
		c.emitError("join requires a user_id")
		return
	}
	account, err := c.svc.AccountSnapshot(ctx, p.UserID)
	if err != nil {
		c.emitError(publicError(err))
		return
	}
	c.hub.bindUser(c, account.ID, account.CountryCode)
	c.emit(domain.EvtUserDataUpdate, account)
}

func (c *Client) handleJoinRoom(ctx context.Context, data json.RawMessage) {
	if c.userID == uuid.Nil {
		c.emitError("join before joining a room")
		return
	}
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == uuid.Nil {
		c.emitError("joinRoom requires a room_id")
		return
	}
	room, err := c.svc.JoinRoom(ctx, c.userID, p.RoomID)
	if err != nil {
		c.emitError(publicError(err))
		return
	}
	c.hub.bindRoom(c, room.ID)
}

func (c *Client) handleLeaveRoom(ctx context.Context) {
	if c.userID == uuid.Nil || c.roomID == uuid.Nil {
		// Leaving while roomless is a no-op, not an error.
		return
	}
	roomID := c.roomID
	c.hub.unbindRoom(c)
	if err := c.svc.LeaveRoom(ctx, c.userID, roomID); err != nil {
		c.emitError(publicError(err))
	}
}

func (c *Client) handleSeat(ctx context.Context, onSeat bool) {
	if c.userID == uuid.Nil || c.roomID == uuid.Nil {
		// Seat toggles outside a room change nothing.
		return
	}
	account, err := c.svc.SetSeat(ctx, c.userID, onSeat)
	if err != nil {
		c.emitError(publicError(err))
		return
	}
	c.emit(domain.EvtUserDataUpdate, account)
}

func (c *Client) handleSendGift(ctx context.Context, data json.RawMessage) {
	if c.userID == uuid.Nil {
		c.emitError("join before sending gifts")
		return
	}
	if c.roomID == uuid.Nil {
		c.emitError("join a room before sending gifts")
		return
	}
	var p sendGiftPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.emitError("invalid sendGift payload")
		return
	}
	_, err := c.svc.SendGift(ctx, app.SendGiftRequest{
		SenderID:   c.userID,
		ReceiverID: p.ReceiverID,
		RoomID:     c.roomID,
		GiftID:     p.GiftID,
		TierID:     p.TierID,
		Count:      p.Count,
	})
	if err != nil {
		c.emitError(publicError(err))
	}
}

// emit queues an event on this connection only. The send goes through the hub
// so it holds the same lock that guards the channel's lifetime.
func (c *Client) emit(event string, payload any) {
	frame, err := marshalEnvelope(event, payload)
	if err != nil {
		return
	}
	c.hub.emitTo(c, frame)
}

func (c *Client) emitError(message string) {
	c.emit(domain.EvtErrorMessage, domain.ErrorPayload{Success: false, Message: message})
}

// publicError maps internal failures to messages safe to show a client.
func publicError(err error) string {
	switch {
	case errors.Is(err, store.ErrInsufficientFunds):
		return "insufficient balance"
	case errors.Is(err, app.ErrRateLimited):
		return "you are sending gifts too quickly"
	case errors.Is(err, app.ErrValidation):
		return err.Error()
	case errors.Is(err, store.ErrAccountNotFound):
		return "account not found"
	case errors.Is(err, store.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, store.ErrGiftNotFound):
		return "gift not found"
	case errors.Is(err, store.ErrTierNotFound):
		return "quantity tier not found"
	default:
		log.Printf("level=error component=gateway msg=\"request failed\" err=%v", err)
		return "request failed"
	}
}
