/**
 * @description
 * This file defines the realtime event vocabulary exchanged over the
 * websocket gateway: inbound client event names, outbound server event names,
 * and the payload structs for the outbound side. Delivery is at-most-once and
 * best-effort; ordering is guaranteed only within a single connection.
 */

package domain

import "github.com/google/uuid"

// Inbound event names (client -> server).
const (
	EvtJoin      = "join"
	EvtJoinRoom  = "joinRoom"
	EvtLeaveRoom = "leaveRoom"
	EvtSeatOn    = "seatOn"
	EvtSeatOff   = "seatOff"
	EvtSendGift  = "sendGift"
)

// Outbound event names (server -> client).
const (
	EvtUserDataUpdate    = "userDataUpdate"
	EvtErrorMessage      = "errorMessage"
	EvtGiftSent          = "giftSent"
	EvtDiamondUpdate     = "diamondUpdate"
	EvtBeanUpdate        = "beanUpdate"
	EvtTreasureBoxUpdate = "treasureBoxUpdate"
	EvtGiftUpdate        = "giftUpdate"
	EvtRoomDataUpdate    = "roomDataUpdate"
	EvtCashbackNotice    = "cashbackNotice"
)

// ErrorPayload is pushed only to the requesting sender's personal channel.
type ErrorPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DiamondUpdatePayload carries a sender's post-send diamond balance.
type DiamondUpdatePayload struct {
	AccountID uuid.UUID `json:"account_id"`
	Diamonds  int64     `json:"diamonds"`
	Level     int       `json:"level"`
	XP        string    `json:"xp"`
}

// BeanUpdatePayload carries a receiver's post-send bean balance.
type BeanUpdatePayload struct {
	AccountID uuid.UUID `json:"account_id"`
	Beans     int64     `json:"beans"`
}

// CashbackNoticePayload tells a sender a cashback roll paid out.
type CashbackNoticePayload struct {
	AccountID uuid.UUID `json:"account_id"`
	Diamonds  int64     `json:"diamonds"` // balance after the credit
	Cashback  int64     `json:"cashback"`
}

// GiftSentPayload is the country-wide announcement of a completed send.
type GiftSentPayload struct {
	SenderID     uuid.UUID `json:"sender_id"`
	SenderName   string    `json:"sender_name"`
	ReceiverID   uuid.UUID `json:"receiver_id"`
	ReceiverName string    `json:"receiver_name"`
	RoomID       uuid.UUID `json:"room_id"`
	GiftID       uuid.UUID `json:"gift_id"`
	GiftName     string    `json:"gift_name"`
	GiftImageURL string    `json:"gift_image_url,omitempty"`
	Quantity     int64     `json:"quantity"`
	Count        int64     `json:"count"`
	TotalCost    int64     `json:"total_cost"`
	CountryCode  string    `json:"country_code"`
}

// TreasureBoxPayload is the room-scoped treasure box state after a send.
type TreasureBoxPayload struct {
	RoomID            uuid.UUID `json:"room_id"`
	DiamondsUsedToday int64     `json:"diamonds_used_today"`
	TreasureBoxLevel  int       `json:"treasure_box_level"`
}

// GiftUpdatePayload is the room-scoped generic gift notification.
type GiftUpdatePayload struct {
	RoomID     uuid.UUID `json:"room_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	GiftID     uuid.UUID `json:"gift_id"`
	Quantity   int64     `json:"quantity"`
}
