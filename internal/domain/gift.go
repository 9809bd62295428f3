/**
 * @description
 * This file defines the gift catalog entities and the append-only record of a
 * completed gift send. Gifts and quantity tiers are read-only inputs to the
 * gift orchestrator; GiftTransaction rows feed the cashback roller's windowed
 * aggregation and the supporter leaderboards.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// GiftCategory splits the catalog into ordinary gifts and the "surprise"
// category that halves the bean payout and can trigger sender cashback.
type GiftCategory string

const (
	GiftOrdinary GiftCategory = "ordinary"
	GiftSurprise GiftCategory = "surprise"
)

// Gift is a catalog entity; immutable during a transaction.
type Gift struct {
	ID       uuid.UUID    `json:"id"`
	Name     string       `json:"name"`
	Diamonds int64        `json:"diamonds"` // cost per unit
	Category GiftCategory `json:"category"`
	ImageURL string       `json:"image_url,omitempty"`
	AnimURL  string       `json:"anim_url,omitempty"`
}

// QuantityTier is the client-selected multiplier applied to a gift send.
type QuantityTier struct {
	ID             uuid.UUID `json:"id"`
	Quantity       int64     `json:"quantity"`
	CashbackAmount int64     `json:"cashback_amount"`
}

// GiftTransaction is the append-only record of one successful send. It is a
// derived fact: balances remain the source of truth and are updated in the
// same storage transaction that inserts this row.
type GiftTransaction struct {
	ID            uuid.UUID `json:"id"`
	SenderID      uuid.UUID `json:"sender_id"`
	ReceiverID    uuid.UUID `json:"receiver_id"`
	RoomID        uuid.UUID `json:"room_id"`
	GiftID        uuid.UUID `json:"gift_id"`
	Quantity      int64     `json:"quantity"`
	TotalDiamonds int64     `json:"total_diamonds"`
	CountryCode   string    `json:"country_code"`
	CreatedAt     time.Time `json:"created_at"`
}

// ShopItem is a purchasable catalog entity mapped to one item capability.
type ShopItem struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Kind     ItemKind  `json:"kind"`
	Diamonds int64     `json:"diamonds"`
	Resource string    `json:"resource"` // media url or code granted on purchase
}
