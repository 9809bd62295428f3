/**
 * @description
 * This file defines the account-side domain models for the gifting-service.
 * An Account holds the two virtual-currency balances (spendable diamonds and
 * earned beans) plus the lifetime progression counters that drive levels.
 *
 * @notes
 * - Balances are stored as `int64` in whole currency units; they are never
 *   allowed to go negative (enforced at the storage boundary).
 * - XP accumulates for the lifetime of an account and can exceed the safe
 *   integer range, so it is carried as a `*big.Int` and serialized to a
 *   decimal string only when crossing the storage boundary.
 */

package domain

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Account represents one user's economy state. This struct maps directly to
// the `accounts` table in the database.
type Account struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Username     string     `json:"username"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	CountryCode  string     `json:"country_code"`
	Diamonds     int64      `json:"diamonds"`
	Beans        int64      `json:"beans"`
	UsedDiamonds int64      `json:"used_diamonds"`
	XP           *big.Int   `json:"-"`
	Level        int        `json:"level"`
	OnSeat       bool       `json:"on_seat"`
	IsLive       bool       `json:"is_live"`
	RoomID       *uuid.UUID `json:"room_id,omitempty"`
	Items        ItemSet    `json:"items"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// XPString returns the decimal-string form of the account's XP, the only
// representation that ever leaves the process.
func (a *Account) XPString() string {
	if a.XP == nil {
		return "0"
	}
	return a.XP.String()
}

// MarshalJSON emits XP as a decimal string. A raw big.Int would render as a
// bare JSON number, which clients cannot parse once it exceeds 2^53.
func (a *Account) MarshalJSON() ([]byte, error) {
	type alias Account
	return json.Marshal(struct {
		*alias
		XP string `json:"xp"`
	}{alias: (*alias)(a), XP: a.XPString()})
}

// LedgerReason tags every balance mutation with its business cause.
type LedgerReason string

const (
	ReasonGift            LedgerReason = "Gift"
	ReasonShop            LedgerReason = "Shop"
	ReasonGame            LedgerReason = "Game"
	ReasonRecharge        LedgerReason = "Recharge"
	ReasonCashbackRewards LedgerReason = "Cashback Rewards"
	ReasonBeansToDiamonds LedgerReason = "Beans-To-Diamonds"
)

// LedgerEntryKind distinguishes debits from credits in the audit trail.
type LedgerEntryKind string

const (
	LedgerDebit  LedgerEntryKind = "debit"
	LedgerCredit LedgerEntryKind = "credit"
)

// LedgerEntry is one append-only audit row. Entries are created exactly once
// per economic effect and are never updated or deleted.
type LedgerEntry struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    int64           `json:"amount"` // signed; negative for debits
	Kind      LedgerEntryKind `json:"kind"`
	Reason    LedgerReason    `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}

// BalanceSnapshot is the pair of balances returned by ledger operations and
// pushed to clients in diamond/bean update events.
type BalanceSnapshot struct {
	AccountID uuid.UUID `json:"account_id"`
	Diamonds  int64     `json:"diamonds"`
	Beans     int64     `json:"beans"`
}
