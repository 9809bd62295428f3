/**
 * @description
 * This file defines the `Repository` interface: the contract for all data
 * access the gifting-service performs. Defining an interface decouples the
 * orchestration logic from the PostgreSQL implementation and lets the service
 * tests run against an in-memory fake.
 *
 * @dependencies
 * - context, math/big, time: Standard Go libraries.
 * - github.com/google/uuid: For entity identifiers.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/usefuns/gifting-service/internal/domain"
)

// BalanceDeltaParams describes one ledgered balance mutation. A negative
// delta is a debit and is applied only when the current balance covers it.
type BalanceDeltaParams struct {
	AccountID    uuid.UUID
	DiamondDelta int64
	BeanDelta    int64
	Reason       domain.LedgerReason
}

// GiftApplyParams carries the precomputed effects of one gift send into the
// storage transaction. The level and treasure-box functions are supplied by
// the caller so the store stays free of threshold configuration.
type GiftApplyParams struct {
	SenderID         uuid.UUID
	ReceiverID       uuid.UUID
	RoomID           uuid.UUID
	GiftID           uuid.UUID
	Quantity         int64
	DiamondsDebited  int64
	BeansCredited    int64
	CashbackCredited int64
	CountryCode      string
	Now              time.Time
	LevelForXP       func(xp *big.Int) int
	TreasureBoxLevel func(diamondsUsedToday int64) int
}

// GiftApplyResult reports the post-commit state the orchestrator broadcasts.
type GiftApplyResult struct {
	TransactionID     uuid.UUID
	SenderDiamonds    int64
	SenderXP          *big.Int
	SenderLevel       int
	ReceiverBeans     int64
	DiamondsUsedToday int64
	TreasureBoxLevel  int
}

// LedgerQuery selects a page of an account's audit trail.
type LedgerQuery struct {
	AccountID uuid.UUID
	Reason    *domain.LedgerReason
	Limit     int
	Offset    int
}

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Account methods
	FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	// ApplyBalanceDelta performs the guarded, ledgered balance mutation
	// described by the params as one atomic storage operation. It fails with
	// ErrInsufficientFunds (and writes nothing) when a debit is not covered.
	ApplyBalanceDelta(ctx context.Context, p BalanceDeltaParams) (*domain.BalanceSnapshot, error)
	PurchaseShopItem(ctx context.Context, accountID uuid.UUID, item domain.ShopItem) (*domain.BalanceSnapshot, error)
	SetAccountRoom(ctx context.Context, accountID uuid.UUID, roomID *uuid.UUID) error
	SetAccountSeat(ctx context.Context, accountID uuid.UUID, onSeat bool) (*domain.Account, error)
	FindLedgerEntries(ctx context.Context, q LedgerQuery) ([]domain.LedgerEntry, error)

	// Gift catalog methods
	FindGiftByID(ctx context.Context, giftID uuid.UUID) (*domain.Gift, error)
	FindQuantityTierByID(ctx context.Context, tierID uuid.UUID) (*domain.QuantityTier, error)
	FindShopItemByID(ctx context.Context, itemID uuid.UUID) (*domain.ShopItem, error)

	// Gift transaction methods
	// ApplyGiftSend applies every economic effect of one send in a single
	// storage transaction: the guarded sender debit, XP/level update, cashback
	// credit, receiver bean credit, the GiftTransaction record, the ledger
	// entries and the room counters. All or nothing.
	ApplyGiftSend(ctx context.Context, p GiftApplyParams) (*GiftApplyResult, error)
	SumCountryGiftVolume(ctx context.Context, countryCode string, since time.Time) (int64, error)

	// Room methods
	FindRoomByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error)
	AddRoomMember(ctx context.Context, roomID, accountID uuid.UUID) error
	RemoveRoomMember(ctx context.Context, roomID, accountID uuid.UUID) error
	MarkHostJoined(ctx context.Context, roomID uuid.UUID, at time.Time) error
	// FinalizeHostSession closes an open host session, recording the elapsed
	// seconds since the host joined. It is a no-op returning (0, nil) when no
	// session is open.
	FinalizeHostSession(ctx context.Context, roomID uuid.UUID, at time.Time) (int64, error)
}
