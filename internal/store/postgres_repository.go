/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface for accounts, catalog entities, ledger history and rooms. The one
 * correctness-critical rule lives here: every debit is applied as a single
 * guarded UPDATE against the stored balance, never as a read followed by an
 * unconditional write, so two concurrent sends can never drive a balance
 * negative.
 *
 * @dependencies
 * - context, errors, math/big, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/usefuns/gifting-service/internal/domain"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrGiftNotFound      = errors.New("gift not found")
	ErrTierNotFound      = errors.New("quantity tier not found")
	ErrShopItemNotFound  = errors.New("shop item not found")
	ErrRoomNotFound      = errors.New("room not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, name, username, avatar_url, country_code, diamonds, beans,
	used_diamonds, xp, level, on_seat, is_live, room_id,
	frames, chat_bubbles, themes, vehicles, relationships, special_ids, lock_rooms, extra_seats,
	created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var xpStr string
	err := row.Scan(
		&a.ID, &a.Name, &a.Username, &a.AvatarURL, &a.CountryCode, &a.Diamonds, &a.Beans,
		&a.UsedDiamonds, &xpStr, &a.Level, &a.OnSeat, &a.IsLive, &a.RoomID,
		&a.Items.Frames, &a.Items.ChatBubbles, &a.Items.Themes, &a.Items.Vehicles,
		&a.Items.Relationships, &a.Items.SpecialIDs, &a.Items.LockRooms, &a.Items.ExtraSeats,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	xp, ok := new(big.Int).SetString(xpStr, 10)
	if !ok {
		return nil, fmt.Errorf("account %s has malformed xp %q", a.ID, xpStr)
	}
	a.XP = xp
	return &a, nil
}

// FindAccountByID retrieves an account with its balances, progression state
// and item collections.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, accountID))
}

// ApplyBalanceDelta mutates both balances with a single guarded UPDATE and
// appends one ledger entry per currency touched, all inside one transaction.
// The WHERE clause is the insufficient-funds precondition: when it does not
// hold, zero rows update and nothing is written.
func (r *PostgresRepository) ApplyBalanceDelta(ctx context.Context, p BalanceDeltaParams) (*domain.BalanceSnapshot, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	snapshot := domain.BalanceSnapshot{AccountID: p.AccountID}
	query := `
		UPDATE accounts
		SET diamonds = diamonds + $1,
		    beans = beans + $2,
		    used_diamonds = used_diamonds + CASE WHEN $1 < 0 THEN -$1 ELSE 0 END,
		    updated_at = NOW()
		WHERE id = $3 AND diamonds + $1 >= 0 AND beans + $2 >= 0
		RETURNING diamonds, beans
	`
	err = tx.QueryRow(ctx, query, p.DiamondDelta, p.BeanDelta, p.AccountID).Scan(&snapshot.Diamonds, &snapshot.Beans)
	if err != nil {
		if err == pgx.ErrNoRows {
			// Distinguish a missing account from a failed precondition.
			var exists bool
			if exErr := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)", p.AccountID).Scan(&exists); exErr != nil {
				return nil, exErr
			}
			if !exists {
				return nil, ErrAccountNotFound
			}
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}

	if err := insertLedgerEntries(ctx, tx, p.AccountID, p.DiamondDelta, p.BeanDelta, p.Reason); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// insertLedgerEntries appends one audit row per nonzero delta. Ledger rows are
// append-only; there is deliberately no UPDATE or DELETE path for them.
func insertLedgerEntries(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, diamondDelta, beanDelta int64, reason domain.LedgerReason) error {
	query := `
		INSERT INTO ledger_entries (id, account_id, amount, kind, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	for _, delta := range []int64{diamondDelta, beanDelta} {
		if delta == 0 {
			continue
		}
		kind := domain.LedgerCredit
		if delta < 0 {
			kind = domain.LedgerDebit
		}
		if _, err := tx.Exec(ctx, query, uuid.New(), accountID, delta, kind, reason); err != nil {
			return err
		}
	}
	return nil
}

// PurchaseShopItem debits the item price and appends the granted resource to
// the collection matching the item's capability, atomically.
func (r *PostgresRepository) PurchaseShopItem(ctx context.Context, accountID uuid.UUID, item domain.ShopItem) (*domain.BalanceSnapshot, error) {
	column, err := itemColumn(item.Kind)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	snapshot := domain.BalanceSnapshot{AccountID: accountID}
	query := fmt.Sprintf(`
		UPDATE accounts
		SET diamonds = diamonds - $1,
		    used_diamonds = used_diamonds + $1,
		    %s = array_append(%s, $2),
		    updated_at = NOW()
		WHERE id = $3 AND diamonds >= $1
		RETURNING diamonds, beans
	`, column, column)
	err = tx.QueryRow(ctx, query, item.Diamonds, item.Resource, accountID).Scan(&snapshot.Diamonds, &snapshot.Beans)
	if err != nil {
		if err == pgx.ErrNoRows {
			var exists bool
			if exErr := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)", accountID).Scan(&exists); exErr != nil {
				return nil, exErr
			}
			if !exists {
				return nil, ErrAccountNotFound
			}
			return nil, ErrInsufficientFunds
		}
		return nil, err
	}

	if err := insertLedgerEntries(ctx, tx, accountID, -item.Diamonds, 0, domain.ReasonShop); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// itemColumn maps an item capability to its accounts column. The switch is
// exhaustive; the error arm catches values that never passed ParseItemKind.
func itemColumn(kind domain.ItemKind) (string, error) {
	switch kind {
	case domain.ItemFrame:
		return "frames", nil
	case domain.ItemChatBubble:
		return "chat_bubbles", nil
	case domain.ItemTheme:
		return "themes", nil
	case domain.ItemVehicle:
		return "vehicles", nil
	case domain.ItemRelationship:
		return "relationships", nil
	case domain.ItemSpecialID:
		return "special_ids", nil
	case domain.ItemLockRoom:
		return "lock_rooms", nil
	case domain.ItemExtraSeat:
		return "extra_seats", nil
	}
	return "", fmt.Errorf("unknown item kind %q", kind)
}

// SetAccountRoom updates the account's "currently joined room" pointer and
// live flag together. A nil roomID clears both.
func (r *PostgresRepository) SetAccountRoom(ctx context.Context, accountID uuid.UUID, roomID *uuid.UUID) error {
	query := `UPDATE accounts SET room_id = $1, is_live = $2, updated_at = NOW() WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, roomID, roomID != nil, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetAccountSeat toggles the on-seat flag and returns the refreshed account
// so the gateway can push a full profile update.
func (r *PostgresRepository) SetAccountSeat(ctx context.Context, accountID uuid.UUID, onSeat bool) (*domain.Account, error) {
	query := `
		UPDATE accounts SET on_seat = $1, updated_at = NOW() WHERE id = $2
		RETURNING ` + accountColumns
	return scanAccount(r.db.QueryRow(ctx, query, onSeat, accountID))
}

// FindLedgerEntries returns a page of the account's audit trail, newest first.
func (r *PostgresRepository) FindLedgerEntries(ctx context.Context, q LedgerQuery) ([]domain.LedgerEntry, error) {
	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, account_id, amount, kind, reason, created_at
		FROM ledger_entries
		WHERE account_id = $1 AND ($2::text IS NULL OR reason = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	var reason *string
	if q.Reason != nil {
		s := string(*q.Reason)
		reason = &s
	}
	rows, err := r.db.Query(ctx, query, q.AccountID, reason, limit, q.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &e.Kind, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FindGiftByID retrieves a gift catalog entry.
func (r *PostgresRepository) FindGiftByID(ctx context.Context, giftID uuid.UUID) (*domain.Gift, error) {
	var g domain.Gift
	query := `SELECT id, name, diamonds, category, image_url, anim_url FROM gifts WHERE id = $1`
	err := r.db.QueryRow(ctx, query, giftID).Scan(&g.ID, &g.Name, &g.Diamonds, &g.Category, &g.ImageURL, &g.AnimURL)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrGiftNotFound
		}
		return nil, err
	}
	return &g, nil
}

// FindQuantityTierByID retrieves a quantity tier.
func (r *PostgresRepository) FindQuantityTierByID(ctx context.Context, tierID uuid.UUID) (*domain.QuantityTier, error) {
	var t domain.QuantityTier
	query := `SELECT id, quantity, cashback_amount FROM quantity_tiers WHERE id = $1`
	err := r.db.QueryRow(ctx, query, tierID).Scan(&t.ID, &t.Quantity, &t.CashbackAmount)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTierNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindShopItemByID retrieves a purchasable shop item.
func (r *PostgresRepository) FindShopItemByID(ctx context.Context, itemID uuid.UUID) (*domain.ShopItem, error) {
	var item domain.ShopItem
	query := `SELECT id, name, kind, diamonds, resource FROM shop_items WHERE id = $1`
	err := r.db.QueryRow(ctx, query, itemID).Scan(&item.ID, &item.Name, &item.Kind, &item.Diamonds, &item.Resource)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrShopItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// SumCountryGiftVolume aggregates gift spend for one country over a trailing
// window. The cashback roller uses this to bound randomized payouts.
func (r *PostgresRepository) SumCountryGiftVolume(ctx context.Context, countryCode string, since time.Time) (int64, error) {
	var total int64
	query := `
		SELECT COALESCE(SUM(total_diamonds), 0)
		FROM gift_transactions
		WHERE country_code = $1 AND created_at >= $2
	`
	if err := r.db.QueryRow(ctx, query, countryCode, since).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
