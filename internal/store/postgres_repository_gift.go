/**
 * @description
 * This file implements the single-transaction apply phase of a gift send.
 * Every economic effect of one send commits together or not at all: a crash
 * mid-phase can never leave the sender debited without the receiver credited.
 *
 * @dependencies
 * - context, math/big: Standard Go libraries.
 * - github.com/jackc/pgx/v5: Transactional database access.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/usefuns/gifting-service/internal/domain"
)

// ApplyGiftSend performs the Applying phase of the gift state machine as one
// PostgreSQL transaction:
//
//  1. lock the sender row and re-check the balance (the authoritative check;
//     the orchestrator's earlier check only short-circuits obvious failures),
//  2. debit diamonds, bump lifetime spend, accumulate XP and recompute level,
//  3. credit any cashback back to the sender,
//  4. credit the receiver's beans,
//  5. insert the GiftTransaction record and the ledger entries,
//  6. bump the room counters and recompute the treasure box tier.
func (r *PostgresRepository) ApplyGiftSend(ctx context.Context, p GiftApplyParams) (*GiftApplyResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock the sender row for the duration of the transaction. Concurrent
	// sends from the same account serialize here.
	var diamonds int64
	var xpStr string
	err = tx.QueryRow(ctx, "SELECT diamonds, xp FROM accounts WHERE id = $1 FOR UPDATE", p.SenderID).Scan(&diamonds, &xpStr)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if diamonds < p.DiamondsDebited {
		return nil, ErrInsufficientFunds
	}

	xp, ok := new(big.Int).SetString(xpStr, 10)
	if !ok {
		return nil, fmt.Errorf("account %s has malformed xp %q", p.SenderID, xpStr)
	}
	xp.Add(xp, big.NewInt(p.DiamondsDebited))
	level := p.LevelForXP(xp)

	result := GiftApplyResult{SenderXP: xp, SenderLevel: level}

	err = tx.QueryRow(ctx, `
		UPDATE accounts
		SET diamonds = diamonds - $1 + $2,
		    used_diamonds = used_diamonds + $1,
		    xp = $3,
		    level = $4,
		    updated_at = NOW()
		WHERE id = $5
		RETURNING diamonds
	`, p.DiamondsDebited, p.CashbackCredited, xp.String(), level, p.SenderID).Scan(&result.SenderDiamonds)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		UPDATE accounts SET beans = beans + $1, updated_at = NOW() WHERE id = $2
		RETURNING beans
	`, p.BeansCredited, p.ReceiverID).Scan(&result.ReceiverBeans)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	result.TransactionID = uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO gift_transactions
			(id, sender_id, receiver_id, room_id, gift_id, quantity, total_diamonds, country_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, result.TransactionID, p.SenderID, p.ReceiverID, p.RoomID, p.GiftID, p.Quantity, p.DiamondsDebited, p.CountryCode, p.Now)
	if err != nil {
		return nil, err
	}

	if err := insertLedgerEntries(ctx, tx, p.SenderID, -p.DiamondsDebited, 0, domain.ReasonGift); err != nil {
		return nil, err
	}
	if p.CashbackCredited > 0 {
		if err := insertLedgerEntries(ctx, tx, p.SenderID, p.CashbackCredited, 0, domain.ReasonCashbackRewards); err != nil {
			return nil, err
		}
	}

	err = tx.QueryRow(ctx, `
		UPDATE rooms
		SET diamonds_used_today = diamonds_used_today + $1,
		    total_diamonds_used = total_diamonds_used + $1,
		    diamonds_used_current_season = diamonds_used_current_season + $1,
		    updated_at = NOW()
		WHERE id = $2
		RETURNING diamonds_used_today
	`, p.DiamondsDebited, p.RoomID).Scan(&result.DiamondsUsedToday)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	result.TreasureBoxLevel = p.TreasureBoxLevel(result.DiamondsUsedToday)
	_, err = tx.Exec(ctx, "UPDATE rooms SET treasure_box_level = $1 WHERE id = $2", result.TreasureBoxLevel, p.RoomID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &result, nil
}
