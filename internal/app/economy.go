/**
 * @description
 * This file implements the HTTP-facing economy operations that surround the
 * realtime gifting path: shop purchases, generic balance adjustments from the
 * game servers, wallet recharges, the beans-to-diamonds exchange, ledger
 * history and the room contribution leaderboard. Every balance mutation goes
 * through the ledgered repository operations; nothing here writes a balance
 * directly.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/usefuns/gifting-service/internal/domain"
	"github.com/usefuns/gifting-service/internal/store"
)

// AccountSnapshot returns the full account state pushed in userDataUpdate
// events and served by the account endpoint.
func (s *Service) AccountSnapshot(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return s.repo.FindAccountByID(ctx, accountID)
}

// LedgerHistory returns a page of an account's audit trail. The ledger is
// private: only the account's own holder may read it.
func (s *Service) LedgerHistory(ctx context.Context, requesterID uuid.UUID, q store.LedgerQuery) ([]domain.LedgerEntry, error) {
	if q.AccountID == uuid.Nil {
		return nil, fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if requesterID != q.AccountID {
		return nil, fmt.Errorf("%w: ledger entries belong to the requesting account", ErrUnauthorized)
	}
	return s.repo.FindLedgerEntries(ctx, q)
}

// PurchaseShopItem spends diamonds on a catalog item and grants its resource
// to the matching typed collection on the account.
func (s *Service) PurchaseShopItem(ctx context.Context, accountID, itemID uuid.UUID) (*domain.BalanceSnapshot, error) {
	if accountID == uuid.Nil || itemID == uuid.Nil {
		return nil, fmt.Errorf("%w: account and item ids are required", ErrValidation)
	}
	item, err := s.repo.FindShopItemByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shop item: %w", err)
	}
	snapshot, err := s.repo.PurchaseShopItem(ctx, accountID, *item)
	if err != nil {
		return nil, fmt.Errorf("failed to purchase item: %w", err)
	}
	s.broadcaster.EmitToUser(accountID, domain.EvtDiamondUpdate, domain.DiamondUpdatePayload{
		AccountID: accountID,
		Diamonds:  snapshot.Diamonds,
	})
	return snapshot, nil
}

// DiamondFlowRequest is a generic debit/credit instruction from a trusted
// collaborator such as a game server.
type DiamondFlowRequest struct {
	AccountID uuid.UUID
	Diamonds  int64 // positive credit, negative debit
	Reason    domain.LedgerReason
}

// SubmitDiamondFlow applies a generic ledgered diamond adjustment.
func (s *Service) SubmitDiamondFlow(ctx context.Context, req DiamondFlowRequest) (*domain.BalanceSnapshot, error) {
	if req.AccountID == uuid.Nil {
		return nil, fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if req.Diamonds == 0 {
		return nil, fmt.Errorf("%w: diamond amount must be nonzero", ErrValidation)
	}
	reason := req.Reason
	if reason == "" {
		reason = domain.ReasonGame
	}
	snapshot, err := s.repo.ApplyBalanceDelta(ctx, store.BalanceDeltaParams{
		AccountID:    req.AccountID,
		DiamondDelta: req.Diamonds,
		Reason:       reason,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply diamond flow: %w", err)
	}
	s.broadcaster.EmitToUser(req.AccountID, domain.EvtDiamondUpdate, domain.DiamondUpdatePayload{
		AccountID: req.AccountID,
		Diamonds:  snapshot.Diamonds,
	})
	return snapshot, nil
}

// AddWallet credits a recharge. The credit is gated on the gateway-reported
// status: anything but "success" is rejected before any write.
func (s *Service) AddWallet(ctx context.Context, accountID uuid.UUID, diamonds int64, status string) (*domain.BalanceSnapshot, error) {
	if accountID == uuid.Nil {
		return nil, fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if diamonds <= 0 {
		return nil, fmt.Errorf("%w: recharge amount must be positive", ErrValidation)
	}
	if !strings.EqualFold(strings.TrimSpace(status), "success") {
		return nil, fmt.Errorf("%w: recharge status is not success", ErrValidation)
	}
	snapshot, err := s.repo.ApplyBalanceDelta(ctx, store.BalanceDeltaParams{
		AccountID:    accountID,
		DiamondDelta: diamonds,
		Reason:       domain.ReasonRecharge,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to credit recharge: %w", err)
	}
	s.broadcaster.EmitToUser(accountID, domain.EvtDiamondUpdate, domain.DiamondUpdatePayload{
		AccountID: accountID,
		Diamonds:  snapshot.Diamonds,
	})
	return snapshot, nil
}

// ConvertBeansToDiamonds exchanges earned beans for spendable diamonds at the
// configured rate. Only whole diamonds are minted; the bean debit is the
// exact amount the minted diamonds cost, so no remainder is lost.
func (s *Service) ConvertBeansToDiamonds(ctx context.Context, accountID uuid.UUID, beans int64) (*domain.BalanceSnapshot, error) {
	if accountID == uuid.Nil {
		return nil, fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if beans <= 0 {
		return nil, fmt.Errorf("%w: bean amount must be positive", ErrValidation)
	}
	rate := s.cfg.BeansPerDiamond
	if rate <= 0 {
		rate = 1
	}
	diamonds := beans / rate
	if diamonds <= 0 {
		return nil, fmt.Errorf("%w: bean amount is below the exchange rate", ErrValidation)
	}
	snapshot, err := s.repo.ApplyBalanceDelta(ctx, store.BalanceDeltaParams{
		AccountID:    accountID,
		DiamondDelta: diamonds,
		BeanDelta:    -(diamonds * rate),
		Reason:       domain.ReasonBeansToDiamonds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to convert beans: %w", err)
	}
	s.broadcaster.EmitToUser(accountID, domain.EvtDiamondUpdate, domain.DiamondUpdatePayload{
		AccountID: accountID,
		Diamonds:  snapshot.Diamonds,
	})
	s.broadcaster.EmitToUser(accountID, domain.EvtBeanUpdate, domain.BeanUpdatePayload{
		AccountID: accountID,
		Beans:     snapshot.Beans,
	})
	return snapshot, nil
}

// RoomSnapshot returns a room's counters, treasure box tier and presence.
func (s *Service) RoomSnapshot(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	return s.repo.FindRoomByID(ctx, roomID)
}

// RoomContribution returns the room's supporter leaderboard hydrated with
// account display data. Entries whose account has since vanished are skipped.
func (s *Service) RoomContribution(ctx context.Context, roomID uuid.UUID, limit int) ([]domain.RoomContribution, error) {
	if roomID == uuid.Nil {
		return nil, fmt.Errorf("%w: room id is required", ErrValidation)
	}
	if s.board == nil {
		return []domain.RoomContribution{}, nil
	}
	entries, err := s.board.TopContributors(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load contribution board: %w", err)
	}

	contributions := make([]domain.RoomContribution, 0, len(entries))
	for _, e := range entries {
		account, accErr := s.repo.FindAccountByID(ctx, e.AccountID)
		if accErr != nil {
			log.Printf("level=warn component=room msg=\"contributor account missing\" account_id=%s err=%v", e.AccountID, accErr)
			continue
		}
		contributions = append(contributions, domain.RoomContribution{
			AccountID: e.AccountID,
			Name:      account.Name,
			AvatarURL: account.AvatarURL,
			Level:     account.Level,
			Diamonds:  e.Diamonds,
			Rank:      e.Rank,
		})
	}
	return contributions, nil
}
