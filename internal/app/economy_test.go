package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/usefuns/gifting-service/internal/domain"
	"github.com/usefuns/gifting-service/internal/store"
)

type economyRepoStub struct {
	store.Repository

	item *domain.ShopItem

	deltaCalled    bool
	deltaParams    store.BalanceDeltaParams
	deltaErr       error
	purchaseCalled bool
	purchaseItem   domain.ShopItem
	snapshot       *domain.BalanceSnapshot
	entries        []domain.LedgerEntry
	ledgerCalled   bool
}

func (s *economyRepoStub) ApplyBalanceDelta(ctx context.Context, p store.BalanceDeltaParams) (*domain.BalanceSnapshot, error) {
	s.deltaCalled = true
	s.deltaParams = p
	if s.deltaErr != nil {
		return nil, s.deltaErr
	}
	return s.snapshot, nil
}

func (s *economyRepoStub) FindShopItemByID(ctx context.Context, itemID uuid.UUID) (*domain.ShopItem, error) {
	if s.item == nil || s.item.ID != itemID {
		return nil, store.ErrShopItemNotFound
	}
	return s.item, nil
}

func (s *economyRepoStub) PurchaseShopItem(ctx context.Context, accountID uuid.UUID, item domain.ShopItem) (*domain.BalanceSnapshot, error) {
	s.purchaseCalled = true
	s.purchaseItem = item
	return s.snapshot, nil
}

func (s *economyRepoStub) FindLedgerEntries(ctx context.Context, q store.LedgerQuery) ([]domain.LedgerEntry, error) {
	s.ledgerCalled = true
	return s.entries, nil
}

func newEconomyService(repo *economyRepoStub, broadcaster *broadcasterStub, beansPerDiamond int64) *Service {
	svc := NewService(repo, broadcaster, &producerStub{}, EconomyConfig{
		BeansPerDiamond: beansPerDiamond,
	})
	svc.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return svc
}

func TestConvertBeansToDiamonds_MintsWholeDiamondsOnly(t *testing.T) {
	accountID := uuid.New()
	repo := &economyRepoStub{snapshot: &domain.BalanceSnapshot{AccountID: accountID, Diamonds: 103, Beans: 1}}
	broadcaster := &broadcasterStub{}
	svc := newEconomyService(repo, broadcaster, 3)

	_, err := svc.ConvertBeansToDiamonds(context.Background(), accountID, 10)
	if err != nil {
		t.Fatalf("ConvertBeansToDiamonds returned error: %v", err)
	}

	if !repo.deltaCalled {
		t.Fatal("expected a balance delta")
	}
	// 10 beans at 3 beans/diamond mints 3 diamonds and debits exactly 9 beans.
	if repo.deltaParams.DiamondDelta != 3 {
		t.Fatalf("expected 3 diamonds minted, got %d", repo.deltaParams.DiamondDelta)
	}
	if repo.deltaParams.BeanDelta != -9 {
		t.Fatalf("expected 9 beans debited, got %d", repo.deltaParams.BeanDelta)
	}
	if repo.deltaParams.Reason != domain.ReasonBeansToDiamonds {
		t.Fatalf("expected Beans-To-Diamonds ledger reason, got %q", repo.deltaParams.Reason)
	}

	events := broadcaster.events()
	if len(events) != 2 || events[0] != domain.EvtDiamondUpdate || events[1] != domain.EvtBeanUpdate {
		t.Fatalf("expected diamond and bean updates, got %v", events)
	}
}

func TestConvertBeansToDiamonds_RejectsAmountBelowRate(t *testing.T) {
	repo := &economyRepoStub{}
	svc := newEconomyService(repo, &broadcasterStub{}, 3)

	_, err := svc.ConvertBeansToDiamonds(context.Background(), uuid.New(), 2)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error below the exchange rate, got %v", err)
	}
	if repo.deltaCalled {
		t.Fatal("did not expect a balance delta")
	}
}

func TestAddWallet_RejectsNonSuccessStatus(t *testing.T) {
	repo := &economyRepoStub{}
	svc := newEconomyService(repo, &broadcasterStub{}, 1)

	tests := []struct {
		name   string
		status string
		wantOK bool
	}{
		{name: "success is accepted", status: "success", wantOK: true},
		{name: "case-insensitive success is accepted", status: "SUCCESS", wantOK: true},
		{name: "pending is rejected", status: "pending", wantOK: false},
		{name: "failed is rejected", status: "failed", wantOK: false},
		{name: "empty is rejected", status: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.deltaCalled = false
			repo.snapshot = &domain.BalanceSnapshot{Diamonds: 100}
			_, err := svc.AddWallet(context.Background(), uuid.New(), 100, tt.status)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("expected recharge to succeed, got %v", err)
				}
				if repo.deltaParams.Reason != domain.ReasonRecharge {
					t.Fatalf("expected Recharge ledger reason, got %q", repo.deltaParams.Reason)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error for status %q, got %v", tt.status, err)
			}
			if repo.deltaCalled {
				t.Fatal("did not expect a balance delta for a rejected recharge")
			}
		})
	}
}

func TestSubmitDiamondFlow_DefaultsToGameReason(t *testing.T) {
	accountID := uuid.New()
	repo := &economyRepoStub{snapshot: &domain.BalanceSnapshot{AccountID: accountID, Diamonds: 50}}
	broadcaster := &broadcasterStub{}
	svc := newEconomyService(repo, broadcaster, 1)

	_, err := svc.SubmitDiamondFlow(context.Background(), DiamondFlowRequest{AccountID: accountID, Diamonds: -50})
	if err != nil {
		t.Fatalf("SubmitDiamondFlow returned error: %v", err)
	}
	if repo.deltaParams.Reason != domain.ReasonGame {
		t.Fatalf("expected Game ledger reason by default, got %q", repo.deltaParams.Reason)
	}
	if repo.deltaParams.DiamondDelta != -50 {
		t.Fatalf("expected -50 diamond delta, got %d", repo.deltaParams.DiamondDelta)
	}
}

func TestSubmitDiamondFlow_RejectsZeroAmount(t *testing.T) {
	svc := newEconomyService(&economyRepoStub{}, &broadcasterStub{}, 1)
	_, err := svc.SubmitDiamondFlow(context.Background(), DiamondFlowRequest{AccountID: uuid.New()})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
}

func TestPurchaseShopItem_GrantsItemAndBroadcastsBalance(t *testing.T) {
	accountID := uuid.New()
	itemID := uuid.New()
	repo := &economyRepoStub{
		item:     &domain.ShopItem{ID: itemID, Name: "Neon Frame", Kind: domain.ItemFrame, Diamonds: 300, Resource: "frames/neon.svga"},
		snapshot: &domain.BalanceSnapshot{AccountID: accountID, Diamonds: 700},
	}
	broadcaster := &broadcasterStub{}
	svc := newEconomyService(repo, broadcaster, 1)

	snapshot, err := svc.PurchaseShopItem(context.Background(), accountID, itemID)
	if err != nil {
		t.Fatalf("PurchaseShopItem returned error: %v", err)
	}
	if snapshot.Diamonds != 700 {
		t.Fatalf("expected balance 700 after purchase, got %d", snapshot.Diamonds)
	}
	if !repo.purchaseCalled || repo.purchaseItem.Kind != domain.ItemFrame {
		t.Fatalf("expected frame purchase to reach the store, got %+v", repo.purchaseItem)
	}

	events := broadcaster.events()
	if len(events) != 1 || events[0] != domain.EvtDiamondUpdate {
		t.Fatalf("expected one diamond update, got %v", events)
	}
}

func TestPurchaseShopItem_UnknownItem(t *testing.T) {
	svc := newEconomyService(&economyRepoStub{}, &broadcasterStub{}, 1)
	_, err := svc.PurchaseShopItem(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, store.ErrShopItemNotFound) {
		t.Fatalf("expected shop item not found, got %v", err)
	}
}

func TestLedgerHistory_RefusesForeignAccount(t *testing.T) {
	repo := &economyRepoStub{entries: []domain.LedgerEntry{{ID: uuid.New()}}}
	svc := newEconomyService(repo, &broadcasterStub{}, 1)

	_, err := svc.LedgerHistory(context.Background(), uuid.New(), store.LedgerQuery{AccountID: uuid.New()})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for a foreign ledger, got %v", err)
	}
	if repo.ledgerCalled {
		t.Fatal("did not expect the repository query to run")
	}
}

func TestLedgerHistory_ReturnsOwnEntries(t *testing.T) {
	accountID := uuid.New()
	repo := &economyRepoStub{entries: []domain.LedgerEntry{{ID: uuid.New(), AccountID: accountID}}}
	svc := newEconomyService(repo, &broadcasterStub{}, 1)

	entries, err := svc.LedgerHistory(context.Background(), accountID, store.LedgerQuery{AccountID: accountID, Limit: 10})
	if err != nil {
		t.Fatalf("LedgerHistory returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
}
