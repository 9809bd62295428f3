package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/usefuns/gifting-service/internal/app"
	"github.com/usefuns/gifting-service/internal/domain"
	"github.com/usefuns/gifting-service/internal/store"
	"github.com/usefuns/gifting-service/pkg/rabbitmq"
)

const testJWTSecret = "test-secret"

type apiRepoStub struct {
	store.Repository

	account  *domain.Account
	item     *domain.ShopItem
	snapshot *domain.BalanceSnapshot
	entries  []domain.LedgerEntry

	purchaseErr error
}

func (s *apiRepoStub) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	if s.account == nil || s.account.ID != accountID {
		return nil, store.ErrAccountNotFound
	}
	return s.account, nil
}

func (s *apiRepoStub) FindShopItemByID(ctx context.Context, itemID uuid.UUID) (*domain.ShopItem, error) {
	if s.item == nil || s.item.ID != itemID {
		return nil, store.ErrShopItemNotFound
	}
	return s.item, nil
}

func (s *apiRepoStub) PurchaseShopItem(ctx context.Context, accountID uuid.UUID, item domain.ShopItem) (*domain.BalanceSnapshot, error) {
	if s.purchaseErr != nil {
		return nil, s.purchaseErr
	}
	return s.snapshot, nil
}

func (s *apiRepoStub) ApplyBalanceDelta(ctx context.Context, p store.BalanceDeltaParams) (*domain.BalanceSnapshot, error) {
	return s.snapshot, nil
}

func (s *apiRepoStub) FindLedgerEntries(ctx context.Context, q store.LedgerQuery) ([]domain.LedgerEntry, error) {
	return s.entries, nil
}

type noopBroadcaster struct{}

func (noopBroadcaster) EmitToUser(userID uuid.UUID, event string, payload any)      {}
func (noopBroadcaster) EmitToRoom(roomID uuid.UUID, event string, payload any)      {}
func (noopBroadcaster) EmitToCountry(countryCode string, event string, payload any) {}

func newTestRouter(repo *apiRepoStub) http.Handler {
	svc := app.NewService(repo, noopBroadcaster{}, &rabbitmq.EventProducerFallback{}, app.EconomyConfig{BeansPerDiamond: 1})
	handlers := NewEconomyHandlers(svc)
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	return EconomyRoutes(handlers, ws, testJWTSecret)
}

func bearerToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return "Bearer " + signed
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	return env
}

func TestAuthMiddleware_RejectsAnonymousRequests(t *testing.T) {
	router := newTestRouter(&apiRepoStub{})

	req := httptest.NewRequest(http.MethodGet, "/user/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestAuthMiddleware_RejectsNonUUIDSubject(t *testing.T) {
	router := newTestRouter(&apiRepoStub{})

	req := httptest.NewRequest(http.MethodGet, "/user/"+uuid.New().String(), nil)
	req.Header.Set("Authorization", bearerToken(t, "not-a-uuid"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a malformed subject, got %d", rec.Code)
	}
}

func TestGetAccountHandler(t *testing.T) {
	accountID := uuid.New()
	repo := &apiRepoStub{account: &domain.Account{ID: accountID, Name: "tester", Diamonds: 500, XP: big.NewInt(1200)}}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/user/"+accountID.String(), nil)
	req.Header.Set("Authorization", bearerToken(t, accountID.String()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope, got %+v", env)
	}
}

func TestGetAccountHandler_NotFound(t *testing.T) {
	router := newTestRouter(&apiRepoStub{})
	authID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/user/"+uuid.New().String(), nil)
	req.Header.Set("Authorization", bearerToken(t, authID.String()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Success {
		t.Fatal("expected failure envelope")
	}
}

func TestShopHandler_PurchaseSucceeds(t *testing.T) {
	accountID := uuid.New()
	itemID := uuid.New()
	repo := &apiRepoStub{
		item:     &domain.ShopItem{ID: itemID, Name: "Neon Frame", Kind: domain.ItemFrame, Diamonds: 300},
		snapshot: &domain.BalanceSnapshot{AccountID: accountID, Diamonds: 700},
	}
	router := newTestRouter(repo)

	body := strings.NewReader(`{"item_id":"` + itemID.String() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/user/shop", body)
	req.Header.Set("Authorization", bearerToken(t, accountID.String()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope, got %+v", env)
	}
}

func TestShopHandler_InsufficientFunds(t *testing.T) {
	accountID := uuid.New()
	itemID := uuid.New()
	repo := &apiRepoStub{
		item:        &domain.ShopItem{ID: itemID, Kind: domain.ItemVehicle, Diamonds: 99999},
		purchaseErr: store.ErrInsufficientFunds,
	}
	router := newTestRouter(repo)

	body := strings.NewReader(`{"item_id":"` + itemID.String() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/user/shop", body)
	req.Header.Set("Authorization", bearerToken(t, accountID.String()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Success {
		t.Fatal("expected failure envelope")
	}
}

func TestAddWalletHandler_RejectsFailedRecharge(t *testing.T) {
	accountID := uuid.New()
	router := newTestRouter(&apiRepoStub{snapshot: &domain.BalanceSnapshot{}})

	body := strings.NewReader(`{"diamonds":100,"status":"failed"}`)
	req := httptest.NewRequest(http.MethodPost, "/user/wallet/add", body)
	req.Header.Set("Authorization", bearerToken(t, accountID.String()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a failed recharge, got %d", rec.Code)
	}
}

func TestGetLedgerHandler_RejectsNegativeLimit(t *testing.T) {
	accountID := uuid.New()
	router := newTestRouter(&apiRepoStub{})

	req := httptest.NewRequest(http.MethodGet, "/user/"+accountID.String()+"/ledger?limit=-5", nil)
	req.Header.Set("Authorization", bearerToken(t, accountID.String()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a negative limit, got %d", rec.Code)
	}
}

func TestGetLedgerHandler_ForbidsForeignLedger(t *testing.T) {
	router := newTestRouter(&apiRepoStub{})

	req := httptest.NewRequest(http.MethodGet, "/user/"+uuid.New().String()+"/ledger", nil)
	req.Header.Set("Authorization", bearerToken(t, uuid.New().String()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another account's ledger, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Success {
		t.Fatal("expected failure envelope")
	}
}

func TestGetAccountHandler_SerializesXP(t *testing.T) {
	accountID := uuid.New()
	xp, ok := new(big.Int).SetString("92233720368547758080000", 10)
	if !ok {
		t.Fatal("failed to build fixture xp")
	}
	repo := &apiRepoStub{account: &domain.Account{ID: accountID, Name: "tester", XP: xp}}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/user/"+accountID.String(), nil)
	req.Header.Set("Authorization", bearerToken(t, accountID.String()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"xp":"92233720368547758080000"`) {
		t.Fatalf("expected xp serialized as a decimal string, got %s", rec.Body.String())
	}
}

func TestHealthEndpointIsPublic(t *testing.T) {
	router := newTestRouter(&apiRepoStub{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health check, got %d", rec.Code)
	}
}
