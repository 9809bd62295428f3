/**
 * @description
 * This file contains the HTTP handlers for the gifting-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * Every response uses the envelope {"success": bool, "message": string,
 * "data": ...} the Usefuns clients already expect from the main API.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/usefuns/gifting-service/internal/app"
	"github.com/usefuns/gifting-service/internal/domain"
	"github.com/usefuns/gifting-service/internal/store"
)

// EconomyHandlers holds the application service that handlers will use.
type EconomyHandlers struct {
	service *app.Service
}

// NewEconomyHandlers creates a new instance of EconomyHandlers.
func NewEconomyHandlers(service *app.Service) *EconomyHandlers {
	return &EconomyHandlers{service: service}
}

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// GetAccountHandler handles GET /user/{id}.
func (h *EconomyHandlers) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid account ID format")
		return
	}

	account, err := h.service.AccountSnapshot(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			h.writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_account outcome=failed account_id=%s err=%v", accountID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Account fetched", Data: account})
}

// GetLedgerHandler handles GET /user/{id}/ledger with optional reason, limit
// and offset query parameters.
func (h *EconomyHandlers) GetLedgerHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid account ID format")
		return
	}
	requesterID, ok := GetAuthUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	limit, err := parseOptionalInt(r.URL.Query().Get("limit"), 20)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, err := parseOptionalInt(r.URL.Query().Get("offset"), 0)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid offset")
		return
	}

	q := store.LedgerQuery{AccountID: accountID, Limit: limit, Offset: offset}
	if raw := strings.TrimSpace(r.URL.Query().Get("reason")); raw != "" {
		reason := domain.LedgerReason(raw)
		q.Reason = &reason
	}

	entries, err := h.service.LedgerHistory(r.Context(), requesterID, q)
	if err != nil {
		if errors.Is(err, app.ErrUnauthorized) {
			h.writeError(w, http.StatusForbidden, "Ledger entries belong to the requesting account")
			return
		}
		log.Printf("level=error component=api endpoint=get_ledger outcome=failed account_id=%s err=%v", accountID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Ledger fetched", Data: entries})
}

// ShopHandler handles POST /user/shop.
func (h *EconomyHandlers) ShopHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAuthUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	var req struct {
		ItemID uuid.UUID `json:"item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	log.Printf("level=info component=api endpoint=shop outcome=accepted account_id=%s item_id=%s", accountID, req.ItemID)

	balance, err := h.service.PurchaseShopItem(r.Context(), accountID, req.ItemID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=shop outcome=failed account_id=%s err=%v", accountID, err)
		switch {
		case errors.Is(err, store.ErrInsufficientFunds):
			h.writeError(w, http.StatusPaymentRequired, "Insufficient diamond balance")
		case errors.Is(err, store.ErrShopItemNotFound):
			h.writeError(w, http.StatusNotFound, "Shop item not found")
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, app.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Item purchased", Data: balance})
}

// DiamondSubmitFlowHandler handles POST /user/diamondSubmitFlow: signed
// diamond deltas from games and other internal flows.
func (h *EconomyHandlers) DiamondSubmitFlowHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAuthUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	var req struct {
		Diamonds int64  `json:"diamonds"`
		Reason   string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	balance, err := h.service.SubmitDiamondFlow(r.Context(), app.DiamondFlowRequest{
		AccountID: accountID,
		Diamonds:  req.Diamonds,
		Reason:    domain.LedgerReason(strings.TrimSpace(req.Reason)),
	})
	if err != nil {
		log.Printf("level=warn component=api endpoint=diamond_submit_flow outcome=failed account_id=%s diamonds=%d err=%v", accountID, req.Diamonds, err)
		switch {
		case errors.Is(err, store.ErrInsufficientFunds):
			h.writeError(w, http.StatusPaymentRequired, "Insufficient diamond balance")
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, app.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Balance updated", Data: balance})
}

// AddWalletHandler handles POST /user/wallet/add: recharge credits reported
// by the payment provider callback.
func (h *EconomyHandlers) AddWalletHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAuthUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	var req struct {
		Diamonds int64  `json:"diamonds"`
		Status   string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	log.Printf("level=info component=api endpoint=add_wallet outcome=accepted account_id=%s diamonds=%d status=%s", accountID, req.Diamonds, req.Status)

	balance, err := h.service.AddWallet(r.Context(), accountID, req.Diamonds, req.Status)
	if err != nil {
		log.Printf("level=warn component=api endpoint=add_wallet outcome=failed account_id=%s err=%v", accountID, err)
		switch {
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, app.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Wallet credited", Data: balance})
}

// ConvertBeansHandler handles POST /user/beansToDiamonds/convert.
func (h *EconomyHandlers) ConvertBeansHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAuthUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return
	}

	var req struct {
		Beans int64 `json:"beans"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	balance, err := h.service.ConvertBeansToDiamonds(r.Context(), accountID, req.Beans)
	if err != nil {
		log.Printf("level=warn component=api endpoint=convert_beans outcome=failed account_id=%s beans=%d err=%v", accountID, req.Beans, err)
		switch {
		case errors.Is(err, store.ErrInsufficientFunds):
			h.writeError(w, http.StatusPaymentRequired, "Insufficient bean balance")
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, app.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Beans converted", Data: balance})
}

// GetRoomHandler handles GET /room/{id}.
func (h *EconomyHandlers) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid room ID format")
		return
	}

	room, err := h.service.RoomSnapshot(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			h.writeError(w, http.StatusNotFound, "Room not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_room outcome=failed room_id=%s err=%v", roomID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Room fetched", Data: room})
}

// RoomContributionHandler handles POST /room/getRoomContribution: the ranked
// supporter list for one room.
func (h *EconomyHandlers) RoomContributionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID uuid.UUID `json:"room_id"`
		Limit  int       `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RoomID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "room_id is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 20
	}

	contributions, err := h.service.RoomContribution(r.Context(), req.RoomID, req.Limit)
	if err != nil {
		log.Printf("level=error component=api endpoint=room_contribution outcome=failed room_id=%s err=%v", req.RoomID, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Contribution fetched", Data: contributions})
}

func parseOptionalInt(raw string, fallback int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errors.New("value must be a non-negative integer")
	}
	return value, nil
}

// writeJSON is a helper for writing JSON responses.
func (h *EconomyHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses in the envelope shape.
func (h *EconomyHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, envelope{Success: false, Message: message})
}
