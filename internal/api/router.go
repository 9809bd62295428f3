/**
 * @description
 * This file sets up the HTTP router for the gifting-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// EconomyRoutes creates and returns a new router for the gifting service.
// The websocket handler is passed in so /ws shares the same mux without the
// JSON middleware stack.
func EconomyRoutes(h *EconomyHandlers, ws http.Handler, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Realtime gateway. Long-lived connections, so no request timeout here.
	r.Handle("/ws", ws)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(AuthMiddleware(jwtSecret))

		// Account economy endpoints
		r.Get("/user/{id}", h.GetAccountHandler)
		r.Get("/user/{id}/ledger", h.GetLedgerHandler)
		r.Post("/user/shop", h.ShopHandler)
		r.Post("/user/diamondSubmitFlow", h.DiamondSubmitFlowHandler)
		r.Post("/user/wallet/add", h.AddWalletHandler)
		r.Post("/user/beansToDiamonds/convert", h.ConvertBeansHandler)

		// Room economy endpoints
		r.Get("/room/{id}", h.GetRoomHandler)
		r.Post("/room/getRoomContribution", h.RoomContributionHandler)
	})

	return r
}
