package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pkarls/rummikub-backend/internal/auth"
	"github.com/pkarls/rummikub-backend/internal/ws"
)

func SetupRoutes(svc Service, sub ws.Subscriber, verifier auth.Verifier, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/game/{id}/feed", ws.Handler(sub, log))

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier))
		r.Post("/games", CreateGame(svc, log))
		r.Get("/game/{id}/hand", GetHand(svc, log))
		r.Get("/game/{id}/table", GetTable(svc, log))
		r.Post("/game/{id}/update_table", UpdateTable(svc, log))
		r.Post("/game/{id}/commit", Commit(svc, log))
		r.Post("/game/{id}/draw", Draw(svc, log))
	})
	return r
}
