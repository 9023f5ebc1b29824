package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ttleague/ladder-system/handlers"
	"github.com/ttleague/ladder-system/middleware"
	"github.com/ttleague/ladder-system/services"
)

type Deps struct {
	JWTSecret      []byte
	Logger         *slog.Logger
	RankingService *services.RankingService

	Auth    *handlers.AuthHandler
	Ranking *handlers.RankingHandler
	Match   *handlers.MatchHandler
	Player  *handlers.PlayerHandler
	Log     *handlers.LogHandler
	WS      *handlers.WSHandler
}

// InitRoutes wires the full HTTP surface. Everything except login sits behind
// the realm session; mutation routes additionally require the trainer realm,
// and ranking-scoped mutations are refused once the ranking has ended.
func InitRoutes(deps Deps) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Post("/auth/login", deps.Auth.Login)
	router.Post("/auth/logout", deps.Auth.Logout)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.JWTSecret))
		r.Use(middleware.ExpirySweep(deps.RankingService, deps.Logger))

		r.Route("/rankings", func(r chi.Router) {
			r.Get("/", deps.Ranking.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireTrainer)
				r.Post("/", deps.Ranking.Create)
			})

			r.Route("/{rankingID}", func(r chi.Router) {
				r.Get("/", deps.Ranking.Get)
				r.Get("/matches", deps.Match.ListOngoing)
				r.Get("/matches/finished", deps.Match.ListFinished)
				r.Get("/ws", deps.WS.Subscribe)

				// Trainer mutations on a live ranking.
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireTrainer)
					r.Use(middleware.FreezeGuard(deps.RankingService))

					r.Post("/matches", deps.Match.Start)
					r.Post("/players", deps.Player.Attach)
					r.Delete("/players/{playerID}", deps.Player.Detach)
					r.Put("/settings", deps.Ranking.UpdateSettings)
					r.Post("/end", deps.Ranking.End)
				})

				// Allowed even after the ranking ended.
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireTrainer)
					r.Post("/fix", deps.Ranking.Fix)
					r.Delete("/", deps.Ranking.Delete)
				})
			})
		})

		r.Route("/matches", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireTrainer)
				r.Post("/{matchID}/finish", deps.Match.Finish)
			})
		})

		r.Route("/players", func(r chi.Router) {
			r.Get("/", deps.Player.List)
			r.Get("/{playerID}", deps.Player.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireTrainer)
				r.Post("/", deps.Player.Create)
				r.Put("/{playerID}", deps.Player.Update)
				r.Delete("/{playerID}", deps.Player.Delete)
				r.Put("/{playerID}/bonus", deps.Player.SetBonusRule)
				r.Delete("/{playerID}/bonus", deps.Player.RemoveBonusRule)
			})
		})

		r.Route("/logs", func(r chi.Router) {
			r.Use(middleware.RequireTrainer)
			r.Get("/", deps.Log.List)
			r.Delete("/", deps.Log.Clear)
		})
	})

	return router
}
