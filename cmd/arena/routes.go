package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/longsangsabo2025/sabo-arena/internal/export"
	"github.com/longsangsabo2025/sabo-arena/internal/httputil"
	"github.com/longsangsabo2025/sabo-arena/internal/middleware"
	"github.com/longsangsabo2025/sabo-arena/internal/service"
	"github.com/longsangsabo2025/sabo-arena/views"
	"github.com/markbates/goth/gothic"
	"golang.org/x/time/rate"
)

const maxRosterBytes = 1 << 20

type scoreRequest struct {
	Score1 int `json:"score_1"`
	Score2 int `json:"score_2"`
}

type walkoverRequest struct {
	WinnerSlot int `json:"winner_slot"`
}

func newRouter(a *app, sessionManager *scs.SessionManager, providers []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(sessionManager.LoadAndSave)

	limiter := middleware.NewIPRateLimiter(rate.Limit(a.cfg.RateLimitRPS), a.cfg.RateLimitBurst)

	// Serve static files
	fileServer := http.FileServer(http.Dir("./static"))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	r.Handle("/metrics", a.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessionManager, a.users))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			tournaments, err := a.tournaments.GetTournamentsForUser(r.Context())
			if err != nil {
				httputil.InternalServerError(w, "Failed to get tournaments", err)
				return
			}
			views.Render(w, r, views.Index(tournaments))
		})
	})

	r.Get("/tournaments/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		data, err := a.tournaments.Snapshot(r.Context(), id)
		if err != nil {
			if service.IsNotFound(err) {
				httputil.NotFound(w, "Tournament not found", err)
				return
			}
			httputil.InternalServerError(w, "Failed to get tournament", err)
			return
		}
		views.Render(w, r, views.TournamentView(data))
	})

	r.Get("/tournaments/{id}/results", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		results, err := a.settlement.GetResults(r.Context(), id)
		if err != nil {
			if service.IsNotFound(err) {
				httputil.NotFound(w, "Tournament not found", err)
				return
			}
			httputil.BadRequest(w, "Results are not available", err)
			return
		}
		views.Render(w, r, views.ResultsView(results))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter))

		r.Get("/tournaments/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlUUID(w, r, "id")
			if !ok {
				return
			}
			data, err := a.tournaments.Snapshot(r.Context(), id)
			respond(w, http.StatusOK, data, "Failed to get tournament", err)
		})

		r.Get("/tournaments/{id}/ratings", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlUUID(w, r, "id")
			if !ok {
				return
			}
			results, err := a.settlement.GetResults(r.Context(), id)
			if err != nil {
				httputil.WriteError(w, "Failed to get ratings", err)
				return
			}
			httputil.WriteJSON(w, http.StatusOK, map[string]any{
				"records": results.Records,
				"rewards": results.Grants,
			})
		})

		r.Get("/users/{id}/ratings", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlUUID(w, r, "id")
			if !ok {
				return
			}
			history, err := a.settlement.GetRatingHistory(r.Context(), id)
			respond(w, http.StatusOK, history, "Failed to get rating history", err)
		})

		r.Get("/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := urlUUID(w, r, "id")
			if !ok {
				return
			}
			data, err := a.matches.GetMatchViewData(r.Context(), id)
			respond(w, http.StatusOK, data, "Failed to get match", err)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAPIAuth(sessionManager, a.users))
			operatorRoutes(r, a)
		})
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter))
		r.Use(middleware.NewCollaboratorAuth(a.cfg.CollaboratorJWTSecret).Require)

		r.Post("/tournaments/{id}/participants/{userID}/confirm", paymentHandler(a.tournaments.ConfirmPayment))
		r.Post("/tournaments/{id}/participants/{userID}/refund", paymentHandler(a.tournaments.RefundParticipant))
	})

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		user, err := a.userService.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, "Failed to find or create user", err)
			return
		}

		sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())

		http.Redirect(w, r, "/", http.StatusFound)
	})

	r.Get("/login", func(w http.ResponseWriter, r *http.Request) {
		views.Render(w, r, views.LoginPage(providers, a.cfg.AllowGuestLogin))
	})

	if a.cfg.AllowGuestLogin {
		r.Post("/auth/guest", func(w http.ResponseWriter, r *http.Request) {
			user, err := a.userService.SystemOperator(r.Context())
			if err != nil {
				httputil.InternalServerError(w, "Failed to login as guest", err)
				return
			}

			sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
			http.Redirect(w, r, "/", http.StatusFound)
		})
	}

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		sessionManager.Destroy(r.Context())
		if r.Header.Get("HX-Request") != "" {
			w.Header().Set("HX-Redirect", "/login")
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})

	return r
}

func operatorRoutes(r chi.Router, a *app) {
	r.Post("/tournaments", func(w http.ResponseWriter, r *http.Request) {
		var input service.CreateTournamentInput
		if !decodeJSON(w, r, &input) {
			return
		}
		tournament, err := a.tournaments.CreateTournament(r.Context(), input)
		respond(w, http.StatusCreated, tournament, "Failed to create tournament", err)
	})

	r.Post("/tournaments/{id}/open", transitionHandler(a.tournaments.OpenTournament))
	r.Post("/tournaments/{id}/cancel", transitionHandler(a.tournaments.CancelTournament))

	r.Post("/tournaments/{id}/participants", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		var input service.RegisterInput
		if !decodeJSON(w, r, &input) {
			return
		}
		participant, err := a.tournaments.RegisterParticipant(r.Context(), id, input)
		respond(w, http.StatusCreated, participant, "Failed to register participant", err)
	})

	r.Post("/tournaments/{id}/roster", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRosterBytes))
		if err != nil {
			httputil.BadRequest(w, "Failed to read roster", err)
			return
		}
		result, err := a.tournaments.ImportRoster(r.Context(), id, string(body))
		respond(w, http.StatusOK, result, "Failed to import roster", err)
	})

	r.Post("/tournaments/{id}/bracket", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		matches, err := a.brackets.GenerateBracket(r.Context(), id)
		respond(w, http.StatusCreated, matches, "Failed to generate bracket", err)
	})

	r.Post("/tournaments/{id}/settle", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		records, err := a.settlement.Settle(r.Context(), id)
		respond(w, http.StatusOK, records, "Failed to settle tournament", err)
	})

	r.Get("/tournaments/{id}/results.xlsx", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		results, err := a.settlement.GetResults(r.Context(), id)
		if err != nil {
			httputil.WriteError(w, "Failed to get results", err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="results-%s.xlsx"`, id))
		if err := export.WriteResults(w, results); err != nil {
			a.logger.ErrorContext(r.Context(), "Failed to write results workbook", "tournament_id", id, "error", err)
		}
	})

	r.Post("/matches/{id}/start", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		match, err := a.matches.StartMatch(r.Context(), id)
		respond(w, http.StatusOK, match, "Failed to start match", err)
	})

	r.Post("/matches/{id}/score", scoreHandler(a.matches.SubmitScore, "Failed to submit score"))
	r.Post("/matches/{id}/correct", scoreHandler(a.matches.CorrectScore, "Failed to correct score"))

	r.Post("/matches/{id}/walkover", func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		var req walkoverRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		match, err := a.matches.ForceWalkover(r.Context(), id, req.WinnerSlot)
		respond(w, http.StatusOK, match, "Failed to record walkover", err)
	})
}

func transitionHandler(fn func(context.Context, uuid.UUID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		if err := fn(r.Context(), id); err != nil {
			httputil.WriteError(w, "Failed to change tournament status", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func scoreHandler[T any](fn func(context.Context, uuid.UUID, int, int) (T, error), msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		var req scoreRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		match, err := fn(r.Context(), id, req.Score1, req.Score2)
		respond(w, http.StatusOK, match, msg, err)
	}
}

func paymentHandler[T any](fn func(context.Context, uuid.UUID, uuid.UUID) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		userID, ok := urlUUID(w, r, "userID")
		if !ok {
			return
		}
		participant, err := fn(r.Context(), id, userID)
		respond(w, http.StatusOK, participant, "Failed to update payment", err)
	}
}

func respond(w http.ResponseWriter, status int, v any, msg string, err error) {
	if err != nil {
		httputil.WriteError(w, msg, err)
		return
	}
	httputil.WriteJSON(w, status, v)
}

func urlUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.BadRequest(w, "Invalid "+param, err)
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httputil.BadRequest(w, "Invalid request body", err)
		return false
	}
	return true
}
