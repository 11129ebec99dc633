package http

import "net/http"

type RouterConfig struct {
	Auth       *AuthHandler
	Users      *UserHandler
	Rehearsals *RehearsalHandler
	// Authenticate guards every route except registration and login.
	Authenticate func(http.Handler) http.Handler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.Authenticate == nil {
			return h
		}
		return cfg.Authenticate(h)
	}

	if cfg.Auth != nil {
		mux.HandleFunc("POST /sessions/login", cfg.Auth.Login)
		mux.Handle("DELETE /sessions/current", protect(cfg.Auth.Logout))
	}

	if cfg.Users != nil {
		mux.HandleFunc("POST /users", cfg.Users.Register)
		mux.Handle("GET /me", protect(cfg.Users.Me))
		mux.Handle("PUT /me", protect(cfg.Users.UpdateMe))
	}

	if cfg.Rehearsals != nil {
		h := cfg.Rehearsals
		mux.Handle("GET /rehearsals", protect(h.List))
		mux.Handle("POST /rehearsals", protect(h.Create))
		mux.Handle("POST /rehearsals/import", protect(h.Import))
		mux.Handle("GET /rehearsals/{id}", protect(h.Get))
		mux.Handle("DELETE /rehearsals/{id}", protect(h.Delete))
		mux.Handle("PUT /rehearsals/{id}/availability", protect(h.SubmitAvailability))
		mux.Handle("GET /rehearsals/{id}/grid", protect(h.Grid))
		mux.Handle("GET /rehearsals/{id}/slots/{key}", protect(h.Slot))
		mux.Handle("POST /rehearsals/{id}/finalize", protect(h.Finalize))
		mux.Handle("GET /rehearsals/{id}/share", protect(h.Share))
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}
