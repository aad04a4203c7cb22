package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/llm-relay/config"
	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/iamvkosarev/llm-relay/internal/usecase"
)

type ServerDeps struct {
	Auth    *usecase.AuthUsecase
	Catalog *usecase.CatalogUsecase
	Chat    *usecase.ChatUsecase
	History *usecase.HistoryUsecase
}

type Server struct {
	ServerDeps
	cfg config.HTTP
}

// NewServer builds the JSON API handler with request id, logging and CORS
// middleware applied.
func NewServer(cfg config.HTTP, deps ServerDeps) http.Handler {
	s := &Server{
		ServerDeps: deps,
		cfg:        cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("POST /api/chat", s.requireSession(s.handleChat))
	mux.HandleFunc("GET /api/history", s.requireSession(s.handleHistory))
	mux.HandleFunc("DELETE /api/history/delete/{index}", s.requireSession(s.handleDeleteHistory))
	mux.HandleFunc("DELETE /api/history/clear", s.requireSession(s.handleClearHistory))

	return chainMiddlewares(mux, withCORS(cfg.AllowedOrigins), withLogging, withRequestID)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, session model.Session)

func (s *Server) requireSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.currentSession(r)
		if !ok {
			writeError(w, r, http.StatusUnauthorized, MessageNotAuthenticated)
			return
		}
		next(w, r, session)
	}
}

func (s *Server) currentSession(r *http.Request) (model.Session, bool) {
	sessionID, ok := s.sessionID(r)
	if !ok {
		return model.Session{}, false
	}
	session, err := s.Auth.Authenticate(r.Context(), sessionID)
	if err != nil {
		return model.Session{}, false
	}
	return session, true
}

func (s *Server) sessionID(r *http.Request) (uuid.UUID, bool) {
	cookie, err := r.Cookie(s.cfg.CookieName)
	if err != nil {
		return uuid.UUID{}, false
	}
	sessionID, err := uuid.Parse(cookie.Value)
	if err != nil {
		return uuid.UUID{}, false
	}
	return sessionID, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, session model.Session) {
	cookie := &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    session.SessionID.String(),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.cfg.SessionTTL > 0 {
		cookie.Expires = session.CreatedAt.Add(s.cfg.SessionTTL)
		cookie.MaxAge = int(s.cfg.SessionTTL / time.Second)
	}
	http.SetCookie(w, cookie)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(
		w, &http.Cookie{
			Name:     s.cfg.CookieName,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   s.cfg.CookieSecure,
			MaxAge:   -1,
		},
	)
}
