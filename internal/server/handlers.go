package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/iamvkosarev/llm-relay/internal/observability"
	"github.com/iamvkosarev/llm-relay/internal/usecase"
)

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, MessageInvalidBody)
		return
	}

	session, err := s.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			text := MessageInvalidCredentials.Text(language(r))
			writeJSON(w, http.StatusUnauthorized, envelope{Error: text, Message: text})
			return
		}
		observability.LoggerFromContext(r.Context()).Error("failed to login", "error", err)
		writeError(w, r, http.StatusInternalServerError, MessageServerError)
		return
	}

	s.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: MessageLoginSuccessful.Text(language(r))})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := s.sessionID(r); ok {
		if err := s.Auth.Logout(r.Context(), sessionID); err != nil {
			observability.LoggerFromContext(r.Context()).Warn("failed to delete session", "error", err)
		}
	}
	s.clearSessionCookie(w)
	writeSuccess(w)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toModelsResponse(s.Catalog.ListAllModels(r.Context())))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, session model.Session) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, MessageInvalidBody)
		return
	}

	result, err := s.Chat.Chat(
		r.Context(), usecase.ChatRequest{
			UserID:  session.UserID,
			Message: req.Message,
			Model:   req.Model,
			History: parseConversationHistory(req.ConversationHistory),
		},
	)
	if err != nil {
		s.writeChatError(w, r, err)
		return
	}

	writeJSON(
		w, http.StatusOK, chatResponse{
			Success:   true,
			Model:     result.Model,
			Message:   result.Message,
			Response:  result.Response,
			Timestamp: result.Timestamp,
		},
	)
}

func (s *Server) writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	lang := language(r)
	switch {
	case errors.Is(err, model.ErrAuthRequired):
		writeError(w, r, http.StatusUnauthorized, MessageNotAuthenticated)
		return
	case errors.Is(err, model.ErrMessageRequired):
		writeError(w, r, http.StatusBadRequest, MessageMessageRequired)
		return
	case errors.Is(err, model.ErrModelRequired):
		writeError(w, r, http.StatusBadRequest, MessageModelRequired)
		return
	case errors.Is(err, model.ErrUnknownModel):
		writeError(w, r, http.StatusBadRequest, MessageInvalidModel)
		return
	}

	logger := observability.LoggerFromContext(r.Context())
	var providerErr *model.ProviderError
	if !errors.As(err, &providerErr) {
		logger.Error("chat request failed", "error", err)
		writeJSON(
			w, http.StatusInternalServerError,
			envelope{Error: MessageErrorFormat.Format(lang, MessageServerError.Text(lang))},
		)
		return
	}

	logger.Warn("provider call failed", "provider", providerErr.Provider, "kind", providerErr.Kind, "error", err)
	switch providerErr.Kind {
	case model.ProviderErrorTimeout:
		writeError(w, r, http.StatusGatewayTimeout, MessageRequestTimeout)
	case model.ProviderErrorConnection:
		writeJSON(
			w, http.StatusServiceUnavailable,
			envelope{Error: MessageNetworkErrorFormat.Format(lang, providerErr.Message)},
		)
	default:
		writeJSON(
			w, http.StatusInternalServerError,
			envelope{Error: MessageErrorFormat.Format(lang, providerErr.Message)},
		)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, session model.Session) {
	writeJSON(w, http.StatusOK, toHistoryResponse(s.History.ListForUser(r.Context(), session.UserID)))
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request, session model.Session) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, MessageInvalidIndex)
		return
	}

	if err = s.History.DeleteAt(r.Context(), session.UserID, index); err != nil {
		if errors.Is(err, model.ErrInvalidIndex) {
			writeError(w, r, http.StatusBadRequest, MessageInvalidIndex)
			return
		}
		observability.LoggerFromContext(r.Context()).Error("failed to delete history item", "error", err)
		writeError(w, r, http.StatusInternalServerError, MessageServerError)
		return
	}
	writeSuccess(w)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request, session model.Session) {
	if err := s.History.Clear(r.Context(), session.UserID); err != nil {
		observability.LoggerFromContext(r.Context()).Error("failed to clear history", "error", err)
		writeError(w, r, http.StatusInternalServerError, MessageServerError)
		return
	}
	writeSuccess(w)
}
