package server

import (
	"encoding/json"
	"net/http"

	"github.com/iamvkosarev/llm-relay/internal/model"
	"github.com/iamvkosarev/llm-relay/pkg/local"
)

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type modelResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type modelsResponse struct {
	Success bool            `json:"success"`
	Models  []modelResponse `json:"models"`
	Total   int             `json:"total"`
}

type chatRequest struct {
	Message             string          `json:"message"`
	Model               string          `json:"model"`
	ConversationHistory json.RawMessage `json:"conversation_history,omitempty"`
}

type chatResponse struct {
	Success   bool   `json:"success"`
	Model     string `json:"model"`
	Message   string `json:"message"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// exchangeResponse is a history record without the internal provider tag.
type exchangeResponse struct {
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"`
	Model     string `json:"model"`
	Message   string `json:"message"`
	Response  string `json:"response"`
}

type historyResponse struct {
	Success bool               `json:"success"`
	History []exchangeResponse `json:"history"`
}

type turnRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toModelsResponse(models []model.Model) modelsResponse {
	out := make([]modelResponse, 0, len(models))
	for _, m := range models {
		out = append(out, modelResponse{ID: m.ID, Name: m.Name})
	}
	return modelsResponse{
		Success: true,
		Models:  out,
		Total:   len(out),
	}
}

func toHistoryResponse(exchanges []model.ChatExchange) historyResponse {
	out := make([]exchangeResponse, 0, len(exchanges))
	for _, e := range exchanges {
		out = append(
			out, exchangeResponse{
				UserID:    e.UserID,
				Timestamp: e.Timestamp,
				Model:     e.Model,
				Message:   e.Message,
				Response:  e.Response,
			},
		)
	}
	return historyResponse{
		Success: true,
		History: out,
	}
}

// parseConversationHistory accepts only a JSON list of {role, content}
// objects. Anything else means "no history supplied".
func parseConversationHistory(raw json.RawMessage) []model.Turn {
	if len(raw) == 0 {
		return nil
	}
	var turns []turnRequest
	if err := json.Unmarshal(raw, &turns); err != nil || turns == nil {
		return nil
	}
	history := make([]model.Turn, 0, len(turns))
	for _, turn := range turns {
		history = append(history, model.Turn{Role: model.TurnRole(turn.Role), Content: turn.Content})
	}
	return history
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, text local.TextSet) {
	writeJSON(w, status, envelope{Error: text.Text(language(r))})
}

func language(r *http.Request) local.Language {
	return local.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
}
