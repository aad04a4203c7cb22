package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iamvkosarev/llm-relay/internal/model"
)

const historyFileMode = 0o644

type exchangeInternal struct {
	UserID    string         `json:"user_id"`
	Timestamp string         `json:"timestamp"`
	Model     string         `json:"model"`
	Message   string         `json:"message"`
	Response  string         `json:"response"`
	Provider  model.Provider `json:"provider,omitempty"`
}

// HistoryStorage keeps every exchange of every user in one JSON array document.
type HistoryStorage struct {
	path string
}

func NewHistoryStorage(path string) *HistoryStorage {
	return &HistoryStorage{
		path: path,
	}
}

// Load returns an empty slice for a missing or blank file and wraps
// model.ErrHistoryCorrupted when the document cannot be parsed.
func (h *HistoryStorage) Load(_ context.Context) ([]model.ChatExchange, error) {
	raw, err := os.ReadFile(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.ChatExchange{}, nil
		}
		return nil, fmt.Errorf("failed to read history file %s: %w", h.path, err)
	}
	return DecodeHistory(raw)
}

func (h *HistoryStorage) Save(_ context.Context, exchanges []model.ChatExchange) error {
	raw, err := EncodeHistory(exchanges)
	if err != nil {
		return err
	}
	dir := filepath.Dir(h.path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create history dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(h.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err = tmp.Chmod(historyFileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod history file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close history file: %w", err)
	}
	if err = os.Rename(tmp.Name(), h.path); err != nil {
		return fmt.Errorf("failed to replace history file %s: %w", h.path, err)
	}
	return nil
}

// EncodeHistory renders exchanges as an indented JSON array without HTML
// escaping. Loaded records are written back as they were read.
func EncodeHistory(exchanges []model.ChatExchange) ([]byte, error) {
	records := make([]json.RawMessage, 0, len(exchanges))
	for _, exchange := range exchanges {
		if exchange.Record != "" {
			records = append(records, json.RawMessage(exchange.Record))
			continue
		}
		record, err := marshalExchange(exchange)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	return buf.Bytes(), nil
}

func marshalExchange(exchange model.ChatExchange) (json.RawMessage, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	err := encoder.Encode(
		exchangeInternal{
			UserID:    exchange.UserID,
			Timestamp: exchange.Timestamp,
			Model:     exchange.Model,
			Message:   exchange.Message,
			Response:  exchange.Response,
			Provider:  exchange.Provider,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal exchange: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// DecodeHistory fails only when raw is not a JSON array. Each element keeps
// its original JSON; known fields are read leniently, so a value of another
// type is kept as its JSON text and a non-object element decodes to an
// exchange owned by nobody.
func DecodeHistory(raw []byte) ([]model.ChatExchange, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []model.ChatExchange{}, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrHistoryCorrupted, err)
	}
	exchanges := make([]model.ChatExchange, 0, len(records))
	for _, record := range records {
		exchanges = append(exchanges, decodeExchange(record))
	}
	return exchanges, nil
}

func decodeExchange(record json.RawMessage) model.ChatExchange {
	var compact bytes.Buffer
	if err := json.Compact(&compact, record); err != nil {
		compact.Reset()
		compact.Write(record)
	}
	exchange := model.ChatExchange{Record: compact.String()}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(record, &fields); err != nil {
		return exchange
	}
	exchange.UserID = fieldText(fields["user_id"])
	exchange.Timestamp = fieldText(fields["timestamp"])
	exchange.Model = fieldText(fields["model"])
	exchange.Message = fieldText(fields["message"])
	exchange.Response = fieldText(fields["response"])
	exchange.Provider = model.Provider(fieldText(fields["provider"]))
	return exchange
}

// fieldText returns a JSON string's value, "" for a missing or null field,
// and the JSON text of any other value.
func fieldText(value json.RawMessage) string {
	if len(value) == 0 || string(value) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(value, &text); err == nil {
		return text
	}
	return string(value)
}
