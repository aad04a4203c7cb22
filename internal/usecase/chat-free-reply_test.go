package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractChatFreeReply(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain text body", "  just text \n", "just text"},
		{"response string", `{"response": "  hi there "}`, "hi there"},
		{"key priority", `{"output": "out", "reply": "rep", "message": "msg"}`, "msg"},
		{"list of objects", `{"reply": [{"text": "first"}, {"text": "second"}]}`, "first"},
		{"list of strings", `{"reply": ["first", "second"]}`, "first"},
		{"list of object without text", `{"reply": [{"value": 1}]}`, `{"value":1}`},
		{"empty list falls through", `{"response": [], "output": "fallback"}`, "fallback"},
		{"object with text", `{"output": {"text": "nested"}}`, "nested"},
		{"object with empty text", `{"output": {"text": ""}}`, `{"text":""}`},
		{"null value falls through", `{"response": null, "reply": "next"}`, "next"},
		{"choices text", `{"choices": [{"text": " completion "}]}`, "completion"},
		{"choices message", `{"choices": [{"message": {"content": "chat"}}]}`, "chat"},
		{"empty choices stringified", `{"choices": []}`, `{"choices":[]}`},
		{"unknown object stringified", `{"foo": "bar"}`, `{"foo":"bar"}`},
		{"json string", `"bare"`, "bare"},
		{"json array", `[1,2]`, "[1,2]"},
	}
	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				require.Equal(t, tt.want, extractChatFreeReply([]byte(tt.body)))
			},
		)
	}
}
