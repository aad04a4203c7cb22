package usecase

import (
	"encoding/json"
	"fmt"
	"strings"
)

// replyKeys are probed in order on the top-level reply object.
var replyKeys = []string{"response", "message", "reply", "output"}

type replyKind int

const (
	replyOther replyKind = iota
	replyString
	replyList
	replyObject
)

// replyValue is a decoded JSON value tagged by the shape the extractor cares about.
type replyValue struct {
	kind   replyKind
	str    string
	list   []any
	object map[string]any
	raw    any
}

func newReplyValue(v any) replyValue {
	switch typed := v.(type) {
	case string:
		return replyValue{kind: replyString, str: typed, raw: v}
	case []any:
		return replyValue{kind: replyList, list: typed, raw: v}
	case map[string]any:
		return replyValue{kind: replyObject, object: typed, raw: v}
	default:
		return replyValue{kind: replyOther, raw: v}
	}
}

func (r replyValue) String() string {
	if r.kind == replyString {
		return r.str
	}
	encoded, err := json.Marshal(r.raw)
	if err != nil {
		return fmt.Sprint(r.raw)
	}
	return string(encoded)
}

// extractChatFreeReply pulls reply text out of whatever shape the upstream
// returned. Bodies that are not JSON are returned trimmed.
func extractChatFreeReply(body []byte) string {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return strings.TrimSpace(string(body))
	}
	root := newReplyValue(data)
	if root.kind != replyObject {
		return strings.TrimSpace(root.String())
	}

	for _, key := range replyKeys {
		value, ok := root.object[key]
		if !ok {
			continue
		}
		if text, ok := replyFromValue(newReplyValue(value)); ok {
			return strings.TrimSpace(text)
		}
	}

	if text, ok := replyFromChoices(root.object); ok {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(root.String())
}

func replyFromValue(value replyValue) (string, bool) {
	switch value.kind {
	case replyString:
		return value.str, true
	case replyList:
		if len(value.list) == 0 {
			return "", false
		}
		first := newReplyValue(value.list[0])
		if first.kind == replyObject {
			if text, ok := first.object["text"].(string); ok {
				return text, true
			}
		}
		return first.String(), true
	case replyObject:
		if text, ok := value.object["text"].(string); ok && text != "" {
			return text, true
		}
		return value.String(), true
	default:
		return "", false
	}
}

// replyFromChoices handles the OpenAI-style {"choices": [{"text"} | {"message": {"content"}}]} shape.
func replyFromChoices(object map[string]any) (string, bool) {
	choices, ok := object["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	if text, ok := choice["text"]; ok {
		return newReplyValue(text).String(), true
	}
	if message, ok := choice["message"].(map[string]any); ok {
		content, _ := message["content"].(string)
		return content, true
	}
	return "", false
}
