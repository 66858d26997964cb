package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Fallback display strings for ExtractErrorMessage.
const (
	MsgNoPayload       = "Unknown error."
	MsgValidationError = "Validation error (422)."
	MsgGenericError    = "An error occurred."
)

// extractor inspects a normalised payload and reports whether it produced a message.
type extractor struct {
	name string
	fn   func(v any) (string, bool)
}

// messageChain is tried in order; the first extractor that matches wins.
var messageChain = []extractor{
	{"string", fromString},
	{"message", fromField("message")},
	{"detail", fromDetail},
	{"response.data.message", fromNestedResponse},
	{"validation", fromValidation},
}

// ExtractErrorMessage turns an arbitrary error payload into one display string.
// It accepts decoded JSON, raw JSON bytes, Go errors and plain strings, and
// never panics.
func ExtractErrorMessage(payload any) string {
	v := normalize(payload)
	if !truthy(v) {
		return MsgNoPayload
	}
	for _, e := range messageChain {
		if msg, ok := e.fn(v); ok {
			return msg
		}
	}
	return MsgGenericError
}

// normalize reduces payload to the shapes produced by encoding/json decoding
// into an interface value.
func normalize(payload any) any {
	switch p := payload.(type) {
	case nil:
		return nil
	case error:
		return p.Error()
	case json.RawMessage:
		return decodeOrString(p)
	case []byte:
		return decodeOrString(p)
	case string, bool, float64, map[string]any, []any:
		return p
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprint(payload)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return v
}

func decodeOrString(data []byte) any {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	return v
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	}
	return true
}

// text renders a scalar as a display string.
func text(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64, bool:
		if truthy(t) {
			return fmt.Sprint(t), true
		}
	}
	return "", false
}

func fromString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}

func fromField(key string) func(any) (string, bool) {
	return func(v any) (string, bool) {
		obj, ok := v.(map[string]any)
		if !ok {
			return "", false
		}
		return text(obj[key])
	}
}

// fromDetail handles the backend's {"detail": ...} shape, which is a string
// for HTTP exceptions and a list of {msg} items for request validation.
func fromDetail(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	if list, ok := obj["detail"].([]any); ok {
		return joinMessages(list)
	}
	return text(obj["detail"])
}

func fromNestedResponse(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	resp, ok := obj["response"].(map[string]any)
	if !ok {
		return "", false
	}
	data, ok := resp["data"].(map[string]any)
	if !ok {
		return "", false
	}
	return text(data["message"])
}

// fromValidation handles {status: 422, body: {detail: [...]}} wrappers and
// bare validation lists.
func fromValidation(v any) (string, bool) {
	switch t := v.(type) {
	case []any:
		return joinMessages(t)
	case map[string]any:
		status, _ := t["status"].(float64)
		if int(status) != http.StatusUnprocessableEntity {
			return "", false
		}
		if body, ok := t["body"].(map[string]any); ok {
			if list, ok := body["detail"].([]any); ok {
				if msg, ok := joinMessages(list); ok {
					return msg, true
				}
			}
		}
		return MsgValidationError, true
	}
	return "", false
}

// joinMessages joins the msg field of each item with "; ".
func joinMessages(list []any) (string, bool) {
	msgs := make([]string, 0, len(list))
	for _, item := range list {
		switch it := item.(type) {
		case string:
			if it != "" {
				msgs = append(msgs, it)
			}
		case map[string]any:
			if msg, ok := text(it["msg"]); ok {
				msgs = append(msgs, msg)
			}
		}
	}
	if len(msgs) == 0 {
		return "", false
	}
	return strings.Join(msgs, "; "), true
}
