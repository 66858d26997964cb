package client

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{"nil", nil, "Unknown error."},
		{"empty string", "", "Unknown error."},
		{"string", "x", "x"},
		{"error value", errors.New("boom"), "boom"},
		{"message", map[string]any{"message": "Policy not found"}, "Policy not found"},
		{"message beats detail", map[string]any{"message": "m", "detail": "d"}, "m"},
		{"detail string", map[string]any{"detail": "bad input"}, "bad input"},
		{"detail list", map[string]any{"detail": []any{
			map[string]any{"msg": "a"},
			map[string]any{"msg": "b"},
		}}, "a; b"},
		{"nested response", map[string]any{"response": map[string]any{
			"data": map[string]any{"message": "nested"},
		}}, "nested"},
		{"validation wrapper", map[string]any{"status": float64(422), "body": map[string]any{
			"detail": []any{map[string]any{"msg": "field required"}, map[string]any{"msg": "too short"}},
		}}, "field required; too short"},
		{"validation wrapper unparsable", map[string]any{"status": float64(422), "body": "?"}, "Validation error (422)."},
		{"bare validation list", []any{map[string]any{"msg": "only"}}, "only"},
		{"unknown object", map[string]any{"code": 7}, "An error occurred."},
		{"empty message falls through", map[string]any{"message": "", "detail": "d"}, "d"},
		{"raw json", json.RawMessage(`{"detail":"from bytes"}`), "from bytes"},
		{"raw non-json", []byte("plain text"), "plain text"},
		{"typed map", map[string]string{"detail": "typed"}, "typed"},
		{"number", 42.0, "An error occurred."},
		{"detail list without msgs", map[string]any{"detail": []any{map[string]any{"loc": "body"}}}, "An error occurred."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractErrorMessage(tt.payload))
		})
	}
}

func TestExtractErrorMessageNeverPanics(t *testing.T) {
	weird := []any{
		make(chan int),
		func() {},
		map[string]any{"detail": map[string]any{"msg": nil}},
		map[string]any{"response": "not an object"},
		map[string]any{"status": "422"},
		[]any{nil, 1.0, []any{}},
	}
	for _, p := range weird {
		assert.NotPanics(t, func() { ExtractErrorMessage(p) })
	}
}
