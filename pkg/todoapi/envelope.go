package todoapi

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Unwrap extracts the effective payload from a response body. The backend
// answers either with plain JSON, with a JSON string holding JSON, or with an
// API Gateway proxy object whose "body" field holds the payload (itself often
// a JSON string).
//
// When an embedded string is not valid JSON the unparsed value is returned
// with ok set to false; Unwrap never fails.
func Unwrap(body []byte) (payload json.RawMessage, ok bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, true
	}
	if !gjson.ValidBytes(trimmed) {
		return trimmed, false
	}

	res := gjson.ParseBytes(trimmed)
	if res.IsObject() {
		if inner := res.Get("body"); inner.Exists() {
			return embedded(inner)
		}
		return trimmed, true
	}
	if res.Type == gjson.String {
		return embedded(res)
	}
	return trimmed, true
}

func embedded(v gjson.Result) (json.RawMessage, bool) {
	if v.Type != gjson.String {
		return json.RawMessage(v.Raw), true
	}
	s := strings.TrimSpace(v.Str)
	if !gjson.Valid(s) {
		return json.RawMessage(v.Raw), false
	}
	return json.RawMessage(s), true
}

// errorMessage pulls a human readable message out of an error body.
func errorMessage(body []byte) string {
	payload, _ := Unwrap(body)
	for _, key := range []string{"message", "error", "errorMessage"} {
		if m := gjson.GetBytes(payload, key); m.Type == gjson.String && m.Str != "" {
			return m.Str
		}
	}
	return ""
}
