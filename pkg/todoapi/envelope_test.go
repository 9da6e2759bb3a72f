package todoapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{name: "gateway string body", body: `{"statusCode":200,"body":"{\"taskId\":\"1\"}"}`, want: `{"taskId":"1"}`, wantOK: true},
		{name: "gateway object body", body: `{"statusCode":200,"body":{"taskId":"1"}}`, want: `{"taskId":"1"}`, wantOK: true},
		{name: "gateway list body", body: `{"statusCode":200,"body":"[{\"taskId\":\"1\"}]"}`, want: `[{"taskId":"1"}]`, wantOK: true},
		{name: "gateway null body", body: `{"statusCode":204,"body":null}`, want: `null`, wantOK: true},
		{name: "gateway malformed body", body: `{"statusCode":200,"body":"{bad json"}`, want: `"{bad json"`, wantOK: false},
		{name: "gateway empty body", body: `{"statusCode":200,"body":""}`, want: `""`, wantOK: false},
		{name: "stringified json", body: `"[{\"taskId\":\"1\"}]"`, want: `[{"taskId":"1"}]`, wantOK: true},
		{name: "stringified garbage", body: `"hello"`, want: `"hello"`, wantOK: false},
		{name: "plain list", body: `[{"taskId":"1"}]`, want: `[{"taskId":"1"}]`, wantOK: true},
		{name: "plain object without body", body: ` {"taskId":"1"} `, want: `{"taskId":"1"}`, wantOK: true},
		{name: "not json at all", body: `<html>oops</html>`, want: `<html>oops</html>`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Unwrap([]byte(tt.body))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestUnwrapEmpty(t *testing.T) {
	got, ok := Unwrap(nil)
	assert.True(t, ok)
	assert.Nil(t, got)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "Task not found", errorMessage([]byte(`{"message":"Task not found"}`)))
	assert.Equal(t, "Could not create task", errorMessage([]byte(`{"error":"Could not create task"}`)))
	assert.Equal(t, "boom", errorMessage([]byte(`{"statusCode":500,"body":"{\"message\":\"boom\"}"}`)))
	assert.Equal(t, "", errorMessage([]byte(`Internal Server Error`)))
}
