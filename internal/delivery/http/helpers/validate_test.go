package helpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (n nameRequest) Validate() []string {
	if n.Name == "" {
		return []string{"name is required"}
	}
	return nil
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantOK      bool
		wantMessage string
	}{
		{name: "valid", body: `{"name":"Open Mic"}` + "\n", wantOK: true},
		{name: "empty body", body: ``, wantMessage: "request body is required"},
		{name: "unknown field", body: `{"name":"x","venue":"Hall"}`, wantMessage: "unknown field"},
		{name: "trailing object", body: `{"name":"x"}{"name":"y"}`, wantMessage: "single JSON object"},
		{name: "validation", body: `{"name":""}`, wantMessage: "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var dest nameRequest
			ok := DecodeAndValidate(rr, req, &dest)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, "Open Mic", dest.Name)
				return
			}
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantMessage)
		})
	}
}
