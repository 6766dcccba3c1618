package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/mergington/internal/model"
)

func TestWriteErrorResponse_Format(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		apiErr     *model.APIError
		wantDetail string
	}{
		{"not found", http.StatusNotFound, model.NewActivityNotFoundError(), "Activity not found"},
		{"not signed up", http.StatusBadRequest, model.NewNotSignedUpError(), "Student is not signed up for this activity"},
		{"missing email", http.StatusUnprocessableEntity, model.NewMissingEmailError(), "email query parameter is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteErrorResponse(w, tt.statusCode, tt.apiErr)

			if w.Code != tt.statusCode {
				t.Errorf("status = %d, want %d", w.Code, tt.statusCode)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want %q", ct, "application/json")
			}

			var body map[string]interface{}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body["detail"] != tt.wantDetail {
				t.Errorf("detail = %q, want %q", body["detail"], tt.wantDetail)
			}
			// コードやカテゴリは内部情報のためレスポンスに含めない
			if len(body) != 1 {
				t.Errorf("response should only contain detail, got %v", body)
			}
		})
	}
}

func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Detail != "Internal server error" {
		t.Errorf("detail = %q, want %q", body.Detail, "Internal server error")
	}
}
