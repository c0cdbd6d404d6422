package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestDiagAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		hash   string
		header string
		want   int
	}{
		{"open without hash", "", "", http.StatusNoContent},
		{"valid token", string(hash), "Bearer s3cret", http.StatusNoContent},
		{"scheme case", string(hash), "bearer s3cret", http.StatusNoContent},
		{"wrong token", string(hash), "Bearer nope", http.StatusUnauthorized},
		{"missing header", string(hash), "", http.StatusUnauthorized},
		{"basic scheme", string(hash), "Basic s3cret", http.StatusUnauthorized},
		{"empty token", string(hash), "Bearer ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/diag", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			DiagAuth(tt.hash)(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
