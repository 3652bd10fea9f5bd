package webutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serve(h AppHandler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	MakeHandler(h)(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestMakeHandlerMapsErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"bad request", ErrBadRequest("limit must be positive"), http.StatusBadRequest, "limit must be positive"},
		{"default message", ErrNotFound(""), http.StatusNotFound, msgNotFound},
		{"wrapped conflict", fmt.Errorf("handler: %w", ErrConflictWrap("Worker W1 already checked in today.", errors.New("dup"))), http.StatusConflict, "Worker W1 already checked in today."},
		{"bad gateway", ErrBadGatewayWrap("", errors.New("timeout")), http.StatusBadGateway, msgBadGateway},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, msgServiceUnavailable},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, msgInternalServer},
		{"unauthorized", ErrUnauthorized(""), http.StatusUnauthorized, msgUnauthorized},
		{"too large", ErrRequestTooLargeWrap("", errors.New("limit")), http.StatusRequestEntityTooLarge, msgRequestTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(func(w http.ResponseWriter, r *http.Request) error { return tt.err })
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if msg := errorBody(t, rec); msg != tt.wantMsg {
				t.Errorf("message = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestMakeHandlerKeepsWrittenResponse(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) error {
		RespondWithJSON(w, http.StatusCreated, map[string]int{"id": 1})
		return errors.New("late failure")
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("code = %d, want 201", rec.Code)
	}
	if rec.Body.String() != `{"id":1}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestMakeHandlerIgnoresPresetContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set(HeaderContentType, ContentTypeJSONUTF8)
	MakeHandler(func(w http.ResponseWriter, r *http.Request) error {
		return ErrUnauthorized("")
	})(rec, httptest.NewRequest(http.MethodPost, "/x", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("code = %d, want 401", rec.Code)
	}
}

func TestKeysMatch(t *testing.T) {
	if !KeysMatch("s3cret", "s3cret") {
		t.Error("identical keys should match")
	}
	for _, provided := range []string{"", "s3cre", "s3cret ", "S3CRET"} {
		if KeysMatch(provided, "s3cret") {
			t.Errorf("%q should not match", provided)
		}
	}
}

func TestReadBody(t *testing.T) {
	read := func(body string) ([]byte, error) {
		r := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
		return ReadBody(httptest.NewRecorder(), r, 8)
	}

	got, err := read("12345678")
	if err != nil || string(got) != "12345678" {
		t.Fatalf("ReadBody at limit = %q, %v", got, err)
	}

	_, err = read("123456789")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %v", err)
	}
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) || tooLarge.Limit != 8 {
		t.Errorf("cause = %v", err)
	}
}
