package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"bananaart/internal/domain"
)

func TestFailMapsDomainErrors(t *testing.T) {
	app := &App{Logger: zerolog.Nop()}
	tests := []struct {
		err      error
		wantCode int
		wantBody string
	}{
		{fmt.Errorf("%w: image x", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: prompt is required", domain.ErrValidation), http.StatusBadRequest, "bad_request"},
		{domain.ErrConflict, http.StatusConflict, "conflict"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		app.fail(rr, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
		if rr.Code != tc.wantCode {
			t.Fatalf("%v: status = %d, want %d", tc.err, rr.Code, tc.wantCode)
		}
		var body errorBody
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error.Code != tc.wantBody {
			t.Fatalf("%v: code = %q, want %q", tc.err, body.Error.Code, tc.wantBody)
		}
		if tc.wantCode == http.StatusInternalServerError && body.Error.Message == tc.err.Error() {
			t.Fatalf("internal error details leaked")
		}
	}
}

func TestListParams(t *testing.T) {
	tests := []struct {
		query   string
		want    domain.ListParams
		wantErr bool
	}{
		{"", domain.ListParams{Limit: domain.DefaultListLimit}, false},
		{"limit=5&offset=10", domain.ListParams{Limit: 5, Offset: 10}, false},
		{"limit=5&skip=3", domain.ListParams{Limit: 5, Offset: 3}, false},
		{"offset=2&skip=9", domain.ListParams{Limit: domain.DefaultListLimit, Offset: 2}, false},
		{"limit=100000", domain.ListParams{Limit: domain.MaxListLimit}, false},
		{"include_hidden=true", domain.ListParams{Limit: domain.DefaultListLimit, IncludeHidden: true}, false},
		{"limit=x", domain.ListParams{}, true},
		{"include_hidden=maybe", domain.ListParams{}, true},
	}
	for _, tc := range tests {
		got, err := listParams(httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil))
		if tc.wantErr {
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("%q: err = %v, want validation", tc.query, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.query, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %+v, want %+v", tc.query, got, tc.want)
		}
	}
}
