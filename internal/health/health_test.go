package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/verivote/verivote/internal/health"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := health.New()
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Healthz: status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["status"] != "ok" {
		t.Fatalf("Healthz: status field = %v, want ok", body["status"])
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	t.Run("all checks pass", func(t *testing.T) {
		t.Parallel()
		h := health.New(
			health.Checker{Name: "face_store", Check: func(context.Context) error { return nil }},
			health.Checker{Name: "ledger", Check: func(context.Context) error { return nil }},
		)
		rec := httptest.NewRecorder()
		h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("Readyz: status = %d, want 200", rec.Code)
		}
		body := decodeBody(t, rec)
		checks := body["checks"].(map[string]any)
		if checks["face_store"] != "ok" || checks["ledger"] != "ok" {
			t.Fatalf("Readyz: checks = %v, want all ok", checks)
		}
	})

	t.Run("failing check reports 503", func(t *testing.T) {
		t.Parallel()
		h := health.New(
			health.Checker{Name: "face_store", Check: func(context.Context) error { return nil }},
			health.Checker{Name: "ledger", Check: func(context.Context) error {
				return errors.New("connection refused")
			}},
		)
		rec := httptest.NewRecorder()
		h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("Readyz: status = %d, want 503", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["status"] != "fail" {
			t.Fatalf("Readyz: status field = %v, want fail", body["status"])
		}
		checks := body["checks"].(map[string]any)
		if checks["face_store"] != "ok" {
			t.Fatalf("Readyz: face_store = %v, want ok", checks["face_store"])
		}
		if !strings.HasPrefix(checks["ledger"].(string), "fail:") {
			t.Fatalf("Readyz: ledger = %v, want fail prefix", checks["ledger"])
		}
	})

	t.Run("checker receives a deadline", func(t *testing.T) {
		t.Parallel()
		h := health.New(health.Checker{Name: "probe", Check: func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline set")
			}
			return nil
		}})
		rec := httptest.NewRecorder()
		h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("Readyz: status = %d, want 200 (checker saw no deadline)", rec.Code)
		}
	})
}
