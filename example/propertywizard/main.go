// Command propertywizard walks the property wizard end to end against a
// stub backend: fills the steps, triggers a backend validation failure, and
// resubmits successfully.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/bytedance/sonic"

	"github.com/propdesk/formflow/draft"
	"github.com/propdesk/formflow/session"
	"github.com/propdesk/formflow/submit"
	"github.com/propdesk/formflow/wizard"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	backend := newStubBackend()
	defer backend.Close()

	store := draft.NewKVStore(draft.NewMemoryKV(), "draft_property")
	sess := session.New(wizard.Property(), session.ModeAdd,
		session.WithDraftStore(store),
		session.WithSubmitter(submit.NewHTTPSubmitter(backend.URL)),
		session.WithOnSuccess(func(entity map[string]any) {
			logger.Info("property saved", "id", entity["id"])
		}),
	)

	ctx := context.Background()
	if err := sess.Open(ctx, nil); err != nil {
		logger.Error("open failed", "err", err)
		os.Exit(1)
	}

	fill(sess, map[string]any{
		"title":        "Marina loft",
		"propertyType": "apartment",
		"bedrooms":     2,
		"bathrooms":    2,
		"floorLevel":   14,
		"area":         "1250 sq ft",
	})
	sess.Next()
	fill(sess, map[string]any{
		"location.address": "12 Harbour Walk",
		"location.city":    "Dubai",
	})
	sess.Next()
	fill(sess, map[string]any{"price.total": 1850000})
	sess.Next()

	// First submit: the stub rejects with a field-level validation error.
	if _, err := sess.Submit(ctx); err != nil {
		logger.Info("first submit rejected", "errors", sess.Errors())
	}

	fill(sess, map[string]any{"location.community": "Marina East"})
	if _, err := sess.Submit(ctx); err != nil {
		logger.Error("second submit failed", "err", err)
		os.Exit(1)
	}
	logger.Info("wizard finished", "phase", sess.Phase())
}

func fill(sess *session.Session, fields map[string]any) {
	for path, value := range fields {
		if err := sess.SetField(path, value); err != nil {
			slog.Error("set field failed", "path", path, "err", err)
		}
	}
}

// newStubBackend rejects the first create with a backend validation payload
// and accepts the second.
func newStubBackend() *httptest.Server {
	attempts := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		if attempts == 1 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			body, _ := sonic.Marshal(map[string]any{
				"error":   submit.CodeValidationError,
				"errors":  []string{"Path `location.community` is required."},
				"message": "validation failed",
			})
			w.Write(body)
			return
		}
		body, _ := sonic.Marshal(map[string]any{
			"success":  true,
			"property": map[string]any{"id": "prop_1042", "title": "Marina loft"},
		})
		w.Write(body)
	}))
}
