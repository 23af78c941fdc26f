package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"suggestion_backend/internal/config"
	"suggestion_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewDecided(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notify := NewNotificationService(config.NotifyConfig{
		Enabled:    true,
		WebhookURL: srv.URL,
		TimeoutSec: 2,
	})

	sug := &model.Suggestion{
		Title:        "改进巡检路线",
		Type:         model.TypeSafety,
		Team:         model.TeamA,
		ReviewStatus: model.StatusApproved,
	}
	sug.ID = 42

	notify.ReviewDecided(sug, "second_review")

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(<-received, &payload))
	assert.EqualValues(t, 42, payload["suggestionId"])
	assert.Equal(t, "second_review", payload["stage"])
	assert.Equal(t, "approved", payload["reviewStatus"])
}

func TestReviewDecidedDisabled(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	notify := NewNotificationService(config.NotifyConfig{
		Enabled:    false,
		WebhookURL: srv.URL,
	})
	notify.ReviewDecided(&model.Suggestion{}, "first_review")
	assert.False(t, called)
}

// webhook 不可达时不得向调用方传播错误
func TestReviewDecidedEndpointDown(t *testing.T) {
	notify := NewNotificationService(config.NotifyConfig{
		Enabled:    true,
		WebhookURL: "http://127.0.0.1:1/hook",
		TimeoutSec: 1,
	})
	assert.NotPanics(t, func() {
		notify.ReviewDecided(&model.Suggestion{Title: "x"}, "first_review")
	})
}
