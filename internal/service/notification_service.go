package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"suggestion_backend/internal/config"
	"suggestion_backend/internal/model"
	"suggestion_backend/pkg/logger"

	"go.uber.org/zap"
)

// NotificationService 审核结果 webhook 通知。
// 失败只记日志，绝不影响生命周期操作本身。
type NotificationService struct {
	cfg        config.NotifyConfig
	httpClient *http.Client
}

func NewNotificationService(cfg config.NotifyConfig) *NotificationService {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotificationService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type reviewNotification struct {
	SuggestionID uint               `json:"suggestionId"`
	Title        string             `json:"title"`
	Type         model.SuggestionType `json:"type"`
	Team         model.Team         `json:"team"`
	Stage        string             `json:"stage"`
	ReviewStatus model.ReviewStatus `json:"reviewStatus"`
}

func (s *NotificationService) ReviewDecided(sug *model.Suggestion, stage string) {
	if !s.cfg.Enabled || s.cfg.WebhookURL == "" {
		return
	}

	body, err := json.Marshal(reviewNotification{
		SuggestionID: sug.ID,
		Title:        sug.Title,
		Type:         sug.Type,
		Team:         sug.Team,
		Stage:        stage,
		ReviewStatus: sug.ReviewStatus,
	})
	if err != nil {
		logger.Log.Warn("notification marshal failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		logger.Log.Warn("notification request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Log.Warn("notification delivery failed",
			zap.Uint("suggestionId", sug.ID),
			zap.String("stage", stage),
			zap.Error(err),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Log.Warn("notification endpoint returned non-2xx",
			zap.Uint("suggestionId", sug.ID),
			zap.String("stage", stage),
			zap.Int("status", resp.StatusCode),
		)
	}
}
