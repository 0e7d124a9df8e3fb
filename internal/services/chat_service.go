package services

import (
	"assistant-api/internal/config"
	"assistant-api/internal/gemini"
	"assistant-api/internal/logger"
	"assistant-api/internal/models"
	apperrors "assistant-api/internal/pkg/errors"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ChatRequest struct {
	SessionID         string           `json:"-"`
	RequestID         string           `json:"-"`
	Model             string           `json:"model"`
	History           []models.Message `json:"history"`
	ChatID            string           `json:"chatId,omitempty"`
	SystemPrompt      string           `json:"systemPrompt,omitempty"`
	Temperature       *float64         `json:"temperature,omitempty"`
	TopP              *float64         `json:"topP,omitempty"`
	HistoryTokenLimit *int             `json:"historyTokenLimit,omitempty"`
}

type ChatReply struct {
	Reply   models.Part          `json:"reply"`
	ChatID  string               `json:"chatId"`
	Usage   models.UsageMetadata `json:"usage"`
	UsedKey models.KeyIdentifier `json:"usedKey"`
}

type ChatService interface {
	Send(ctx context.Context, req ChatRequest) (*ChatReply, error)
}

type chatService struct {
	dispatcher *Dispatcher
	logs       RequestLogService
	generation config.GenerationConfig
}

func NewChatService(dispatcher *Dispatcher, logs RequestLogService, generation config.GenerationConfig) ChatService {
	return &chatService{
		dispatcher: dispatcher,
		logs:       logs,
		generation: generation,
	}
}

func (s *chatService) Send(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	if req.Model == "" || req.History == nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, apperrors.CodeInvalidInput, "model and a valid history are both required")
	}

	limit := s.generation.HistoryTokenLimit
	if req.HistoryTokenLimit != nil {
		limit = *req.HistoryTokenLimit
	}
	history := PrepareHistory(req.History, limit)
	if len(history) == 0 || len(history[len(history)-1].Parts) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, apperrors.CodeInvalidInput, "cannot send an empty message")
	}

	params := models.GenerationParams{Temperature: s.generation.Temperature, TopP: s.generation.TopP}
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}
	if req.TopP != nil {
		params.TopP = *req.TopP
	}

	chatID := req.ChatID
	if chatID == "" {
		chatID = uuid.NewString()
	}

	start := time.Now()
	result, err := s.dispatcher.Dispatch(ctx, req.SessionID, gemini.GenerateRequest{
		Model:        req.Model,
		History:      history,
		SystemPrompt: BuildSystemPrompt(req.SystemPrompt),
		Params:       params,
	})
	s.audit(ctx, req, result, err, time.Since(start))
	if err != nil {
		return nil, err
	}

	logger.LogEvent(logrus.InfoLevel, "Chat reply generated", logrus.Fields{
		"session_id": req.SessionID,
		"chat_id":    chatID,
		"model":      req.Model,
		"key":        result.UsedKey,
		"tokens":     result.Response.Usage.TotalTokenCount,
	})

	return &ChatReply{
		Reply:   models.Part{Type: models.PartText, Text: result.Response.Text},
		ChatID:  chatID,
		Usage:   result.Response.Usage,
		UsedKey: result.UsedKey,
	}, nil
}

func (s *chatService) audit(ctx context.Context, req ChatRequest, result *DispatchResult, err error, latency time.Duration) {
	if s.logs == nil {
		return
	}

	entry := &models.RequestLog{
		RequestID: req.RequestID,
		SessionID: req.SessionID,
		Model:     req.Model,
		Status:    statusOf(err),
		Attempts:  models.JSON{},
		LatencyMs: latency.Milliseconds(),
	}
	if result != nil {
		for _, a := range result.Attempts {
			entry.Attempts[string(a.Key)] = a.Outcome
		}
		entry.UsedKey = result.UsedKey
		if result.Response != nil {
			entry.TotalTokens = result.Response.Usage.TotalTokenCount
		}
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}

	if lerr := s.logs.LogRequest(context.WithoutCancel(ctx), entry); lerr != nil {
		logger.LogEvent(logrus.ErrorLevel, "Failed to write request log", logrus.Fields{"error": lerr.Error()})
	}
}

func statusOf(err error) models.RequestStatus {
	switch {
	case err == nil:
		return models.StatusSuccess
	case errors.Is(err, apperrors.ErrCancelled):
		return models.StatusCancelled
	case errors.Is(err, apperrors.ErrQuotaExhausted):
		return models.StatusQuotaExhausted
	default:
		return models.StatusError
	}
}
