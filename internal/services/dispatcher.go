package services

import (
	"assistant-api/internal/gemini"
	"assistant-api/internal/logger"
	"assistant-api/internal/models"
	apperrors "assistant-api/internal/pkg/errors"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ModelInvoker performs one remote generation with one API key.
type ModelInvoker interface {
	GenerateContent(ctx context.Context, apiKey string, req gemini.GenerateRequest) (*gemini.GenerateResponse, error)
}

// Attempt is the outcome of one key tried by the dispatcher.
type Attempt struct {
	Key     models.KeyIdentifier `json:"key"`
	Outcome string               `json:"outcome"`
}

type DispatchResult struct {
	Response *gemini.GenerateResponse
	UsedKey  models.KeyIdentifier
	Attempts []Attempt
}

// Dispatcher sends a request with the first usable key and falls back on quota failures.
type Dispatcher struct {
	invoker   ModelInvoker
	usage     UsageService
	primary   string
	fallbacks []string
}

func NewDispatcher(invoker ModelInvoker, usage UsageService, primary string, fallbacks []string) *Dispatcher {
	return &Dispatcher{
		invoker:   invoker,
		usage:     usage,
		primary:   primary,
		fallbacks: fallbacks,
	}
}

// Dispatch tries the usable keys strictly in order. The result carries the attempts
// made so far even when an error is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string, req gemini.GenerateRequest) (*DispatchResult, error) {
	start := time.Now()
	defer func() {
		dispatchDuration.WithLabelValues(req.Model).Observe(float64(time.Since(start).Milliseconds()))
	}()

	result := &DispatchResult{}
	usable, err := d.usage.UsableKeys(ctx, req.Model, models.CandidateKeys(d.primary, d.fallbacks))
	if err != nil {
		return result, err
	}
	if len(usable) == 0 {
		dispatchResultsTotal.WithLabelValues(req.Model, string(models.StatusQuotaExhausted)).Inc()
		return result, apperrors.QuotaExhausted(req.Model)
	}

	for _, key := range usable {
		id := models.IdentifierFor(key)

		if ctx.Err() != nil {
			return result, d.cancelled(req.Model, ctx.Err())
		}

		resp, err := d.invoker.GenerateContent(ctx, key, req)
		if err == nil {
			result.Attempts = append(result.Attempts, Attempt{Key: id, Outcome: "success"})
			result.Response = resp
			result.UsedKey = id
			dispatchAttemptsTotal.WithLabelValues(req.Model, "success").Inc()
			dispatchResultsTotal.WithLabelValues(req.Model, string(models.StatusSuccess)).Inc()

			// The response is already in hand, so recording must outlive a late cancel.
			if rerr := d.usage.RecordUsage(context.WithoutCancel(ctx), sessionID, req.Model, resp.Usage, id, false); rerr != nil {
				logger.LogEvent(logrus.ErrorLevel, "Failed to record usage", logrus.Fields{
					"error": rerr.Error(),
					"key":   id,
					"model": req.Model,
				})
			}
			return result, nil
		}

		kind := ClassifyFailure(err)
		if ctx.Err() != nil {
			kind = FailureCancellation
		}
		result.Attempts = append(result.Attempts, Attempt{Key: id, Outcome: kind.String()})
		dispatchAttemptsTotal.WithLabelValues(req.Model, kind.String()).Inc()

		switch kind {
		case FailureCancellation:
			return result, d.cancelled(req.Model, err)
		case FailureQuota:
			logger.LogEvent(logrus.WarnLevel, "API key hit quota, trying next key", logrus.Fields{
				"key":   id,
				"model": req.Model,
				"error": err.Error(),
			})
			if rerr := d.usage.RecordUsage(ctx, sessionID, req.Model, models.UsageMetadata{}, id, true); rerr != nil {
				logger.LogEvent(logrus.ErrorLevel, "Failed to record quota attempt", logrus.Fields{
					"error": rerr.Error(),
					"key":   id,
					"model": req.Model,
				})
			}
		default:
			dispatchResultsTotal.WithLabelValues(req.Model, string(models.StatusError)).Inc()
			return result, apperrors.New(fmt.Errorf("%w: %w", apperrors.ErrUpstream, err), apperrors.CodeUpstream, err.Error())
		}
	}

	dispatchResultsTotal.WithLabelValues(req.Model, string(models.StatusQuotaExhausted)).Inc()
	return result, apperrors.AllKeysExhausted(req.Model)
}

func (d *Dispatcher) cancelled(model string, err error) error {
	dispatchResultsTotal.WithLabelValues(model, string(models.StatusCancelled)).Inc()
	logger.LogEvent(logrus.InfoLevel, "Generation cancelled", logrus.Fields{"model": model})
	return apperrors.Cancelled(err)
}
