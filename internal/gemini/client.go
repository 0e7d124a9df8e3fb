package gemini

import (
	"assistant-api/internal/logger"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const apiVersion = "/v1beta"

// Client talks to the generative language REST API. The API key travels per call
// so one client serves every configured key.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "assistant-api/1.0")

	client.OnAfterResponse(func(c *resty.Client, r *resty.Response) error {
		logger.Logger.WithFields(logrus.Fields{
			"client":  "gemini",
			"status":  r.StatusCode(),
			"method":  r.Request.Method,
			"path":    r.Request.RawRequest.URL.Path,
			"latency": r.Time().Milliseconds(),
		}).Debug("HTTP client request")
		return nil
	})

	return &Client{http: client}
}

func (c *Client) request(ctx context.Context, apiKey string) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", apiKey)
}

// GenerateContent sends the whole conversation in a single request.
func (c *Client) GenerateContent(ctx context.Context, apiKey string, req GenerateRequest) (*GenerateResponse, error) {
	body := generateContentRequest{
		Contents: toContents(req.History),
		GenerationConfig: generationConfig{
			Temperature: req.Params.Temperature,
			TopP:        req.Params.TopP,
		},
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		body.SystemInstruction = &wireContent{Parts: []wirePart{{Text: req.SystemPrompt}}}
	}
	if len(body.Contents) == 0 {
		return nil, &APIError{Status: http.StatusBadRequest, Message: "cannot send an empty message"}
	}

	var result generateContentResponse
	resp, err := c.request(ctx, apiKey).
		SetPathParam("model", strings.TrimPrefix(req.Model, "models/")).
		SetBody(body).
		SetResult(&result).
		Post(apiVersion + "/models/{model}:generateContent")
	if err != nil {
		return nil, fmt.Errorf("gemini generateContent request failed: %w", err)
	}
	if resp.IsError() {
		return nil, errorFromResponse(resp)
	}
	if len(result.Candidates) == 0 {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "model returned no candidates"}
	}

	return &GenerateResponse{
		Text:         candidateText(result.Candidates[0]),
		FinishReason: result.Candidates[0].FinishReason,
		Usage:        result.UsageMetadata,
	}, nil
}

// ListModels returns the models that support generateContent.
func (c *Client) ListModels(ctx context.Context, apiKey string) ([]Model, error) {
	var out []Model
	pageToken := ""
	for {
		var page listModelsResponse
		req := c.request(ctx, apiKey).
			SetQueryParam("pageSize", "100").
			SetResult(&page)
		if pageToken != "" {
			req.SetQueryParam("pageToken", pageToken)
		}
		resp, err := req.Get(apiVersion + "/models")
		if err != nil {
			return nil, fmt.Errorf("gemini listModels request failed: %w", err)
		}
		if resp.IsError() {
			return nil, errorFromResponse(resp)
		}
		for _, m := range page.Models {
			if supports(m, "generateContent") {
				out = append(out, m)
			}
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

// ValidateKey checks that apiKey is accepted by the API.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) error {
	resp, err := c.request(ctx, apiKey).
		SetQueryParam("pageSize", "1").
		Get(apiVersion + "/models")
	if err != nil {
		return fmt.Errorf("gemini validate request failed: %w", err)
	}
	if resp.IsError() {
		return errorFromResponse(resp)
	}
	return nil
}

func supports(m Model, method string) bool {
	for _, s := range m.SupportedGenerationMethods {
		if s == method {
			return true
		}
	}
	return false
}

func errorFromResponse(resp *resty.Response) error {
	apiErr := &APIError{Status: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
	var env errorEnvelope
	if err := json.Unmarshal(resp.Body(), &env); err == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		apiErr.Reason = env.Error.Status
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}
