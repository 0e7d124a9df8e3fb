package gemini

import (
	"assistant-api/internal/models"
	"fmt"
)

// APIError is a non-2xx answer from the generative language API.
type APIError struct {
	Status  int
	Message string
	Reason  string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("gemini API error %d (%s): %s", e.Status, e.Reason, e.Message)
	}
	return fmt.Sprintf("gemini API error %d: %s", e.Status, e.Message)
}

func (e *APIError) HTTPStatus() int {
	return e.Status
}

// GenerateRequest is one full-history generation call.
type GenerateRequest struct {
	Model        string
	History      []models.Message
	SystemPrompt string
	Params       models.GenerationParams
}

type GenerateResponse struct {
	Text         string               `json:"text"`
	FinishReason string               `json:"finishReason,omitempty"`
	Usage        models.UsageMetadata `json:"usage"`
}

type Model struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	Description                string   `json:"description,omitempty"`
	InputTokenLimit            int      `json:"inputTokenLimit"`
	OutputTokenLimit           int      `json:"outputTokenLimit"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// wire types

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type wirePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
}

type generateContentRequest struct {
	Contents          []wireContent    `json:"contents"`
	SystemInstruction *wireContent     `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type candidate struct {
	Content      wireContent `json:"content"`
	FinishReason string      `json:"finishReason"`
}

type generateContentResponse struct {
	Candidates    []candidate          `json:"candidates"`
	UsageMetadata models.UsageMetadata `json:"usageMetadata"`
}

type listModelsResponse struct {
	Models        []Model `json:"models"`
	NextPageToken string  `json:"nextPageToken"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
