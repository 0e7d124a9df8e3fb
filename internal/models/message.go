package models

const (
	RoleUser   = "user"
	RoleModel  = "model"
	RoleSystem = "system"
)

const (
	PartText        = "text"
	PartImage       = "image"
	PartAudio       = "audio"
	PartCodeSummary = "code-summary"
	PartDocument    = "document"
)

// CodeSummary is an uploaded source file the client has already read.
type CodeSummary struct {
	Filename string `json:"filename"`
	FullCode string `json:"fullCode"`
}

// Part is one piece of a chat message. Data holds a data: URL for binary parts.
type Part struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	Data     string       `json:"data,omitempty"`
	MimeType string       `json:"mimeType,omitempty"`
	Name     string       `json:"name,omitempty"`
	Summary  *CodeSummary `json:"summary,omitempty"`
}

type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// GenerationParams are the sampling settings sent with each request.
type GenerationParams struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
}
