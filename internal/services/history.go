package services

import (
	"assistant-api/internal/models"
	"fmt"
	"math"
	"strings"
)

// FormattingRule is appended to every system prompt.
const FormattingRule = "--- SYSTEM RULE --- You MUST NOT wrap LaTeX formulas in ```latex code blocks. " +
	"Instead, you MUST present all mathematical formulas using standard LaTeX delimiters " +
	"($$...$$ for display, $...$ for inline) directly within the text. This is a strict rendering requirement."

func BuildSystemPrompt(userPrompt string) string {
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return FormattingRule
	}
	return userPrompt + "\n\n" + FormattingRule
}

// FilterStaleAttachments keeps only text and image parts on user messages other
// than the most recent one.
func FilterStaleAttachments(history []models.Message) []models.Message {
	last := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			last = i
			break
		}
	}

	out := make([]models.Message, len(history))
	for i, msg := range history {
		if i == last || msg.Role != models.RoleUser {
			out[i] = msg
			continue
		}
		parts := make([]models.Part, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			if p.Type == models.PartText || p.Type == models.PartImage {
				parts = append(parts, p)
			}
		}
		out[i] = models.Message{Role: msg.Role, Parts: parts}
	}
	return out
}

// ConvertAttachments rewrites code and document parts of user messages as delimited text.
func ConvertAttachments(history []models.Message) []models.Message {
	out := make([]models.Message, len(history))
	for i, msg := range history {
		if msg.Role != models.RoleUser {
			out[i] = msg
			continue
		}
		parts := make([]models.Part, len(msg.Parts))
		for j, p := range msg.Parts {
			switch {
			case p.Type == models.PartCodeSummary && p.Summary != nil:
				parts[j] = models.Part{
					Type: models.PartText,
					Text: fmt.Sprintf("--- START OF FILE: %s ---\n\n%s\n\n--- END OF FILE: ---", p.Summary.Filename, p.Summary.FullCode),
				}
			case p.Type == models.PartDocument:
				parts[j] = models.Part{
					Type: models.PartText,
					Text: fmt.Sprintf("--- START OF DOCUMENT: %s ---\n\n%s\n\n--- END OF DOCUMENT ---", p.Name, p.Text),
				}
			default:
				parts[j] = p
			}
		}
		out[i] = models.Message{Role: msg.Role, Parts: parts}
	}
	return out
}

// EstimateTokens approximates text as four characters per token and images as
// 250 tokens per started kilobyte of decoded data.
func EstimateTokens(msg models.Message) int {
	tokens := 0
	for _, p := range msg.Parts {
		switch p.Type {
		case models.PartText:
			tokens += int(math.Ceil(float64(len(p.Text)) / 4))
		case models.PartImage:
			tokens += int(math.Ceil(float64(len(p.Data))*0.75/1000)) * 250
		}
	}
	return tokens
}

// TrimHistory keeps the newest messages whose estimated total fits in limit and
// stops at the first message that does not. A limit of zero or less keeps everything.
func TrimHistory(history []models.Message, limit int) []models.Message {
	if limit <= 0 {
		return history
	}
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		t := EstimateTokens(history[i])
		if total+t > limit {
			break
		}
		total += t
		start = i
	}
	return history[start:]
}

// PrepareHistory applies filtering, attachment conversion and trimming in that order.
func PrepareHistory(history []models.Message, tokenLimit int) []models.Message {
	return TrimHistory(ConvertAttachments(FilterStaleAttachments(history)), tokenLimit)
}
