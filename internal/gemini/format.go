package gemini

import (
	"assistant-api/internal/models"
	"strings"
)

// toContents converts chat history to the API's content list. System turns are sent
// as user turns; parts the API cannot take are dropped, as are messages left empty.
func toContents(history []models.Message) []wireContent {
	contents := make([]wireContent, 0, len(history))
	for _, msg := range history {
		role := msg.Role
		if role == models.RoleSystem {
			role = models.RoleUser
		}
		var parts []wirePart
		for _, p := range msg.Parts {
			switch p.Type {
			case models.PartText:
				if p.Text != "" {
					parts = append(parts, wirePart{Text: p.Text})
				}
			case models.PartImage, models.PartAudio:
				if data, ok := dataURLPayload(p.Data); ok {
					parts = append(parts, wirePart{InlineData: &inlineData{MimeType: p.MimeType, Data: data}})
				}
			}
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, wireContent{Role: role, Parts: parts})
	}
	return contents
}

func dataURLPayload(v string) (string, bool) {
	if !strings.HasPrefix(v, "data:") {
		return "", false
	}
	i := strings.Index(v, ",")
	if i < 0 || i == len(v)-1 {
		return "", false
	}
	return v[i+1:], true
}

func candidateText(c candidate) string {
	var b strings.Builder
	for _, p := range c.Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}
