package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
	"github.com/JeffBrines/RealEstateInsightsPub/internal/stats"
)

const systemPrompt = `You are a residential real-estate market analyst.
Answer the user's question using only the dataset context provided.
Reply with a single JSON object and nothing else:
{"answer": "<plain-language answer>", "data": {<optional key figures>}, "filters": {<optional filter to apply>}}
Allowed filter keys: dateFrom, dateTo (YYYY-MM-DD), minPrice, maxPrice, city, zipCode, minBeds, minBaths, propertyTypes (array), status (Active, Sold, Pending, Withdrawn).
Use US dollar amounts without abbreviations in data values.`

// promptContext is the dataset description sent with each question.
type promptContext struct {
	Summary       stats.Summary      `json:"summary"`
	KPIs          models.KPIData     `json:"kpis"`
	ActiveFilters *models.FilterSpec `json:"activeFilters,omitempty"`
	Records       []models.Property  `json:"records,omitempty"`
}

func buildMessages(query string, ctx promptContext) ([]Message, error) {
	body, err := json.Marshal(ctx)
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Dataset context:\n%s\n\nQuestion: %s", body, query)},
	}, nil
}

// modelReply is the JSON object the model is asked to produce.
type modelReply struct {
	Answer  string             `json:"answer"`
	Data    map[string]any     `json:"data,omitempty"`
	Filters *models.FilterSpec `json:"filters,omitempty"`
}

// parseReply accepts the requested JSON object, optionally inside a code
// fence. Anything else is taken as a plain-text answer.
func parseReply(content string) (modelReply, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return modelReply{}, ErrEmptyResponse
	}

	body := strings.TrimSpace(stripFence(text))
	if strings.HasPrefix(body, "{") {
		var reply modelReply
		if err := json.Unmarshal([]byte(body), &reply); err == nil {
			if strings.TrimSpace(reply.Answer) == "" {
				return modelReply{}, ErrEmptyResponse
			}
			if reply.Filters.IsEmpty() {
				reply.Filters = nil
			}
			return reply, nil
		}
	}
	return modelReply{Answer: text}, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
