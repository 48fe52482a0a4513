package aisearch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/villagehub/bizdir/internal/domain"
)

// buildPrompt renders the directory snapshot and the user's question into a
// single instruction asking for a strict-JSON answer.
func buildPrompt(query string, businesses []domain.Business) string {
	var b strings.Builder

	b.WriteString("You help people find local businesses in a village directory.\n")
	b.WriteString("Answer the question using only the listings below.\n\n")
	b.WriteString("Listings:\n")
	for _, biz := range businesses {
		fmt.Fprintf(&b, "- id=%s name=%q owner=%q services=%s delivery=%t\n",
			biz.ID, biz.ShopName, biz.OwnerName, strings.Join(biz.Services, ","), biz.HomeDelivery)
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nRespond with JSON only, no prose around it, in this shape:\n")
	b.WriteString(`{"summary": "...", "matches": [{"business_id": "..."}, {"text": "..."}]}`)
	b.WriteString("\nUse business_id entries for listings that answer the question and text entries for anything else worth saying.\n")

	return b.String()
}

// modelAnswer is the JSON shape the prompt asks for.
type modelAnswer struct {
	Summary string `json:"summary"`
	Matches []struct {
		BusinessID string `json:"business_id"`
		Text       string `json:"text"`
	} `json:"matches"`
}

// parseResult decodes the model's text into a Result. Business references
// the snapshot does not contain are demoted to free text rather than
// surfacing dangling identifiers.
func parseResult(raw string, businesses []domain.Business) (Result, error) {
	cleaned := stripFences(raw)

	var answer modelAnswer
	if err := json.Unmarshal([]byte(cleaned), &answer); err != nil {
		return Result{}, newError(CategoryMalformedResponse, err)
	}

	known := make(map[string]bool, len(businesses))
	for _, biz := range businesses {
		known[biz.ID] = true
	}

	result := Result{Summary: answer.Summary, Items: []ResultItem{}}
	for _, m := range answer.Matches {
		switch {
		case m.BusinessID != "" && known[m.BusinessID]:
			result.Items = append(result.Items, ResultItem{BusinessID: m.BusinessID})
		case m.BusinessID != "":
			result.Items = append(result.Items, ResultItem{Text: fmt.Sprintf("unknown listing %s", m.BusinessID)})
		case m.Text != "":
			result.Items = append(result.Items, ResultItem{Text: m.Text})
		}
	}

	return result, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// in one.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
