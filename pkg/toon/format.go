package toon

import (
	"strings"

	"github.com/quorumlabs/council/pkg/backend"
	"github.com/quorumlabs/council/pkg/chats/message"
)

// FormatConversation encodes conversation history for prompt context.
// Each turn reduces to its role and concatenated text.
func FormatConversation(msgs []message.Message) (string, error) {
	rows := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		rows = append(rows, map[string]any{
			"role":    m.Role.String(),
			"content": m.TextContent(),
		})
	}
	return Encode(rows)
}

// FormatStageResponses encodes a stage's successful results for the next
// stage's prompt, in the set's insertion order.
func FormatStageResponses(set *backend.ResultSet) (string, error) {
	var rows []map[string]any
	set.Each(func(model string, r backend.Result) bool {
		if r.OK {
			rows = append(rows, map[string]any{
				"model":    model,
				"response": r.Content,
			})
		}
		return true
	})
	return Encode(rows)
}

// Ranking is one model's ranking verdict from a review stage.
type Ranking struct {
	Model   string
	Verdict string
	Parsed  []string // ranked model identifiers, best first
}

// FormatRankings encodes review-stage rankings for the final stage's prompt.
func FormatRankings(rankings []Ranking) (string, error) {
	rows := make([]map[string]any, 0, len(rankings))
	for _, r := range rankings {
		rows = append(rows, map[string]any{
			"model":   r.Model,
			"ranking": r.Verdict,
			"parsed":  strings.Join(r.Parsed, ">"),
		})
	}
	return Encode(rows)
}
