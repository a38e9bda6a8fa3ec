package export

import (
	"fmt"
	"strings"
)

// Markdown renders a session as a markdown document.
func Markdown(s Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Council Session\n\n")
	fmt.Fprintf(&b, "- **Date:** %s\n", s.CreatedAt.Format("2006-01-02 15:04 MST"))
	if s.Router != "" {
		fmt.Fprintf(&b, "- **Router:** %s\n", s.Router)
	}
	fmt.Fprintf(&b, "\n## Query\n\n%s\n", s.Query)

	if len(s.Tools) > 0 {
		fmt.Fprintf(&b, "\n## Tool Context\n")
		for _, t := range s.Tools {
			fmt.Fprintf(&b, "\n### %s\n\n```json\n%s\n```\n", t.Tool, t.Output)
		}
	}

	fmt.Fprintf(&b, "\n## Answers\n")
	for _, a := range s.Answers {
		if a.Failed {
			fmt.Fprintf(&b, "\n### %s\n\n_No response (backend failure)._\n", a.Model)
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n\n%s\n", a.Model, a.Content)
	}

	return b.String()
}
