// Package toon implements a token-oriented compact notation for the payloads
// the pipeline feeds back into model prompts. Uniform lists of flat objects
// encode as a header plus one comma-separated line per row, which costs
// noticeably fewer tokens than JSON; anything non-uniform falls back to JSON
// so encoding never fails on shape alone.
package toon

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Encode converts a value to compact notation. Values that are not a uniform
// list of flat objects are returned as plain JSON.
func Encode(v any) (string, error) {
	norm, err := normalize(v)
	if err != nil {
		return "", fmt.Errorf("toon: encode: %w", err)
	}

	rows, cols, ok := uniformRows(norm)
	if !ok {
		data, err := json.Marshal(norm)
		if err != nil {
			return "", fmt.Errorf("toon: encode fallback: %w", err)
		}
		return string(data), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%d]{%s}:\n", len(rows), strings.Join(cols, ","))
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = encodeCell(row[col])
		}
		b.WriteString("  ")
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Decode parses compact notation back into a generic value. Input without a
// tabular header is treated as JSON.
func Decode(s string) (any, error) {
	lines := strings.Split(s, "\n")
	count, cols, ok := parseHeader(strings.TrimSpace(lines[0]))
	if !ok {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("toon: decode: %w", err)
		}
		return v, nil
	}

	body := lines[1:]
	if len(body) != count {
		return nil, fmt.Errorf("toon: decode: header declares %d rows, found %d", count, len(body))
	}

	out := make([]any, 0, count)
	for i, line := range body {
		cells, err := splitCells(strings.TrimSpace(line))
		if err != nil {
			return nil, fmt.Errorf("toon: decode row %d: %w", i, err)
		}
		if len(cells) != len(cols) {
			return nil, fmt.Errorf("toon: decode row %d: %d cells for %d columns", i, len(cells), len(cols))
		}
		row := make(map[string]any, len(cols))
		for j, col := range cols {
			row[col] = decodeCell(cells[j])
		}
		out = append(out, row)
	}
	return out, nil
}

// CountTokens estimates the token count of text using the rough
// one-token-per-four-characters heuristic, rounded up.
func CountTokens(text string) int {
	return (len(text) + 3) / 4
}

// Stats summarizes the token cost of a payload in both encodings.
type Stats struct {
	JSONTokens   int     `json:"json_tokens"`
	TOONTokens   int     `json:"toon_tokens"`
	SavedPercent float64 `json:"saved_percent"`
}

// SavingsStats computes the token savings of compact notation over JSON for
// the given value.
func SavingsStats(v any) (Stats, error) {
	jsonText, err := json.Marshal(v)
	if err != nil {
		return Stats{}, fmt.Errorf("toon: stats: %w", err)
	}

	toonText, err := Encode(v)
	if err != nil {
		return Stats{}, err
	}

	return makeStats(CountTokens(string(jsonText)), CountTokens(toonText)), nil
}

// AggregateStats sums per-stage stats into one total.
func AggregateStats(stats ...Stats) Stats {
	var jsonTotal, toonTotal int
	for _, s := range stats {
		jsonTotal += s.JSONTokens
		toonTotal += s.TOONTokens
	}
	return makeStats(jsonTotal, toonTotal)
}

func makeStats(jsonTokens, toonTokens int) Stats {
	var saved float64
	if jsonTokens > 0 {
		saved = float64(jsonTokens-toonTokens) / float64(jsonTokens) * 100
	}
	// Round to one decimal place.
	saved = float64(int(saved*10+0.5)) / 10
	return Stats{JSONTokens: jsonTokens, TOONTokens: toonTokens, SavedPercent: saved}
}

// --- shape handling ---

// normalize round-trips v through JSON so that structs and maps share one
// generic representation.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// uniformRows reports whether v is a non-empty list of flat objects sharing
// one scalar-valued key set, returning the rows and the sorted column names.
func uniformRows(v any) ([]map[string]any, []string, bool) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, nil, false
	}

	var cols []string
	rows := make([]map[string]any, 0, len(list))
	for _, item := range list {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, nil, false
		}
		for _, val := range row {
			switch val.(type) {
			case string, float64, bool, nil:
			default:
				return nil, nil, false
			}
		}

		keys := sortedKeys(row)
		if cols == nil {
			cols = keys
		} else if !equalStrings(cols, keys) {
			return nil, nil, false
		}
		rows = append(rows, row)
	}
	return rows, cols, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// --- cell encoding ---

// encodeCell writes a scalar. Bare strings are used when they survive a
// round trip unambiguously; anything else is JSON-quoted.
func encodeCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case string:
		if bareSafe(val) {
			return val
		}
		quoted, _ := json.Marshal(val)
		return string(quoted)
	default:
		quoted, _ := json.Marshal(val)
		return string(quoted)
	}
}

// bareSafe reports whether a string can be written unquoted without being
// misread as a delimiter, another scalar type, or leading/trailing space.
func bareSafe(s string) bool {
	if s == "" || s == "null" || s == "true" || s == "false" {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return false
	}
	if strings.TrimSpace(s) != s {
		return false
	}
	return !strings.ContainsAny(s, ",\"\n")
}

func decodeCell(cell string) any {
	switch cell {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	if strings.HasPrefix(cell, "\"") {
		var s string
		if err := json.Unmarshal([]byte(cell), &s); err == nil {
			return s
		}
	}
	return cell
}

// parseHeader matches the "[N]{a,b,c}:" tabular header.
func parseHeader(line string) (int, []string, bool) {
	if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "}:") {
		return 0, nil, false
	}
	end := strings.Index(line, "]")
	if end < 0 || end+1 >= len(line) || line[end+1] != '{' {
		return 0, nil, false
	}
	count, err := strconv.Atoi(line[1:end])
	if err != nil || count < 0 {
		return 0, nil, false
	}
	cols := strings.Split(line[end+2:len(line)-2], ",")
	return count, cols, true
}

// splitCells splits a row on commas, honoring JSON-quoted cells.
func splitCells(line string) ([]string, error) {
	var cells []string
	for i := 0; i < len(line); {
		if line[i] == '"' {
			end := i + 1
			for end < len(line) {
				if line[end] == '\\' {
					end += 2
					continue
				}
				if line[end] == '"' {
					break
				}
				end++
			}
			if end >= len(line) {
				return nil, fmt.Errorf("unterminated quoted cell")
			}
			cells = append(cells, line[i:end+1])
			i = end + 1
			if i < len(line) && line[i] == ',' {
				i++
			}
			continue
		}

		end := strings.IndexByte(line[i:], ',')
		if end < 0 {
			cells = append(cells, line[i:])
			break
		}
		cells = append(cells, line[i:i+end])
		i += end + 1
	}
	if strings.HasSuffix(line, ",") {
		cells = append(cells, "")
	}
	return cells, nil
}
