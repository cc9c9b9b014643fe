package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const Collection = "questions"

type Question struct {
	ID               string     `json:"id,omitempty"`
	Title            string     `json:"title"`
	Category         string     `json:"category"`
	Points           PointValue `json:"points"`
	Tooltip          []string   `json:"tooltip,omitempty"`
	LibraryEvaluated bool       `json:"libraryEvaluated"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// PointValue is either a fixed number of points or a formula description
// such as "2 pkt za każdy rozdział". It encodes as a JSON number or string.
type PointValue struct {
	Number  float64
	Formula string
}

func Points(n float64) PointValue { return PointValue{Number: n} }

func Formula(text string) PointValue { return PointValue{Formula: text} }

func (p PointValue) IsNumeric() bool { return p.Formula == "" }

// Default is the value shown for an unchecked question: the number, or "0" for formulas.
func (p PointValue) Default() string {
	if !p.IsNumeric() {
		return "0"
	}
	return strconv.FormatFloat(p.Number, 'f', -1, 64)
}

func (p PointValue) String() string {
	if p.IsNumeric() {
		return p.Default()
	}
	return p.Formula
}

func (p PointValue) MarshalJSON() ([]byte, error) {
	if p.IsNumeric() {
		return json.Marshal(p.Number)
	}
	return json.Marshal(p.Formula)
}

func (p *PointValue) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*p = PointValue{Number: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("points must be a number or a formula string: %w", err)
	}
	*p = parsePointText(s)
	return nil
}

func (p *PointValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("points must be a scalar at line %d", node.Line)
	}
	*p = parsePointText(node.Value)
	return nil
}

// parsePointText treats numeric text (comma or dot decimal) as a number and anything else as a formula.
func parsePointText(s string) PointValue {
	trimmed := strings.TrimSpace(s)
	if n, err := strconv.ParseFloat(strings.ReplaceAll(trimmed, ",", "."), 64); err == nil {
		return PointValue{Number: n}
	}
	return PointValue{Formula: trimmed}
}

type SeedRow struct {
	Title            string     `json:"title" yaml:"title"`
	Category         string     `json:"category" yaml:"category"`
	Points           PointValue `json:"points" yaml:"points"`
	Tooltip          []string   `json:"tooltip" yaml:"tooltip"`
	LibraryEvaluated bool       `json:"libraryEvaluated" yaml:"libraryEvaluated"`
}

type SeedResult struct {
	Category string `json:"category"`
	Added    int    `json:"added"`
	Skipped  int    `json:"skipped"`
}
