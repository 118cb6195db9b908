// Package blocks defines the typed display units a tool emits. Blocks
// are values ordered within a tool result; they carry no identity.
package blocks

import "encoding/json"

type Type string

const (
	TypeStatus      Type = "status"
	TypeMetric      Type = "metric"
	TypeTable       Type = "table"
	TypeTrend       Type = "trend"
	TypeSuggestions Type = "suggestions"
	TypeUndo        Type = "undo"
	TypeDirective   Type = "directive"
)

// Status tones.
const (
	ToneInfo    = "info"
	ToneSuccess = "success"
	ToneError   = "error"
)

// Block is a tagged union: Type names the variant and exactly the
// matching payload pointer is set.
type Block struct {
	Type        Type              `json:"type"`
	Status      *StatusBlock      `json:"status,omitempty"`
	Metric      *MetricBlock      `json:"metric,omitempty"`
	Table       *TableBlock       `json:"table,omitempty"`
	Trend       *TrendBlock       `json:"trend,omitempty"`
	Suggestions *SuggestionsBlock `json:"suggestions,omitempty"`
	Undo        *UndoBlock        `json:"undo,omitempty"`
	Directive   *DirectiveBlock   `json:"directive,omitempty"`
}

type StatusBlock struct {
	Text string `json:"text"`
	Tone string `json:"tone"`
}

type MetricBlock struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

type TableBlock struct {
	Title   string     `json:"title,omitempty"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

type TrendPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type TrendBlock struct {
	Label  string       `json:"label"`
	Points []TrendPoint `json:"points"`
}

type SuggestionsBlock struct {
	Items []string `json:"items"`
}

// UndoBlock is the affordance the client renders to let the user revert
// a just-performed mutation.
type UndoBlock struct {
	ActionID uint   `json:"action_id"`
	TurnID   string `json:"turn_id"`
	Label    string `json:"label"`
}

// DirectiveBlock instructs the client to apply a local effect (e.g.
// switch the displayed unit). It never touches server state.
type DirectiveBlock struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Valid reports whether the block names a known type and carries the
// matching payload. Receivers drop invalid blocks rather than fail.
func (b Block) Valid() bool {
	switch b.Type {
	case TypeStatus:
		return b.Status != nil
	case TypeMetric:
		return b.Metric != nil
	case TypeTable:
		return b.Table != nil
	case TypeTrend:
		return b.Trend != nil
	case TypeSuggestions:
		return b.Suggestions != nil
	case TypeUndo:
		return b.Undo != nil
	case TypeDirective:
		return b.Directive != nil
	default:
		return false
	}
}

func Status(text string) Block {
	return Block{Type: TypeStatus, Status: &StatusBlock{Text: text, Tone: ToneInfo}}
}

func Success(text string) Block {
	return Block{Type: TypeStatus, Status: &StatusBlock{Text: text, Tone: ToneSuccess}}
}

func ErrorStatus(text string) Block {
	return Block{Type: TypeStatus, Status: &StatusBlock{Text: text, Tone: ToneError}}
}

func Metric(label string, value float64, unit string) Block {
	return Block{Type: TypeMetric, Metric: &MetricBlock{Label: label, Value: value, Unit: unit}}
}

func Undo(actionID uint, turnID, label string) Block {
	return Block{Type: TypeUndo, Undo: &UndoBlock{ActionID: actionID, TurnID: turnID, Label: label}}
}

func Directive(name string, args json.RawMessage) Block {
	return Block{Type: TypeDirective, Directive: &DirectiveBlock{Name: name, Args: args}}
}
