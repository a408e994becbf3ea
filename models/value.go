package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ValueKind tags the interpretation of a cell value.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindNumber
	KindDate
	KindText
)

func (k ValueKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindText:
		return "text"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Display layouts used when rendering date cells.
const (
	QueryDateLayout  = "02/01/2006"
	DetailDateLayout = "2006-01-02"
)

// cellDateLayouts are tried in order. Day-first layouts come before
// month-first ones since the uploaded spreadsheets are day-first.
var cellDateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01-02-06",
	"02-01-2006",
}

// Value is a single cell. Raw keeps the text exactly as received so
// identifiers like "00123" are displayed and matched unchanged.
type Value struct {
	Kind ValueKind
	Raw  string
	Num  float64
	Time time.Time
}

// Empty is the zero Value.
var Empty = Value{}

// TextValue builds a Text value without inference.
func TextValue(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Empty
	}
	return Value{Kind: KindText, Raw: s}
}

// NumberValue builds a Number value.
func NumberValue(f float64) Value {
	return Value{Kind: KindNumber, Raw: strconv.FormatFloat(f, 'f', -1, 64), Num: f}
}

// DateValue builds a Date value rendered with layout.
func DateValue(t time.Time, layout string) Value {
	return Value{Kind: KindDate, Raw: t.Format(layout), Time: t}
}

// InferValue classifies a raw cell string.
func InferValue(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Empty
	}
	if f, ok := parseDecimal(trimmed); ok {
		return Value{Kind: KindNumber, Raw: raw, Num: f}
	}
	if t, ok := ParseDate(trimmed); ok {
		return Value{Kind: KindDate, Raw: raw, Time: t}
	}
	return Value{Kind: KindText, Raw: raw}
}

// parseDecimal accepts plain decimal notation only, so names such as "Nan"
// or "Inf" and hex-looking text stay Text.
func parseDecimal(s string) (float64, bool) {
	digits := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = true
		case r == '+' || r == '-' || r == '.' || r == 'e' || r == 'E':
		default:
			return 0, false
		}
	}
	if !digits {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseDate tries the known cell layouts, day-first.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range cellDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsEmpty reports whether v carries no data.
func (v Value) IsEmpty() bool {
	return v.Kind == KindEmpty
}

// String returns the display text.
func (v Value) String() string {
	return v.Raw
}

// Format renders dates with layout and everything else as displayed.
func (v Value) Format(layout, blank string) string {
	switch v.Kind {
	case KindEmpty:
		return blank
	case KindDate:
		return v.Time.Format(layout)
	}
	return v.Raw
}

// SameDay reports whether v is a date on the same calendar day as t.
func (v Value) SameDay(t time.Time) bool {
	if v.Kind != KindDate {
		return false
	}
	y1, m1, d1 := v.Time.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Compare orders a before b (-1), equal (0) or after (1). Values of the same
// kind compare naturally; otherwise Empty < Number < Date < Text.
func Compare(a, b Value) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	switch a.Kind {
	case KindNumber:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	case KindDate:
		return a.Time.Compare(b.Time)
	case KindText:
		return strings.Compare(a.Raw, b.Raw)
	}
	return 0
}

// MarshalJSON writes the display text; empties become "".
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw)
}

// UnmarshalJSON accepts strings, numbers and null.
func (v *Value) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch s {
	case "null":
		*v = Empty
		return nil
	case "true", "false":
		*v = TextValue(s)
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*v = InferValue(str)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("unsupported cell value %s", s)
	}
	*v = Value{Kind: KindNumber, Raw: s, Num: f}
	return nil
}
