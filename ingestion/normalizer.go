package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxField is the highest numbered field a telemetry payload can carry.
const MaxField = 8

var (
	// ErrMissingFields means no usable element/temperature pair was found.
	ErrMissingFields = errors.New("element_id and temperature_c are required")
	// ErrInvalidTemperature means a direct temperature_c could not be read as a number.
	ErrInvalidTemperature = errors.New("temperature_c is not a number")
)

// Candidate is a normalized element/temperature pair awaiting a timestamp.
type Candidate struct {
	ElementID    string
	TemperatureC float64
}

// Payload is either a DirectPayload or a FieldPayload.
type Payload interface {
	isPayload()
}

// DirectPayload carries element_id and temperature_c explicitly.
type DirectPayload struct {
	ElementID   string
	Temperature any
}

// FieldPayload carries numbered fields (field1..field8) keyed by field number.
type FieldPayload struct {
	Fields map[int]any
}

func (DirectPayload) isPayload() {}
func (FieldPayload) isPayload()  {}

// FieldKey returns the payload key for field number n.
func FieldKey(n int) string {
	return "field" + strconv.Itoa(n)
}

// ParsePayload resolves a raw payload map into its concrete shape.
// A payload is direct only when both element_id and temperature_c are non-null.
func ParsePayload(raw map[string]any) Payload {
	elementID, hasElement := elementIDString(raw["element_id"])
	temp, hasTemp := raw["temperature_c"]
	if hasElement && hasTemp && temp != nil {
		return DirectPayload{ElementID: elementID, Temperature: temp}
	}
	return FieldPayload{Fields: NumberedFields(raw)}
}

// NumberedFields extracts the non-null field1..field8 values from raw.
func NumberedFields(raw map[string]any) map[int]any {
	fields := make(map[int]any)
	for n := 1; n <= MaxField; n++ {
		if v, ok := raw[FieldKey(n)]; ok && v != nil {
			fields[n] = v
		}
	}
	return fields
}

// Normalize turns a raw payload into a single candidate reading.
// Numbered fields are scanned in ascending order and the first parseable one wins.
func Normalize(raw map[string]any) (Candidate, error) {
	switch p := ParsePayload(raw).(type) {
	case DirectPayload:
		temp, err := ParseTemperature(p.Temperature)
		if err != nil {
			return Candidate{}, fmt.Errorf("%w: %v", ErrInvalidTemperature, err)
		}
		return Candidate{ElementID: p.ElementID, TemperatureC: temp}, nil
	case FieldPayload:
		candidates := FieldCandidates(p.Fields)
		if len(candidates) == 0 {
			return Candidate{}, ErrMissingFields
		}
		return candidates[0], nil
	}
	return Candidate{}, ErrMissingFields
}

// FieldCandidates returns one candidate per parseable numbered field, in field order.
// Unparseable fields are skipped.
func FieldCandidates(fields map[int]any) []Candidate {
	var candidates []Candidate
	for n := 1; n <= MaxField; n++ {
		v, ok := fields[n]
		if !ok || v == nil {
			continue
		}
		temp, err := ParseTemperature(v)
		if err != nil {
			continue
		}
		candidates = append(candidates, Candidate{ElementID: strconv.Itoa(n), TemperatureC: temp})
	}
	return candidates
}

// ParseTemperature coerces a JSON-decoded value into a finite float64.
func ParseTemperature(v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", f)
	}
	return f, nil
}

func elementIDString(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		s = fmt.Sprint(t)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
