package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var (
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

// coerce converts one raw value to its declared type. Placeholders become nil
// first; a value that does not parse is kept as text and reported as a skip.
func (n *Normalizer) coerce(field string, v any, t FieldType, skips *[]CoercionSkip) any {
	s, ok := n.text(v)
	if !ok {
		return nil
	}
	switch t {
	case Text:
		return s
	case Date:
		d, err := parseDate(s)
		if err != nil {
			*skips = append(*skips, CoercionSkip{Field: field, Value: s, Target: t})
			return s
		}
		return d
	case Float:
		f, ok := parseFloat(s)
		if !ok {
			*skips = append(*skips, CoercionSkip{Field: field, Value: s, Target: t})
			return s
		}
		return f
	default:
		num, ok := parseNumber(s)
		if !ok {
			*skips = append(*skips, CoercionSkip{Field: field, Value: s, Target: t})
			return s
		}
		return num
	}
}

// text renders a raw scalar as a string. It reports false for nulls and placeholders.
func (n *Normalizer) text(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s = strings.TrimSpace(x)
	case json.Number:
		s = x.String()
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case uint64:
		s = strconv.FormatUint(x, 10)
	case int8, int16, int32, uint8, uint16, uint32:
		s = fmt.Sprint(x)
	case bool:
		s = strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			s = fmt.Sprint(x)
		} else {
			s = string(b)
		}
	}
	if _, placeholder := n.placeholders[s]; placeholder {
		return "", false
	}
	return s, true
}

// parseNumber keeps integral text as int64 and everything else as float64.
// NaN and Inf spellings are rejected.
func parseNumber(s string) (any, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, false
	}
	if !strings.ContainsAny(s, ".eE") && d.IsInteger() &&
		d.GreaterThanOrEqual(minInt64) && d.LessThanOrEqual(maxInt64) {
		return d.IntPart(), true
	}
	return parseFloat(s)
}

// parseFloat rejects values outside the float64 range, which no sink can store.
func parseFloat(s string) (float64, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// parseDate accepts a plain date, optionally followed by a clock part after
// 'T' or a space.
func parseDate(s string) (time.Time, error) {
	if i := strings.IndexAny(s, "T "); i == len(dateLayout) {
		s = s[:i]
	}
	return time.ParseInLocation(dateLayout, s, time.UTC)
}
