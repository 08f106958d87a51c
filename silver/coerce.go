package silver

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numberWithCurrency matches a plain decimal number optionally wrapped in a currency symbol or code,
// e.g. "$19.99", "US$ 5", "CHF 10", "12.50 EUR". Thousands separators are removed beforehand.
var numberWithCurrency = regexp.MustCompile(
	`^(?:[A-Z]{1,3}\$|\$|[A-Z]{3}|[£€¥₹₩₽₫₱₦])?\s*([-+]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][-+]?[0-9]+)?)\s*(?:[A-Z]{3}|\$|[£€¥₹₩₽₫₱₦])?$`)

var (
	trueStrings  = map[string]struct{}{"1": {}, "true": {}, "t": {}, "y": {}, "yes": {}}
	falseStrings = map[string]struct{}{"0": {}, "false": {}, "f": {}, "n": {}, "no": {}}
)

// ToFloat converts v to a float64. Strings may carry thousands separators and a currency symbol or code.
// The second return is false for nil, booleans, NaN, infinities and anything unparsable.
func ToFloat(v interface{}) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return 0, false
		}
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(x, ",", ""))
		m := numberWithCurrency.FindStringSubmatch(s)
		if m == nil {
			return 0, false
		}
		var err error
		if f, err = strconv.ParseFloat(m[1], 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToInt converts v to an int64. Strings may carry "+" and thousands separators, e.g. "1,200+".
// Floats are accepted when they hold a whole number.
func ToInt(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case int:
		return int64(x), true
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case string:
		s := strings.TrimSpace(strings.NewReplacer("+", "", ",", "").Replace(x))
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := ToFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// ToBool reads booleans, 1/0 and the strings 1,true,t,y,yes / 0,false,f,n,no in any case.
// The second return is false when v has no boolean meaning.
func ToBool(v interface{}) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		if _, ok := trueStrings[s]; ok {
			return true, true
		}
		if _, ok := falseStrings[s]; ok {
			return false, true
		}
		return false, false
	case nil:
		return false, false
	}
	if f, ok := ToFloat(v); ok {
		switch f {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	}
	return false, false
}

// nonNegativeFloat returns v as a float64, or nil when it is missing, malformed or negative.
func nonNegativeFloat(v interface{}) interface{} {
	f, ok := ToFloat(v)
	if !ok || f < 0 {
		return nil
	}
	return f
}

func nonNegativeInt(v interface{}) interface{} {
	i, ok := ToInt(v)
	if !ok || i < 0 {
		return nil
	}
	return i
}

func floatPtr(v interface{}) *float64 {
	f, ok := ToFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func ptrValue(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
