package helper

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/silverpipe/constants"
)

// CsvToStringSliceTrimSpaces splits s on commas and trims spaces from each token.
// Empty tokens are dropped.
func CsvToStringSliceTrimSpaces(s string) []string {
	retval := make([]string, 0)
	for _, v := range strings.Split(s, ",") {
		if t := strings.TrimSpace(v); t != "" {
			retval = append(retval, t)
		}
	}
	return retval
}

// StringSliceToOrderedMap adds each value in s to an ordered map with key and value set to the value in s.
// Duplicates collapse onto the first position.
func StringSliceToOrderedMap(s []string) *om.OrderedMap {
	retval := om.NewOrderedMap()
	for _, v := range s {
		if _, ok := retval.Get(v); !ok {
			retval.Set(v, v)
		}
	}
	return retval
}

// OrderedMapKeysToStringSlice returns the string keys of m in insertion order.
func OrderedMapKeysToStringSlice(m *om.OrderedMap) []string {
	retval := make([]string, 0, m.Len())
	iter := m.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		retval = append(retval, kv.Key.(string))
	}
	return retval
}

// UniqueStrings returns s without blanks or duplicates, preserving first-seen order.
func UniqueStrings(s []string) []string {
	retval := make([]string, 0, len(s))
	seen := make(map[string]struct{}, len(s))
	for _, v := range s {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		retval = append(retval, v)
	}
	return retval
}

// GetStringFromInterface will convert interface{} value to a string.
// Nil is the empty string; nested JSON values are rendered as compact JSON.
func GetStringFromInterface(input interface{}) (retval string) {
	switch v := input.(type) {
	case nil:
		retval = ""
	case string:
		retval = v
	case int:
		retval = strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		retval = fmt.Sprintf("%d", v)
	case float32:
		retval = strconv.FormatFloat(float64(v), 'f', -1, 32) // use 'f' to convert float to string without an exponent i.e. preserve all decimal points.
	case float64:
		retval = strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		retval = v.String()
	case bool:
		retval = strconv.FormatBool(v)
	case time.Time:
		retval = v.UTC().Format(constants.TimeFormatCapturedAt)
	case []byte:
		retval = string(v)
	case []interface{}, map[string]interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			retval = fmt.Sprint(v)
		} else {
			retval = string(b)
		}
	default:
		retval = fmt.Sprint(v)
	}
	return
}

// IsBlank is true for nil and for strings that are empty after trimming space.
func IsBlank(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

// CollapseWhitespace trims s and replaces every run of whitespace with a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Obfuscate keeps the first few characters of a secret so that config dumps stay recognisable.
func Obfuscate(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", 8)
}

// SplitRight splits s on the last occurrence of c.
func SplitRight(s string, c string) (string, string) {
	i := strings.LastIndex(s, c)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+len(c):]
}
