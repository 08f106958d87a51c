package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	om "github.com/cevaris/ordered_map"
	"github.com/diegoholiveira/jsonlogic"
	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/silver"
	"github.com/relloyd/silverpipe/stream"
)

// SourceKind tags the variant held by a FieldSource.
type SourceKind int

const (
	// SourceColumns takes the first non-null value among candidate raw columns.
	SourceColumns SourceKind = iota + 1
	// SourceConstant sets a fixed value.
	SourceConstant
	// SourceAnyTrue is true when any candidate raw column reads as true, nil when none is present.
	SourceAnyTrue
	// SourceRule evaluates a JSON Logic rule against the normalized row.
	SourceRule
)

func (k SourceKind) String() string {
	switch k {
	case SourceColumns:
		return "columns"
	case SourceConstant:
		return "constant"
	case SourceAnyTrue:
		return "anyTrue"
	case SourceRule:
		return "rule"
	}
	return fmt.Sprintf("SourceKind(%d)", int(k))
}

// FieldSource says where one pre-silver column comes from.
type FieldSource struct {
	Kind    SourceKind
	Columns []string
	Value   interface{}
	Rule    string
}

func Columns(c ...string) FieldSource { return FieldSource{Kind: SourceColumns, Columns: c} }

func Constant(v interface{}) FieldSource { return FieldSource{Kind: SourceConstant, Value: v} }

func AnyTrue(c ...string) FieldSource { return FieldSource{Kind: SourceAnyTrue, Columns: c} }

func Rule(r string) FieldSource { return FieldSource{Kind: SourceRule, Rule: r} }

// Validate checks the variant carries what it needs. Rules must be valid JSON Logic.
func (s FieldSource) Validate() error {
	switch s.Kind {
	case SourceColumns, SourceAnyTrue:
		if len(s.Columns) == 0 {
			return fmt.Errorf("%v source needs at least one column", s.Kind)
		}
	case SourceConstant:
	case SourceRule:
		if !jsonlogic.IsValid(strings.NewReader(s.Rule)) {
			return fmt.Errorf("invalid JSON Logic rule %q", s.Rule)
		}
	default:
		return fmt.Errorf("unknown field source kind %v", int(s.Kind))
	}
	return nil
}

// resolveRaw evaluates the raw-record variants. Rules are resolved later against the normalized row.
func (s FieldSource) resolveRaw(raw stream.Record) interface{} {
	switch s.Kind {
	case SourceColumns:
		return stream.CoalesceRecord(raw, s.Columns)
	case SourceConstant:
		return s.Value
	case SourceAnyTrue:
		seen := false
		for _, c := range s.Columns {
			v := raw.GetData(c)
			if v == nil {
				continue
			}
			seen = true
			if b, ok := silver.ToBool(v); ok && b {
				return true
			}
		}
		if seen {
			return false
		}
	}
	return nil
}

// resolveRule applies the JSON Logic rule to row. Rule failures give nil.
func (s FieldSource) resolveRule(row stream.Record) (interface{}, error) {
	data, err := json.Marshal(row.GetDataMap())
	if err != nil {
		return nil, errors.Wrap(err, "error encoding row for rule")
	}
	var result bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(s.Rule), bytes.NewReader(data), &result); err != nil {
		return nil, errors.Wrap(err, "error applying rule")
	}
	var v interface{}
	if err := json.Unmarshal(bytes.TrimSpace(result.Bytes()), &v); err != nil {
		return strings.Trim(strings.TrimSpace(result.String()), "\""), nil
	}
	return v, nil
}

// Mapping is the ordered set of target column → FieldSource used by a normalizer.
type Mapping struct {
	fields *om.OrderedMap
}

func NewMapping() *Mapping {
	return &Mapping{fields: om.NewOrderedMap()}
}

// Set adds or replaces the source of target. Replacing keeps the original position.
func (m *Mapping) Set(target string, src FieldSource) *Mapping {
	m.fields.Set(target, src)
	return m
}

func (m *Mapping) Get(target string) (FieldSource, bool) {
	v, ok := m.fields.Get(target)
	if !ok {
		return FieldSource{}, false
	}
	return v.(FieldSource), true
}

// Each visits targets in order.
func (m *Mapping) Each(fn func(target string, src FieldSource)) {
	iter := m.fields.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		fn(kv.Key.(string), kv.Value.(FieldSource))
	}
}

// Validate checks every source.
func (m *Mapping) Validate() error {
	var err error
	m.Each(func(target string, src FieldSource) {
		if err != nil {
			return
		}
		if e := src.Validate(); e != nil {
			err = errors.Wrapf(e, "bad source for %v", target)
		}
	})
	return err
}
