package codec

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/stream"
)

// Keys that may hold the list of records when a JSON document is an object.
var jsonEnvelopeKeys = []string{"items", "data", "results"}

// FlattenSeparator joins nested JSON object keys, e.g. primaryOffer.offerPrice.price.
const FlattenSeparator = "."

// DecodeJSON reads a JSON array of objects, or an object holding such a list under items, data or results.
// Any other object is treated as a single record. Nested objects are flattened and numbers stay exact.
func DecodeJSON(r io.Reader) (stream.Table, error) {
	dec := json.NewDecoder(NewTextReader(r))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return stream.NewTable(), nil
		}
		return stream.Table{}, errors.Wrap(err, "error decoding JSON document")
	}
	t := stream.NewTable()
	switch v := doc.(type) {
	case []interface{}:
		appendObjects(&t, v)
	case map[string]interface{}:
		for _, k := range jsonEnvelopeKeys {
			if list, ok := v[k].([]interface{}); ok {
				appendObjects(&t, list)
				return t, nil
			}
		}
		t.AppendRecord(Flatten(v))
	}
	return t, nil
}

// DecodeJSONLines reads one JSON object per line. Blank lines are ignored.
func DecodeJSONLines(r io.Reader) (stream.Table, error) {
	t := stream.NewTable()
	sc := bufio.NewScanner(NewTextReader(r))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		var obj map[string]interface{}
		if err := dec.Decode(&obj); err != nil {
			return stream.Table{}, errors.Wrapf(err, "error decoding JSON line %v", line)
		}
		t.AppendRecord(Flatten(obj))
	}
	if err := sc.Err(); err != nil {
		return stream.Table{}, errors.Wrap(err, "error scanning JSON lines")
	}
	return t, nil
}

func appendObjects(t *stream.Table, list []interface{}) {
	for _, item := range list {
		if obj, ok := item.(map[string]interface{}); ok {
			t.AppendRecord(Flatten(obj))
		}
	}
}

// Flatten turns nested objects into dotted keys. Arrays are kept as values.
// An empty nested object becomes a nil value under its own key.
func Flatten(obj map[string]interface{}) stream.Record {
	rec := stream.NewRecord()
	flattenInto(rec, "", obj)
	return rec
}

func flattenInto(rec stream.Record, prefix string, obj map[string]interface{}) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + FlattenSeparator + k
		}
		if child, ok := v.(map[string]interface{}); ok {
			if len(child) == 0 {
				rec.SetData(key, nil)
				continue
			}
			flattenInto(rec, key, child)
			continue
		}
		rec.SetData(key, v)
	}
}
