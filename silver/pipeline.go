package silver

import (
	"time"

	"github.com/relloyd/silverpipe/stream"
)

// Step is one pure transformation of a table.
type Step struct {
	Name string
	Fn   func(stream.Table) stream.Table
}

// Pipeline runs the silver steps in order.
type Pipeline struct {
	Steps []Step
}

// Observer is told the row count and duration of each step.
type Observer interface {
	StepDone(name string, rows int, d time.Duration)
}

// NewPipeline builds the standard pipeline:
// tidy text, categories, currency, numerics, effective price, schema, keys.
// now is used for missing capture dates and keys supplies ids for rows without identity.
func NewPipeline(now func() time.Time, keys KeyDeriver) *Pipeline {
	if now == nil {
		now = time.Now
	}
	if keys.Random == nil {
		keys = NewKeyDeriver()
	}
	return &Pipeline{Steps: []Step{
		{Name: "tidyText", Fn: TidyText},
		{Name: "normalizeCategories", Fn: NormalizeCategories},
		{Name: "normalizeCurrency", Fn: NormalizeCurrency},
		{Name: "coerceNumerics", Fn: CoerceNumerics},
		{Name: "computeEffectivePrice", Fn: ComputeEffectivePrice},
		{Name: "conformSchema", Fn: func(t stream.Table) stream.Table { return ConformSchema(t, now()) }},
		{Name: "deriveKeys", Fn: keys.DeriveKeys},
	}}
}

// Run applies every step to t. The input table is not modified.
// obs may be nil.
func (p *Pipeline) Run(t stream.Table, obs Observer) stream.Table {
	for _, s := range p.Steps {
		start := time.Now()
		t = s.Fn(t)
		if obs != nil {
			obs.StepDone(s.Name, t.Len(), time.Since(start))
		}
	}
	return t
}
