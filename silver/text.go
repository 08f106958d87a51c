package silver

import (
	"regexp"
	"strings"

	"github.com/relloyd/silverpipe/constants"
	h "github.com/relloyd/silverpipe/helper"
	"github.com/relloyd/silverpipe/stream"
)

// Free-text columns that are trimmed and whitespace-collapsed.
var textColumns = []string{
	constants.ColBrandRaw,
	constants.ColTitleRaw,
	constants.ColModelRaw,
	constants.ColCategoryRawPath,
	constants.ColProductURL,
}

// TidyText trims and collapses whitespace in the free-text columns. Blank values become nil.
func TidyText(in stream.Table) stream.Table {
	t := in.Clone()
	for _, c := range textColumns {
		if !t.HasColumn(c) {
			continue
		}
		for _, r := range t.Rows {
			r.SetData(c, tidy(r.GetData(c)))
		}
	}
	return t
}

func tidy(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	s := h.CollapseWhitespace(h.GetStringFromInterface(v))
	if s == "" {
		return nil
	}
	return s
}

var (
	categorySeparators = regexp.MustCompile(`\s*(?:[/|>]\s*)+`)
	categoryTrim       = " >"
)

// NormalizeCategory rewrites "/", "|" and runs of ">" as a single " > " and trims stray separators.
func NormalizeCategory(s string) string {
	s = categorySeparators.ReplaceAllString(s, " > ")
	s = h.CollapseWhitespace(s)
	return strings.Trim(s, categoryTrim)
}

// NormalizeCategories applies NormalizeCategory to category_raw_path.
func NormalizeCategories(in stream.Table) stream.Table {
	t := in.Clone()
	if !t.HasColumn(constants.ColCategoryRawPath) {
		return t
	}
	for _, r := range t.Rows {
		v := r.GetData(constants.ColCategoryRawPath)
		if v == nil {
			continue
		}
		if s := NormalizeCategory(h.GetStringFromInterface(v)); s != "" {
			r.SetData(constants.ColCategoryRawPath, s)
		} else {
			r.SetData(constants.ColCategoryRawPath, nil)
		}
	}
	return t
}
