package silver

import (
	"strings"

	"github.com/google/uuid"
	"github.com/relloyd/silverpipe/constants"
	h "github.com/relloyd/silverpipe/helper"
	"github.com/relloyd/silverpipe/stream"
)

// KeyDeriver fills blank native_item_id values.
type KeyDeriver struct {
	// Random supplies ids for rows with no url, brand or title.
	Random func() string
}

func NewKeyDeriver() KeyDeriver {
	return KeyDeriver{Random: func() string { return uuid.New().String() }}
}

// DeriveKey returns a stable UUIDv5 (URL namespace) of the product url, else of "brand|title",
// else a random id.
func (k KeyDeriver) DeriveKey(r stream.Record) string {
	if u := strings.TrimSpace(r.GetDataAsString(constants.ColProductURL)); u != "" {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(u)).String()
	}
	combo := strings.TrimSpace(r.GetDataAsString(constants.ColBrandRaw)) + "|" +
		strings.TrimSpace(r.GetDataAsString(constants.ColTitleRaw))
	if strings.Trim(combo, "|") != "" {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(combo)).String()
	}
	return k.Random()
}

// DeriveKeys sets native_item_id on rows where it is blank and renders every id as a string.
func (k KeyDeriver) DeriveKeys(in stream.Table) stream.Table {
	t := in.Clone()
	t.AddColumn(constants.ColNativeItemID)
	for _, r := range t.Rows {
		v := r.GetData(constants.ColNativeItemID)
		if h.IsBlank(v) {
			r.SetData(constants.ColNativeItemID, k.DeriveKey(r))
			continue
		}
		r.SetData(constants.ColNativeItemID, strings.TrimSpace(h.GetStringFromInterface(v)))
	}
	return t
}
