package pull

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/codec"
	h "github.com/relloyd/silverpipe/helper"
	"github.com/relloyd/silverpipe/stream"
)

// WalmartSeeds are the ids and UPCs of the master SKU list.
type WalmartSeeds struct {
	ItemIDs []string
	UPCs    []string
}

// LoadMasterSKUs reads master_skus.csv. The walmart_itemId column is required, upc is optional.
func LoadMasterSKUs(r io.Reader) (WalmartSeeds, error) {
	t, err := codec.DecodeCSV(r)
	if err != nil {
		return WalmartSeeds{}, errors.Wrap(err, "error reading master SKUs")
	}
	if !t.HasColumn("walmart_itemId") {
		return WalmartSeeds{}, errors.New("master SKUs must include walmart_itemId")
	}
	return WalmartSeeds{
		ItemIDs: distinctColumn(t, "walmart_itemId"),
		UPCs:    distinctColumn(t, "upc"),
	}, nil
}

// LoadEbayMatches reads ebay_matches.csv, which needs an ebay_item_id or itemId column.
func LoadEbayMatches(r io.Reader) ([]string, error) {
	t, err := codec.DecodeCSV(r)
	if err != nil {
		return nil, errors.Wrap(err, "error reading eBay matches")
	}
	switch {
	case t.HasColumn("ebay_item_id"):
		return distinctColumn(t, "ebay_item_id"), nil
	case t.HasColumn("itemId"):
		return distinctColumn(t, "itemId"), nil
	}
	return nil, errors.New("eBay matches need an ebay_item_id or itemId column")
}

// distinctColumn returns the non-blank values of a column, trimmed and de-duplicated in order.
func distinctColumn(t stream.Table, name string) []string {
	values := make([]string, 0, t.Len())
	for _, v := range t.Column(name) {
		if s := strings.TrimSpace(h.GetStringFromInterface(v)); s != "" {
			values = append(values, s)
		}
	}
	return h.UniqueStrings(values)
}
