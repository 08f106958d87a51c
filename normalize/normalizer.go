package normalize

import (
	"fmt"
	"strings"

	"github.com/relloyd/silverpipe/constants"
	h "github.com/relloyd/silverpipe/helper"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/silver"
	"github.com/relloyd/silverpipe/stream"
)

// Normalizer turns one retailer's raw records into pre-silver rows.
type Normalizer interface {
	RetailerID() string
	SourceEndpoint() string
	// Normalize returns a table with exactly the silver columns. It never fails: bad values become nil.
	Normalize(raw stream.Table) stream.Table
}

// Options adjust a retailer's standard mapping.
type Options struct {
	// PromoRule replaces the explicit promotion hint with a JSON Logic rule over the normalized row.
	PromoRule string
}

// MappingNormalizer is a Normalizer driven by a Mapping.
type MappingNormalizer struct {
	log        logger.Logger
	retailerID string
	endpoint   string
	mapping    *Mapping
}

// NewMappingNormalizer validates mapping and returns a normalizer for retailerID.
func NewMappingNormalizer(log logger.Logger, retailerID string, endpoint string, mapping *Mapping) (*MappingNormalizer, error) {
	if err := mapping.Validate(); err != nil {
		return nil, fmt.Errorf("%v mapping: %w", retailerID, err)
	}
	return &MappingNormalizer{log: log, retailerID: retailerID, endpoint: endpoint, mapping: mapping}, nil
}

func (n *MappingNormalizer) RetailerID() string     { return n.retailerID }
func (n *MappingNormalizer) SourceEndpoint() string { return n.endpoint }

// Normalize applies the mapping row by row.
// Raw-record sources are resolved first, then light coercion, then rules, stock inference and the currency default.
func (n *MappingNormalizer) Normalize(raw stream.Table) stream.Table {
	out := stream.NewTable(constants.SilverColumns...)
	for _, r := range raw.Rows {
		row := stream.NewRecord()
		for _, c := range constants.SilverColumns {
			row.SetData(c, nil)
		}
		n.mapping.Each(func(target string, src FieldSource) {
			if src.Kind != SourceRule {
				row.SetData(target, src.resolveRaw(r))
			}
		})
		coerceLight(row)
		n.mapping.Each(func(target string, src FieldSource) {
			if src.Kind != SourceRule {
				return
			}
			v, err := src.resolveRule(row)
			if err != nil {
				n.log.Debug(n.retailerID, " rule for ", target, " failed: ", err)
			}
			row.SetData(target, v)
		})
		if row.GetData(constants.ColInStockFlag) == nil {
			row.SetData(constants.ColInStockFlag, InferInStock(row.GetData(constants.ColAvailabilityMsg)))
		}
		if h.IsBlank(row.GetData(constants.ColCurrency)) {
			row.SetData(constants.ColCurrency, constants.DefaultCurrency)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

var (
	lightFloatColumns = []string{
		constants.ColPriceCurrent, constants.ColPriceRegular, constants.ColMsrp, constants.ColShippingCost, constants.ColRatingAvg,
	}
	lightStringColumns = []string{constants.ColNativeItemID, constants.ColUPC}
)

// coerceLight makes prices numeric and ids textual so that rules see comparable values.
func coerceLight(row stream.Record) {
	for _, c := range lightFloatColumns {
		if f, ok := silver.ToFloat(row.GetData(c)); ok {
			row.SetData(c, f)
		} else {
			row.SetData(c, nil)
		}
	}
	if i, ok := silver.ToInt(row.GetData(constants.ColRatingCount)); ok {
		row.SetData(constants.ColRatingCount, i)
	} else {
		row.SetData(constants.ColRatingCount, nil)
	}
	if b, ok := silver.ToBool(row.GetData(constants.ColInStockFlag)); ok {
		row.SetData(constants.ColInStockFlag, b)
	} else {
		row.SetData(constants.ColInStockFlag, nil)
	}
	for _, c := range lightStringColumns {
		if v := row.GetData(c); v != nil {
			row.SetData(c, strings.TrimSpace(h.GetStringFromInterface(v)))
		}
	}
}

var (
	outOfStockMarkers = []string{"out of stock", "sold out", "unavailable", "not available"}
	inStockMarkers    = []string{"in stock", "limited stock", "avail"}
)

// InferInStock reads an availability message such as "Available", "IN_STOCK" or "OUT_OF_STOCK".
// Out-of-stock wording is checked first so "unavailable" is not mistaken for "available".
// It returns nil when the message says neither.
func InferInStock(msg interface{}) interface{} {
	s := strings.ToLower(strings.TrimSpace(h.GetStringFromInterface(msg)))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "out") {
		return false
	}
	for _, m := range outOfStockMarkers {
		if strings.Contains(s, m) {
			return false
		}
	}
	for _, m := range inStockMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return nil
}
