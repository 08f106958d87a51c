package silver

import (
	"strings"
	"time"

	"github.com/relloyd/silverpipe/constants"
	h "github.com/relloyd/silverpipe/helper"
	"github.com/relloyd/silverpipe/stream"
)

var (
	floatColumns = []string{
		constants.ColPriceCurrent, constants.ColPriceRegular, constants.ColMsrp, constants.ColPriceRegularChosen,
		constants.ColShippingCost, constants.ColLandedPrice, constants.ColDiscountDepth, constants.ColRatingAvg,
	}
	intColumns = []string{constants.ColRatingCount}
	kinds      = columnKinds()
)

type columnKind int

const (
	kindString columnKind = iota
	kindFloat
	kindInt
	kindBool
	kindNullableBool
	kindDate
	kindTimestamp
)

func columnKinds() map[string]columnKind {
	k := make(map[string]columnKind, len(constants.SilverColumns))
	for _, c := range constants.SilverColumns {
		k[c] = kindString
	}
	for _, c := range floatColumns {
		k[c] = kindFloat
	}
	for _, c := range intColumns {
		k[c] = kindInt
	}
	k[constants.ColPromoFlag] = kindBool
	k[constants.ColInStockFlag] = kindNullableBool
	k[constants.ColSnapshotDate] = kindDate
	k[constants.ColCapturedAt] = kindTimestamp
	return k
}

// Layouts tried in order when reading dates and timestamps. Zone-less values are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"20060102T150405",
	"20060102",
}

// ParseTimestamp reads v as a point in time and returns it in UTC.
func ParseTimestamp(v interface{}) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t.UTC(), true
	}
	s := strings.TrimSpace(h.GetStringFromInterface(v))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseDate reads v as a calendar date. A timestamp keeps the date of its own zone.
func ParseDate(v interface{}) (string, bool) {
	if t, ok := v.(time.Time); ok {
		return t.Format(constants.DateFormat), true
	}
	s := strings.TrimSpace(h.GetStringFromInterface(v))
	if s == "" {
		return "", false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(constants.DateFormat), true
		}
	}
	return "", false
}

// ConformSchema returns a table holding exactly the silver columns in canonical order, with every value
// coerced to its column kind. Unparsable dates and timestamps are replaced using now.
func ConformSchema(in stream.Table, now time.Time) stream.Table {
	t := in.Project(constants.SilverColumns)
	today := now.UTC().Format(constants.DateFormat)
	stamp := now.UTC().Format(constants.TimeFormatCapturedAt)
	for _, r := range t.Rows {
		for _, c := range constants.SilverColumns {
			v := r.GetData(c)
			switch kinds[c] {
			case kindFloat:
				v = nonNegativeFloat(v)
			case kindInt:
				v = nonNegativeInt(v)
			case kindBool:
				b, _ := ToBool(v)
				v = b
			case kindNullableBool:
				if b, ok := ToBool(v); ok {
					v = b
				} else {
					v = nil
				}
			case kindDate:
				if d, ok := ParseDate(v); ok {
					v = d
				} else {
					v = today
				}
			case kindTimestamp:
				if ts, ok := ParseTimestamp(v); ok {
					v = ts.Format(constants.TimeFormatCapturedAt)
				} else {
					v = stamp
				}
			default:
				if h.IsBlank(v) {
					v = nil
				} else {
					v = strings.TrimSpace(h.GetStringFromInterface(v))
				}
			}
			r.SetData(c, v)
		}
	}
	return t
}

// CoerceNumerics turns price and rating columns into float64 and rating_count into int64.
// Missing, malformed and negative values become nil.
func CoerceNumerics(in stream.Table) stream.Table {
	t := in.Clone()
	for _, c := range floatColumns {
		if !t.HasColumn(c) {
			continue
		}
		for _, r := range t.Rows {
			r.SetData(c, nonNegativeFloat(r.GetData(c)))
		}
	}
	for _, c := range intColumns {
		if !t.HasColumn(c) {
			continue
		}
		for _, r := range t.Rows {
			r.SetData(c, nonNegativeInt(r.GetData(c)))
		}
	}
	return t
}
