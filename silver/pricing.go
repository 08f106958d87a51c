package silver

import (
	"github.com/cockroachdb/apd/v3"
	"github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/stream"
)

// Money arithmetic runs in decimal so thresholds like 95% of 100.00 compare exactly.
var decimalCtx = apd.BaseContext.WithPrecision(34)

var promoHeuristicRatio = mustDecimal(constants.PromoHeuristicRatio)

func mustDecimal(s string) *apd.Decimal {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func toDecimal(f float64) *apd.Decimal {
	d, err := new(apd.Decimal).SetFloat64(f)
	if err != nil {
		panic(err) // only NaN or Inf fail and those never reach here
	}
	return d
}

func toFloat(d *apd.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// ChooseRegular picks the regular price: an explicit regular price first, then MSRP.
// The second return names the source: explicit_regular, msrp or unknown.
func ChooseRegular(explicitRegular *float64, msrp *float64) (*float64, string) {
	switch {
	case explicitRegular != nil:
		return explicitRegular, constants.RegularSourceExplicit
	case msrp != nil:
		return msrp, constants.RegularSourceMsrp
	}
	return nil, constants.RegularSourceUnknown
}

// LandedPrice is current plus shipping, with missing shipping treated as zero.
// It is nil when current is nil.
func LandedPrice(current *float64, shipping *float64) *float64 {
	if current == nil {
		return nil
	}
	if shipping == nil {
		v := *current
		return &v
	}
	var sum apd.Decimal
	_, _ = decimalCtx.Add(&sum, toDecimal(*current), toDecimal(*shipping))
	v := toFloat(&sum)
	return &v
}

// Promo is the outcome of promotion detection for one row.
type Promo struct {
	Flag   bool
	Method string
	Depth  *float64
}

// DetectPromo decides whether a row is on promotion.
// Without a usable current and positive regular price the explicit hint decides alone and depth is unknown.
// Otherwise an explicit hint with current below regular wins, then the 5% heuristic applies.
// Depth is (regular-current)/regular for promotions and 0 otherwise.
func DetectPromo(current *float64, regular *float64, hint bool) Promo {
	if current == nil || regular == nil || *regular <= 0 {
		if hint {
			return Promo{Flag: true, Method: constants.PromoMethodExplicit}
		}
		return Promo{Flag: false, Method: constants.PromoMethodNone}
	}
	cur := toDecimal(*current)
	reg := toDecimal(*regular)
	if hint && cur.Cmp(reg) < 0 {
		return Promo{Flag: true, Method: constants.PromoMethodExplicit, Depth: discountDepth(cur, reg)}
	}
	var threshold apd.Decimal
	_, _ = decimalCtx.Mul(&threshold, reg, promoHeuristicRatio)
	if cur.Cmp(&threshold) <= 0 {
		return Promo{Flag: true, Method: constants.PromoMethodHeuristic, Depth: discountDepth(cur, reg)}
	}
	zero := 0.0
	return Promo{Flag: false, Method: constants.PromoMethodNone, Depth: &zero}
}

func discountDepth(cur, reg *apd.Decimal) *float64 {
	var diff, q apd.Decimal
	_, _ = decimalCtx.Sub(&diff, reg, cur)
	_, _ = decimalCtx.Quo(&q, &diff, reg)
	v := toFloat(&q)
	return &v
}

// ComputeEffectivePrice fills price_regular_chosen, regular_price_source, landed_price,
// promo_flag, promo_detect_method and discount_depth.
// An existing promo_flag value is read as the explicit promotion hint unless an earlier pass
// already attributed it to something other than an explicit signal.
func ComputeEffectivePrice(in stream.Table) stream.Table {
	t := in.Clone()
	for _, c := range []string{
		constants.ColPriceRegularChosen, constants.ColRegularPriceSource, constants.ColLandedPrice,
		constants.ColPromoFlag, constants.ColPromoDetectMethod, constants.ColDiscountDepth,
	} {
		t.AddColumn(c)
	}
	for _, r := range t.Rows {
		current := floatPtr(r.GetData(constants.ColPriceCurrent))
		regular, source := ChooseRegular(floatPtr(r.GetData(constants.ColPriceRegular)), floatPtr(r.GetData(constants.ColMsrp)))
		hint := promoHint(r)
		p := DetectPromo(current, regular, hint)
		r.SetData(constants.ColPriceRegularChosen, ptrValue(regular))
		r.SetData(constants.ColRegularPriceSource, source)
		r.SetData(constants.ColLandedPrice, ptrValue(LandedPrice(current, floatPtr(r.GetData(constants.ColShippingCost)))))
		r.SetData(constants.ColPromoFlag, p.Flag)
		r.SetData(constants.ColPromoDetectMethod, p.Method)
		r.SetData(constants.ColDiscountDepth, ptrValue(p.Depth))
	}
	return t
}

func promoHint(r stream.Record) bool {
	hint, _ := ToBool(r.GetData(constants.ColPromoFlag))
	if !hint {
		return false
	}
	switch r.GetDataAsString(constants.ColPromoDetectMethod) {
	case "", constants.PromoMethodExplicit:
		return true
	}
	return false
}
