package silver

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func testPipeline() *Pipeline {
	n := 0
	return NewPipeline(func() time.Time { return fixedNow }, KeyDeriver{Random: func() string {
		n++
		return "random-" + string(rune('0'+n))
	}})
}

func preSilver(rows ...map[string]interface{}) stream.Table {
	t := stream.NewTable(constants.SilverColumns...)
	for _, m := range rows {
		r := stream.NewRecord()
		for _, c := range constants.SilverColumns {
			r.SetData(c, m[c])
		}
		for k, v := range m {
			r.SetData(k, v)
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

type stepCounter struct{ names []string }

func (s *stepCounter) StepDone(name string, _ int, _ time.Duration) { s.names = append(s.names, name) }

func TestPipeline_Run(t *testing.T) {
	in := preSilver(
		map[string]interface{}{
			constants.ColSnapshotDate:    "2024-05-01",
			constants.ColCapturedAt:      "2024-05-01 10:11:12",
			constants.ColNativeItemID:    "123",
			constants.ColTitleRaw:        "  Acme   Widget \n Pro ",
			constants.ColBrandRaw:        " Acme ",
			constants.ColCategoryRawPath: "Home/Tools|Hand Tools",
			constants.ColCurrency:        "$",
			constants.ColPriceCurrent:    "$80.00",
			constants.ColPriceRegular:    "100",
			constants.ColShippingCost:    "5.50",
			constants.ColRatingCount:     "1,204",
			constants.ColRatingAvg:       "4.5",
			constants.ColInStockFlag:     "yes",
			"extraColumn":                "dropped",
		},
		map[string]interface{}{
			constants.ColSnapshotDate: "not a date",
			constants.ColCapturedAt:   "garbage",
			constants.ColProductURL:   "https://example.com/p/1",
			constants.ColPriceCurrent: "-3",
			constants.ColMsrp:         "29.99",
			constants.ColPromoFlag:    "true",
		},
		map[string]interface{}{},
	)
	before := in.Clone()
	obs := &stepCounter{}
	out := testPipeline().Run(in, obs)

	assert.Equal(t, constants.SilverColumns, out.Columns)
	assert.Equal(t, []string{"tidyText", "normalizeCategories", "normalizeCurrency", "coerceNumerics",
		"computeEffectivePrice", "conformSchema", "deriveKeys"}, obs.names)
	assert.Equal(t, before.Rows[0].GetDataMap(), in.Rows[0].GetDataMap(), "input must not change")
	require.Equal(t, 3, out.Len())

	r := out.Rows[0]
	assert.Equal(t, "Acme Widget Pro", r.GetData(constants.ColTitleRaw))
	assert.Equal(t, "Acme", r.GetData(constants.ColBrandRaw))
	assert.Equal(t, "Home > Tools > Hand Tools", r.GetData(constants.ColCategoryRawPath))
	assert.Equal(t, "USD", r.GetData(constants.ColCurrency))
	assert.Equal(t, 80.0, r.GetData(constants.ColPriceCurrent))
	assert.Equal(t, 100.0, r.GetData(constants.ColPriceRegularChosen))
	assert.Equal(t, constants.RegularSourceExplicit, r.GetData(constants.ColRegularPriceSource))
	assert.Equal(t, 85.5, r.GetData(constants.ColLandedPrice))
	assert.Equal(t, true, r.GetData(constants.ColPromoFlag))
	assert.Equal(t, constants.PromoMethodHeuristic, r.GetData(constants.ColPromoDetectMethod))
	assert.Equal(t, 0.2, r.GetData(constants.ColDiscountDepth))
	assert.Equal(t, int64(1204), r.GetData(constants.ColRatingCount))
	assert.Equal(t, true, r.GetData(constants.ColInStockFlag))
	assert.Equal(t, "2024-05-01T10:11:12Z", r.GetData(constants.ColCapturedAt))
	assert.Equal(t, "123", r.GetData(constants.ColNativeItemID))
	assert.False(t, r.HasData("extraColumn"))

	r = out.Rows[1]
	assert.Equal(t, "2024-05-06", r.GetData(constants.ColSnapshotDate))
	assert.Equal(t, "2024-05-06T07:08:09Z", r.GetData(constants.ColCapturedAt))
	assert.Nil(t, r.GetData(constants.ColPriceCurrent), "negative prices are nulled")
	assert.Nil(t, r.GetData(constants.ColLandedPrice))
	assert.Equal(t, 29.99, r.GetData(constants.ColPriceRegularChosen))
	assert.Equal(t, constants.RegularSourceMsrp, r.GetData(constants.ColRegularPriceSource))
	assert.Equal(t, true, r.GetData(constants.ColPromoFlag))
	assert.Equal(t, constants.PromoMethodExplicit, r.GetData(constants.ColPromoDetectMethod))
	assert.Nil(t, r.GetData(constants.ColDiscountDepth))
	assert.Nil(t, r.GetData(constants.ColInStockFlag))
	assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://example.com/p/1")).String(), r.GetData(constants.ColNativeItemID))

	r = out.Rows[2]
	assert.Equal(t, "random-1", r.GetData(constants.ColNativeItemID))
	assert.Equal(t, false, r.GetData(constants.ColPromoFlag))
	assert.Equal(t, constants.PromoMethodNone, r.GetData(constants.ColPromoDetectMethod))
	assert.Equal(t, constants.RegularSourceUnknown, r.GetData(constants.ColRegularPriceSource))
}

func TestPipeline_Idempotent(t *testing.T) {
	in := preSilver(
		map[string]interface{}{constants.ColNativeItemID: "1", constants.ColPriceCurrent: "80", constants.ColPriceRegular: "100"},
		map[string]interface{}{constants.ColNativeItemID: "2", constants.ColPriceCurrent: "98", constants.ColPriceRegular: "100", constants.ColPromoFlag: true},
		map[string]interface{}{constants.ColBrandRaw: "Acme", constants.ColTitleRaw: "Widget", constants.ColCategoryRawPath: "a|b"},
		map[string]interface{}{constants.ColPromoFlag: "yes"},
	)
	p := testPipeline()
	once := p.Run(in, nil)
	twice := p.Run(once, nil)
	require.Equal(t, once.Len(), twice.Len())
	for i := range once.Rows {
		assert.Equal(t, once.Rows[i].GetDataMap(), twice.Rows[i].GetDataMap(), "row %v", i)
	}
	assert.Equal(t, constants.PromoMethodHeuristic, twice.Rows[0].GetData(constants.ColPromoDetectMethod))
	assert.Equal(t, constants.PromoMethodExplicit, twice.Rows[1].GetData(constants.ColPromoDetectMethod))
	assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceURL, []byte("Acme|Widget")).String(), twice.Rows[2].GetData(constants.ColNativeItemID))
}

func TestPipeline_EmptyInput(t *testing.T) {
	out := testPipeline().Run(stream.NewTable(), nil)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, constants.SilverColumns, out.Columns)
}

func TestKeyDeriver_TitleOnly(t *testing.T) {
	r := stream.NewRecord()
	r.SetData(constants.ColTitleRaw, "Widget")
	k := NewKeyDeriver()
	assert.Equal(t, uuid.NewSHA1(uuid.NameSpaceURL, []byte("|Widget")).String(), k.DeriveKey(r))
	assert.Equal(t, k.DeriveKey(r), k.DeriveKey(r.Clone()), "stable across calls")
}

func TestParseTimestamp(t *testing.T) {
	for in, expected := range map[string]string{
		"2024-01-02T03:04:05Z":       "2024-01-02T03:04:05Z",
		"2024-01-02T03:04:05+02:00":  "2024-01-02T01:04:05Z",
		"2024-01-02 03:04:05.123456": "2024-01-02T03:04:05Z",
		"2024-01-02":                 "2024-01-02T00:00:00Z",
		"20240102T030405":            "2024-01-02T03:04:05Z",
	} {
		ts, ok := ParseTimestamp(in)
		require.True(t, ok, in)
		assert.Equal(t, expected, ts.Format(constants.TimeFormatCapturedAt), in)
	}
	_, ok := ParseTimestamp("yesterday")
	assert.False(t, ok)
	d, ok := ParseDate("2024-01-01T23:00:00-05:00")
	assert.True(t, ok)
	assert.Equal(t, "2024-01-01", d)
}
