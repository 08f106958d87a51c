package silver

import (
	"testing"

	"github.com/relloyd/silverpipe/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestNormalizeCategory(t *testing.T) {
	cases := map[string]string{
		"Electronics/TVs|OLED":        "Electronics > TVs > OLED",
		"Home >> Kitchen  >   Knives": "Home > Kitchen > Knives",
		" > Toys > ":                  "Toys",
		"Electronics > TV & Video":    "Electronics > TV & Video",
		"a / / b":                     "a > b",
		"///":                         "",
	}
	for in, expected := range cases {
		got := NormalizeCategory(in)
		assert.Equal(t, expected, got, in)
		assert.Equal(t, got, NormalizeCategory(got), "idempotent for %q", in)
	}
}

func TestNormalizeCurrencyCode(t *testing.T) {
	cases := map[interface{}]string{
		"$": "USD", "US$": "USD", "£": "GBP", "€": "EUR", "c$": "CAD", "AU$": "AUD", "¥": "JPY",
		"₹": "INR", "HK$": "HKD", "R$": "BRL", "MX$": "MXN", "chf": "CHF", "eur": "EUR", "": "USD", nil: "USD", " gbp ": "GBP",
	}
	for in, expected := range cases {
		assert.Equal(t, expected, NormalizeCurrencyCode(in), "%v", in)
	}
}

func TestChooseRegular(t *testing.T) {
	v, src := ChooseRegular(f(24.99), f(29.99))
	assert.Equal(t, 24.99, *v)
	assert.Equal(t, constants.RegularSourceExplicit, src)

	v, src = ChooseRegular(nil, f(29.99))
	assert.Equal(t, 29.99, *v)
	assert.Equal(t, constants.RegularSourceMsrp, src)

	v, src = ChooseRegular(nil, nil)
	assert.Nil(t, v)
	assert.Equal(t, constants.RegularSourceUnknown, src)
}

func TestLandedPrice(t *testing.T) {
	assert.Nil(t, LandedPrice(nil, f(5)))
	assert.Equal(t, 19.99, *LandedPrice(f(19.99), nil))
	assert.Equal(t, 25.0, *LandedPrice(f(19.99), f(5.01)))
	assert.Equal(t, 0.3, *LandedPrice(f(0.1), f(0.2)), "decimal addition avoids binary rounding")
}

func TestDetectPromo(t *testing.T) {
	t.Run("heuristic at 20 percent off", func(t *testing.T) {
		p := DetectPromo(f(80), f(100), false)
		assert.True(t, p.Flag)
		assert.Equal(t, constants.PromoMethodHeuristic, p.Method)
		require.NotNil(t, p.Depth)
		assert.Equal(t, 0.2, *p.Depth)
	})
	t.Run("exactly 95 percent is a promotion", func(t *testing.T) {
		p := DetectPromo(f(95), f(100), false)
		assert.True(t, p.Flag)
		assert.Equal(t, constants.PromoMethodHeuristic, p.Method)
		assert.Equal(t, 0.05, *p.Depth)
	})
	t.Run("small discount without a hint is not a promotion", func(t *testing.T) {
		p := DetectPromo(f(96), f(100), false)
		assert.False(t, p.Flag)
		assert.Equal(t, constants.PromoMethodNone, p.Method)
		assert.Equal(t, 0.0, *p.Depth)
	})
	t.Run("explicit hint beats the heuristic", func(t *testing.T) {
		p := DetectPromo(f(98), f(100), true)
		assert.True(t, p.Flag)
		assert.Equal(t, constants.PromoMethodExplicit, p.Method)
		assert.Equal(t, 0.02, *p.Depth)
	})
	t.Run("two percent off without a hint is not a promotion", func(t *testing.T) {
		p := DetectPromo(f(98), f(100), false)
		assert.False(t, p.Flag)
		assert.Equal(t, constants.PromoMethodNone, p.Method)
		require.NotNil(t, p.Depth)
		assert.Equal(t, 0.0, *p.Depth)
	})
	t.Run("explicit hint at ten percent off", func(t *testing.T) {
		p := DetectPromo(f(90), f(100), true)
		assert.True(t, p.Flag)
		assert.Equal(t, constants.PromoMethodExplicit, p.Method)
		require.NotNil(t, p.Depth)
		assert.Equal(t, 0.1, *p.Depth)
	})
	t.Run("explicit hint with current at or above regular is ignored", func(t *testing.T) {
		p := DetectPromo(f(100), f(100), true)
		assert.False(t, p.Flag)
		assert.Equal(t, constants.PromoMethodNone, p.Method)
	})
	t.Run("hint alone when prices are missing", func(t *testing.T) {
		p := DetectPromo(nil, f(100), true)
		assert.True(t, p.Flag)
		assert.Equal(t, constants.PromoMethodExplicit, p.Method)
		assert.Nil(t, p.Depth)
	})
	t.Run("zero regular price", func(t *testing.T) {
		p := DetectPromo(f(10), f(0), false)
		assert.False(t, p.Flag)
		assert.Equal(t, constants.PromoMethodNone, p.Method)
		assert.Nil(t, p.Depth)
	})
	t.Run("depth stays within bounds", func(t *testing.T) {
		p := DetectPromo(f(0), f(50), false)
		assert.Equal(t, 1.0, *p.Depth)
	})
}
