package codec

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/relloyd/silverpipe/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCSV(t *testing.T) {
	t.Run("bom is stripped and empty cells are nil", func(t *testing.T) {
		in := "\xef\xbb\xbfitemId,name,salePrice\n123,Widget,\n456,\"Gadget, Large\",9.99\n"
		tbl, err := DecodeCSV(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, []string{"itemId", "name", "salePrice"}, tbl.Columns)
		require.Equal(t, 2, tbl.Len())
		assert.Equal(t, "123", tbl.Rows[0].GetData("itemId"))
		assert.Nil(t, tbl.Rows[0].GetData("salePrice"))
		assert.Equal(t, "Gadget, Large", tbl.Rows[1].GetData("name"))
	})

	t.Run("short rows are padded", func(t *testing.T) {
		tbl, err := DecodeCSV(strings.NewReader("a,b,c\n1\n"))
		require.NoError(t, err)
		assert.Nil(t, tbl.Rows[0].GetData("c"))
		assert.True(t, tbl.Rows[0].HasData("c"))
	})

	t.Run("empty document gives empty table", func(t *testing.T) {
		tbl, err := DecodeCSV(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, 0, tbl.Len())
	})
}

func TestEncodeCSV(t *testing.T) {
	tbl := stream.NewTable("a", "b", "c")
	r := stream.NewRecord()
	r.SetData("a", 19.99)
	r.SetData("b", true)
	r.SetData("c", nil)
	tbl.AppendRecord(r)
	got, err := EncodeCSV(tbl, []string{"c", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "c,a,b\n,19.99,true\n", got)

	back, err := DecodeCSV(strings.NewReader(got))
	require.NoError(t, err)
	assert.Equal(t, "19.99", back.Rows[0].GetData("a"))
}

func TestDecodeJSON(t *testing.T) {
	t.Run("array of objects with nested paths", func(t *testing.T) {
		in := `[{"itemId": 123456789012, "primaryOffer": {"offerPrice": {"price": 19.99}}, "tags": ["a"]}]`
		tbl, err := DecodeJSON(strings.NewReader(in))
		require.NoError(t, err)
		require.Equal(t, 1, tbl.Len())
		assert.Equal(t, json.Number("123456789012"), tbl.Rows[0].GetData("itemId"))
		assert.Equal(t, json.Number("19.99"), tbl.Rows[0].GetData("primaryOffer.offerPrice.price"))
		assert.Equal(t, []interface{}{"a"}, tbl.Rows[0].GetData("tags"))
	})

	t.Run("envelope keys", func(t *testing.T) {
		for _, k := range []string{"items", "data", "results"} {
			tbl, err := DecodeJSON(strings.NewReader(`{"` + k + `": [{"a": 1}, {"a": 2}], "meta": {}}`))
			require.NoError(t, err)
			assert.Equal(t, 2, tbl.Len(), k)
		}
	})

	t.Run("bare object is a single record", func(t *testing.T) {
		tbl, err := DecodeJSON(strings.NewReader(`{"itemId": "1", "price": {"value": "5.00", "currency": "USD"}}`))
		require.NoError(t, err)
		require.Equal(t, 1, tbl.Len())
		assert.Equal(t, "USD", tbl.Rows[0].GetData("price.currency"))
		assert.False(t, tbl.Rows[0].HasData("price"))
	})
}

func TestDecodeJSONLines(t *testing.T) {
	in := "{\"a\": 1}\n\n{\"a\": 2, \"b\": {\"c\": true}}\n"
	tbl, err := DecodeJSONLines(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, true, tbl.Rows[1].GetData("b.c"))

	_, err = DecodeJSONLines(strings.NewReader("{\"a\": 1}\nnot json\n"))
	assert.Error(t, err)
}
