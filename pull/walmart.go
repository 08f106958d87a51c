package pull

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/codec"
	"github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/stream"
)

const (
	DefaultWalmartBaseURL   = "https://developer.api.walmart.com/api-proxy/service/affil/product/v2"
	DefaultWalmartBatchSize = 20
	DefaultWalmartInterval  = 350 * time.Millisecond
)

// ParseRSAPrivateKey reads a PEM encoded PKCS#1 or PKCS#8 RSA key.
func ParseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found in private key")
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return k, nil
	}
	k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing private key")
	}
	rk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return rk, nil
}

// WalmartSigner builds the signed consumer headers of the affiliate API.
type WalmartSigner struct {
	ConsumerID string
	KeyVersion string
	Key        *rsa.PrivateKey
	Now        func() time.Time
}

// Headers signs "consumerId\ntimestamp\nkeyVersion\n" with RSA SHA-256.
func (s *WalmartSigner) Headers() (http.Header, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ts := strconv.FormatInt(now().UnixNano()/int64(time.Millisecond), 10)
	digest := sha256.Sum256([]byte(s.ConsumerID + "\n" + ts + "\n" + s.KeyVersion + "\n"))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.Key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, errors.Wrap(err, "error signing Walmart request")
	}
	hdr := make(http.Header)
	hdr.Set("WM_CONSUMER.ID", s.ConsumerID)
	hdr.Set("WM_SEC.KEY_VERSION", s.KeyVersion)
	hdr.Set("WM_CONSUMER.INTIMESTAMP", ts)
	hdr.Set("WM_SEC.AUTH_SIGNATURE", base64.StdEncoding.EncodeToString(sig))
	hdr.Set("WM_QOS.CORRELATION_ID", uuid.New().String())
	return hdr, nil
}

// WalmartClient looks up items by id in batches.
type WalmartClient struct {
	HTTP      *HTTPClient
	Signer    *WalmartSigner
	BaseURL   string
	BatchSize int
	Log       logger.Logger
}

func NewWalmartClient(log logger.Logger, signer *WalmartSigner) *WalmartClient {
	return &WalmartClient{
		HTTP:      NewHTTPClient(log, DefaultWalmartInterval),
		Signer:    signer,
		BaseURL:   DefaultWalmartBaseURL,
		BatchSize: DefaultWalmartBatchSize,
		Log:       log,
	}
}

func (c *WalmartClient) Retailer() string { return constants.RetailerWalmart }

// FetchItems returns one flattened record per item found. Ids that fail are logged and skipped.
func (c *WalmartClient) FetchItems(ctx context.Context, ids []string) (stream.Table, error) {
	t := stream.NewTable()
	size := c.BatchSize
	if size <= 0 {
		size = DefaultWalmartBatchSize
	}
	for _, chunk := range Chunk(ids, size) {
		items, err := c.requestItems(ctx, chunk)
		if err != nil {
			return t, err
		}
		for _, it := range items {
			rec := codec.Flatten(it)
			if v := rec.GetData("itemId"); v != nil && !rec.HasData("walmart_item_id") {
				rec.SetData("walmart_item_id", v)
			}
			t.AppendRecord(rec)
		}
	}
	return t, nil
}

// requestItems splits a batch in halves on 400 and falls back to single ids when retries are exhausted.
func (c *WalmartClient) requestItems(ctx context.Context, ids []string) ([]map[string]interface{}, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/items?" + url.Values{
		"ids":           {strings.Join(ids, ",")},
		"responseGroup": {"full"},
	}.Encode()
	resp, err := c.HTTP.Do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		hdr, err := c.Signer.Headers()
		if err != nil {
			return nil, err
		}
		for k, v := range hdr {
			req.Header[k] = v
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		c.Log.Error("Walmart request failed: ", err)
		return nil, nil
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return decodeItems(resp.Body)
	case resp.StatusCode == http.StatusBadRequest && len(ids) > 1:
		mid := len(ids) / 2
		left, err := c.requestItems(ctx, ids[:mid])
		if err != nil {
			return nil, err
		}
		right, err := c.requestItems(ctx, ids[mid:])
		return append(left, right...), err
	case Retryable(resp.StatusCode) && len(ids) > 1:
		var out []map[string]interface{}
		for _, id := range ids {
			items, err := c.requestItems(ctx, []string{id})
			if err != nil {
				return out, err
			}
			out = append(out, items...)
		}
		return out, nil
	}
	c.Log.Warn("Walmart ", resp.StatusCode, " ", resp.URL, " ", snippet(resp.Body))
	return nil, nil
}

func decodeItems(body []byte) ([]map[string]interface{}, error) {
	var payload map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "error decoding Walmart items")
	}
	for _, k := range []string{"items", "Items"} {
		raw, ok := payload[k]
		if !ok {
			continue
		}
		var items []map[string]interface{}
		d := json.NewDecoder(bytes.NewReader(raw))
		d.UseNumber()
		if err := d.Decode(&items); err != nil {
			return nil, errors.Wrap(err, "error decoding Walmart items")
		}
		return items, nil
	}
	return nil, nil
}

// Chunk splits s into slices of at most n elements.
func Chunk(s []string, n int) [][]string {
	var out [][]string
	for i := 0; i < len(s); i += n {
		end := i + n
		if end > len(s) {
			end = len(s)
		}
		out = append(out, s[i:end])
	}
	return out
}
