package pull

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/codec"
	"github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/stream"
)

const (
	EbayProductionHost   = "https://api.ebay.com"
	EbaySandboxHost      = "https://api.sandbox.ebay.com"
	EbayScope            = "https://api.ebay.com/oauth/api_scope"
	DefaultEbayMarket    = "EBAY_US"
	DefaultEbayInterval  = 300 * time.Millisecond
	defaultTokenLifetime = 7200 * time.Second
)

// EbayHost returns the API host for "PRODUCTION" or "SANDBOX".
func EbayHost(environment string) string {
	if strings.EqualFold(environment, "SANDBOX") {
		return EbaySandboxHost
	}
	return EbayProductionHost
}

// EbayClient reads items from the Browse API with an application token.
type EbayClient struct {
	HTTP          *HTTPClient
	Tokens        *TokenCache
	BaseURL       string
	MarketplaceID string
	Log           logger.Logger
}

// NewEbayClient returns a client whose token cache uses the client credentials grant.
func NewEbayClient(log logger.Logger, baseURL string, clientID string, clientSecret string) *EbayClient {
	c := &EbayClient{
		HTTP:          NewHTTPClient(log, DefaultEbayInterval),
		BaseURL:       strings.TrimRight(baseURL, "/"),
		MarketplaceID: DefaultEbayMarket,
		Log:           log,
	}
	c.Tokens = NewTokenCache(func(ctx context.Context) (string, time.Duration, error) {
		return c.fetchToken(ctx, clientID, clientSecret)
	})
	return c
}

func (c *EbayClient) Retailer() string { return constants.RetailerEbay }

type ebayToken struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

func (c *EbayClient) fetchToken(ctx context.Context, clientID string, clientSecret string) (string, time.Duration, error) {
	if clientID == "" || clientSecret == "" {
		return "", 0, errors.New("eBay client id and secret are required")
	}
	form := url.Values{"grant_type": {"client_credentials"}, "scope": {EbayScope}}.Encode()
	resp, err := c.HTTP.Do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/identity/v1/oauth2/token", strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(clientID, clientSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return "", 0, errors.Wrap(err, "eBay token request failed")
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, errors.Errorf("eBay token failed %v: %v", resp.StatusCode, snippet(resp.Body))
	}
	var tok ebayToken
	if err := json.Unmarshal(resp.Body, &tok); err != nil {
		return "", 0, errors.Wrap(err, "error decoding eBay token")
	}
	if tok.AccessToken == "" {
		return "", 0, errors.New("eBay token response has no access_token")
	}
	lifetime := defaultTokenLifetime
	if n, err := tok.ExpiresIn.Int64(); err == nil && n > 0 {
		lifetime = time.Duration(n) * time.Second
	}
	return tok.AccessToken, lifetime, nil
}

// get sends an authorised GET. A 401 drops the cached token and tries once more.
func (c *EbayClient) get(ctx context.Context, endpoint string) (Response, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.Tokens.Get(ctx)
		if err != nil {
			return Response{}, err
		}
		resp, err := c.HTTP.Do(ctx, func() (*http.Request, error) {
			req, err := http.NewRequest(http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-EBAY-C-MARKETPLACE-ID", c.MarketplaceID)
			return req, nil
		})
		if err == nil && resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.Tokens.Invalidate()
			continue
		}
		return resp, err
	}
}

// FetchItems returns one record per item id. Missing items are skipped.
func (c *EbayClient) FetchItems(ctx context.Context, ids []string) (stream.Table, error) {
	t := stream.NewTable()
	for _, id := range ids {
		resp, err := c.get(ctx, c.BaseURL+"/buy/browse/v1/item/"+url.PathEscape(id))
		if err != nil {
			if ctx.Err() != nil {
				return t, err
			}
			c.Log.Error("eBay request error for ", id, ": ", err)
			continue
		}
		switch resp.StatusCode {
		case http.StatusOK:
			item, err := decodeObject(resp.Body)
			if err != nil {
				c.Log.Warn("eBay parse error for ", id, ": ", err)
				continue
			}
			t.AppendRecord(EbayItemRecord(item))
		case http.StatusNotFound:
		default:
			c.Log.Warn("eBay ", resp.StatusCode, " for ", id, ": ", snippet(resp.Body))
		}
	}
	return t, nil
}

// EbayItemRecord flattens an item and adds the aliases the eBay normalizer looks for.
func EbayItemRecord(item map[string]interface{}) stream.Record {
	rec := codec.Flatten(item)
	id := rec.GetData("itemId")
	if id == nil {
		id = rec.GetData("legacyItemId")
	}
	rec.SetData("ebay_item_id", id)
	if opts, ok := item["shippingOptions"].([]interface{}); ok && len(opts) > 0 {
		if first, ok := opts[0].(map[string]interface{}); ok {
			ship := codec.Flatten(first)
			if v := ship.GetData("shippingCost.value"); v != nil {
				rec.SetData("shippingServiceCost", v)
			} else if v := ship.GetData("shippingServiceCost"); v != nil {
				rec.SetData("shippingServiceCost", v)
			}
		}
	}
	return rec
}

// SearchByGTIN returns the distinct item ids listed for each code, in the order found.
func (c *EbayClient) SearchByGTIN(ctx context.Context, gtins []string, perCodeLimit int) ([]string, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, g := range gtins {
		q := url.Values{"gtin": {g}, "limit": {strconv.Itoa(perCodeLimit)}}.Encode()
		resp, err := c.get(ctx, c.BaseURL+"/buy/browse/v1/item_summary/search?"+q)
		if err != nil {
			if ctx.Err() != nil {
				return ids, err
			}
			c.Log.Error("GTIN search error for ", g, ": ", err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			c.Log.Warn("search GTIN ", g, " -> ", resp.StatusCode, ": ", snippet(resp.Body))
			continue
		}
		var payload struct {
			ItemSummaries []struct {
				ItemID string `json:"itemId"`
			} `json:"itemSummaries"`
		}
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			c.Log.Warn("error decoding GTIN search for ", g, ": ", err)
			continue
		}
		for _, s := range payload.ItemSummaries {
			if _, ok := seen[s.ItemID]; s.ItemID == "" || ok {
				continue
			}
			seen[s.ItemID] = struct{}{}
			ids = append(ids, s.ItemID)
		}
	}
	return ids, nil
}

func decodeObject(body []byte) (map[string]interface{}, error) {
	var m map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}
