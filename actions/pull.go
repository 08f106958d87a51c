package actions

import (
	"context"
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/blob"
	"github.com/relloyd/silverpipe/config"
	"github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/pull"
)

// PullConfig describes one raw pull of a retailer.
type PullConfig struct {
	Log       logger.Logger
	Store     blob.Store
	Settings  *config.Config
	Retailer  string `errorTxt:"retailer" mandatory:"yes"`
	RunID     string `errorTxt:"run id" mandatory:"yes"`
	RawPrefix string `errorTxt:"raw prefix" mandatory:"yes"`
}

// RunPull fetches the retailer's items and writes them as a raw snapshot. It returns the snapshot name.
func RunPull(ctx context.Context, cfg *PullConfig) (string, error) {
	if cfg == nil || cfg.Store == nil || cfg.Settings == nil || cfg.Log == nil {
		return "", errors.New("pull needs a store, settings and a logger")
	}
	if err := validate(cfg); err != nil {
		return "", err
	}
	p, err := NewPuller(cfg.Log, cfg.Settings, cfg.Retailer)
	if err != nil {
		return "", err
	}
	t, err := p.Pull(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "%v pull failed", cfg.Retailer)
	}
	w := pull.NewSnapshotWriter(cfg.Log, cfg.Store, cfg.RawPrefix)
	return w.Write(ctx, cfg.Retailer, cfg.RunID, t)
}

// NewPuller builds the puller for retailer from settings, reading its seed files.
func NewPuller(log logger.Logger, s *config.Config, retailer string) (pull.Puller, error) {
	switch retailer {
	case constants.RetailerWalmart:
		return newWalmartPuller(log, s.Walmart)
	case constants.RetailerEbay:
		return newEbayPuller(log, s.Ebay)
	}
	return nil, errors.Errorf("unknown retailer %q", retailer)
}

func newWalmartPuller(log logger.Logger, s config.WalmartConfig) (pull.Puller, error) {
	if s.ConsumerID == "" || s.PrivateKeyFile == "" {
		return nil, errors.New("walmart consumer_id and private_key_file are required")
	}
	pemBytes, err := ioutil.ReadFile(s.PrivateKeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading Walmart private key")
	}
	key, err := pull.ParseRSAPrivateKey(pemBytes)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(s.MasterFile)
	if err != nil {
		return nil, errors.Wrap(err, "error opening master SKUs")
	}
	defer f.Close()
	seeds, err := pull.LoadMasterSKUs(f)
	if err != nil {
		return nil, err
	}
	c := pull.NewWalmartClient(log, &pull.WalmartSigner{ConsumerID: s.ConsumerID, KeyVersion: s.KeyVersion, Key: key})
	if s.BaseURL != "" {
		c.BaseURL = s.BaseURL
	}
	if s.BatchSize > 0 {
		c.BatchSize = s.BatchSize
	}
	if s.IntervalMs > 0 {
		c.HTTP = pull.NewHTTPClient(log, time.Duration(s.IntervalMs)*time.Millisecond)
	}
	return &pull.WalmartPuller{Client: c, Seeds: seeds}, nil
}

func newEbayPuller(log logger.Logger, s config.EbayConfig) (pull.Puller, error) {
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = pull.EbayHost(s.Environment)
	}
	c := pull.NewEbayClient(log, baseURL, s.ClientID, s.ClientSecret)
	if s.MarketplaceID != "" {
		c.MarketplaceID = s.MarketplaceID
	}
	if s.IntervalMs > 0 {
		c.HTTP = pull.NewHTTPClient(log, time.Duration(s.IntervalMs)*time.Millisecond)
	}
	p := &pull.EbayPuller{Client: c, Log: log}
	if f, err := os.Open(s.MatchesFile); err == nil {
		p.ItemIDs, err = pull.LoadEbayMatches(f)
		f.Close()
		if err != nil {
			log.Warn("could not load ", s.MatchesFile, ": ", err)
		}
	}
	if len(p.ItemIDs) == 0 {
		f, err := os.Open(s.MasterFile)
		if err != nil {
			return nil, errors.Wrap(err, "no eBay matches and no master SKUs to search by GTIN")
		}
		defer f.Close()
		seeds, err := pull.LoadMasterSKUs(f)
		if err != nil {
			return nil, err
		}
		p.UPCs = seeds.UPCs
	}
	return p, nil
}
