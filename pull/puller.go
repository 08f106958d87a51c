package pull

import (
	"context"

	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/stream"
)

// Puller fetches the current raw records of one retailer.
type Puller interface {
	Retailer() string
	Pull(ctx context.Context) (stream.Table, error)
}

// WalmartPuller fetches every item of the master SKU list.
type WalmartPuller struct {
	Client *WalmartClient
	Seeds  WalmartSeeds
}

func (p *WalmartPuller) Retailer() string { return constants.RetailerWalmart }

func (p *WalmartPuller) Pull(ctx context.Context) (stream.Table, error) {
	if len(p.Seeds.ItemIDs) == 0 {
		return stream.Table{}, errors.New("no Walmart item ids to pull")
	}
	return p.Client.FetchItems(ctx, p.Seeds.ItemIDs)
}

// EbayPuller fetches known matches, or searches by UPC when there are none.
type EbayPuller struct {
	Client       *EbayClient
	ItemIDs      []string
	UPCs         []string
	PerCodeLimit int
	Log          logger.Logger
}

func (p *EbayPuller) Retailer() string { return constants.RetailerEbay }

func (p *EbayPuller) Pull(ctx context.Context) (stream.Table, error) {
	ids := p.ItemIDs
	if len(ids) == 0 {
		if len(p.UPCs) == 0 {
			return stream.Table{}, errors.New("no eBay matches and no UPCs to search by GTIN")
		}
		limit := p.PerCodeLimit
		if limit <= 0 {
			limit = 5
		}
		p.Log.Info("searching eBay by GTIN for ", len(p.UPCs), " UPCs")
		var err error
		if ids, err = p.Client.SearchByGTIN(ctx, p.UPCs, limit); err != nil {
			return stream.Table{}, err
		}
		if len(ids) == 0 {
			return stream.Table{}, errors.New("GTIN search returned no items")
		}
	}
	return p.Client.FetchItems(ctx, ids)
}
