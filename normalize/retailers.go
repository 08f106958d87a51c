package normalize

import (
	"fmt"

	"github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/logger"
)

// EbayPromoRule flags a row when both prices are known and current is below regular.
const EbayPromoRule = `{"if": [{"and": [{"var": "price_current"}, {"var": "price_regular"}, {"<": [{"var": "price_current"}, {"var": "price_regular"}]}]}, true, false]}`

// WalmartMapping lists where each pre-silver column is found in Walmart item payloads.
func WalmartMapping() *Mapping {
	return NewMapping().
		Set(constants.ColSnapshotDate, Columns(constants.ColSnapshotDate)).
		Set(constants.ColCapturedAt, Columns(constants.ColCapturedAt)).
		Set(constants.ColRetailerID, Constant(constants.RetailerWalmart)).
		Set(constants.ColNativeItemID, Columns("walmart_item_id", "itemId", "usItemId")).
		Set(constants.ColUPC, Columns("upc", "gtin", "ean")).
		Set(constants.ColTitleRaw, Columns("title_raw", "name", "productName")).
		Set(constants.ColBrandRaw, Columns("brand_raw", "brandName", "brand")).
		Set(constants.ColModelRaw, Columns("model_raw", "modelNumber", "model")).
		Set(constants.ColCategoryRawPath, Columns("category_raw_path", "categoryPath", "category.path")).
		Set(constants.ColProductURL, Columns("product_url", "productUrl", "productTrackingUrl", "canonicalUrl")).
		Set(constants.ColCurrency, Columns("currency")).
		Set(constants.ColPriceCurrent, Columns("price_current", "salePrice", "price", "currentPrice", "primaryOffer.offerPrice.price")).
		Set(constants.ColPriceRegular, Columns("price_regular", "listPrice", "wasPrice", "primaryOffer.listPrice.price", "msrp")).
		Set(constants.ColMsrp, Columns("msrp")).
		Set(constants.ColShippingCost, Columns("shipping_cost", "shipping.price.price", "shippingCost")).
		Set(constants.ColPromoFlag, AnyTrue("promo_flag", "rollback", "clearance", "isOnSale")).
		Set(constants.ColInStockFlag, Columns("in_stock_flag", "availableOnline", "inStock")).
		Set(constants.ColAvailabilityMsg, Columns("availability_message", "stock", "availabilityStatus")).
		Set(constants.ColRatingAvg, Columns("rating_avg", "customerRating", "averageRating")).
		Set(constants.ColRatingCount, Columns("rating_count", "numReviews", "reviewCount", "customerRatingCount", "numberOfReviews")).
		Set(constants.ColSourceEndpoint, Constant(constants.EndpointWalmart)).
		Set(constants.ColIngestRunID, Columns(constants.ColIngestRunID)).
		Set(constants.ColIngestStatus, Columns(constants.ColIngestStatus))
}

// EbayMapping lists where each pre-silver column is found in eBay Browse payloads.
func EbayMapping() *Mapping {
	return NewMapping().
		Set(constants.ColSnapshotDate, Columns(constants.ColSnapshotDate)).
		Set(constants.ColCapturedAt, Columns(constants.ColCapturedAt)).
		Set(constants.ColRetailerID, Constant(constants.RetailerEbay)).
		Set(constants.ColNativeItemID, Columns("ebay_item_id", "itemId", "legacyItemId")).
		Set(constants.ColUPC, Columns("upc", "ean", "gtin", "productId")).
		Set(constants.ColTitleRaw, Columns("title_raw", "title", "name", "itemTitle")).
		Set(constants.ColBrandRaw, Columns("brand_raw", "brand", "brandName", "itemBrand")).
		Set(constants.ColModelRaw, Columns("model_raw", "mpn", "model")).
		Set(constants.ColCategoryRawPath, Columns("category_raw_path", "categoryPath", "leafCategoryName", "primaryCategory", "category")).
		Set(constants.ColProductURL, Columns("itemWebUrl", "viewItemURL", "itemWebURL", "product_url")).
		Set(constants.ColCurrency, Columns("currency", "currentPrice.currency", "price.currency", "sellingStatus.currentPrice.currencyId")).
		Set(constants.ColPriceCurrent, Columns("price_current", "currentPrice", "currentPrice.value", "price", "price.value", "sellingStatus.currentPrice.value")).
		Set(constants.ColPriceRegular, Columns("price_regular", "originalPrice", "marketingPrice.originalPrice.value", "wasPrice")).
		Set(constants.ColMsrp, Columns("msrp", "manufacturerSuggestedRetailPrice", "MnfctPrice")).
		Set(constants.ColShippingCost, Columns("shipping_cost", "shippingServiceCost", "shippingServiceCost.value", "shippingOptions.shippingCost.value")).
		Set(constants.ColPromoFlag, Rule(EbayPromoRule)).
		Set(constants.ColInStockFlag, Columns("in_stock_flag", "availabilityInStock", "inStock")).
		Set(constants.ColAvailabilityMsg, Columns("availability_message", "availabilityStatus", "itemAvailabilityMessage", "availability")).
		Set(constants.ColRatingAvg, Columns("rating_avg", "ratingStar", "reviewRating", "rating")).
		Set(constants.ColRatingCount, Columns("rating_count", "reviewCount", "ratingCount")).
		Set(constants.ColSourceEndpoint, Constant(constants.EndpointEbay)).
		Set(constants.ColIngestRunID, Columns(constants.ColIngestRunID)).
		Set(constants.ColIngestStatus, Columns(constants.ColIngestStatus))
}

// Retailers lists the identifiers that ForRetailer knows.
var Retailers = []string{constants.RetailerWalmart, constants.RetailerEbay}

// ForRetailer returns the normalizer for retailerID.
func ForRetailer(log logger.Logger, retailerID string, opts Options) (Normalizer, error) {
	var m *Mapping
	var endpoint string
	switch retailerID {
	case constants.RetailerWalmart:
		m, endpoint = WalmartMapping(), constants.EndpointWalmart
	case constants.RetailerEbay:
		m, endpoint = EbayMapping(), constants.EndpointEbay
	default:
		return nil, fmt.Errorf("unknown retailer %q", retailerID)
	}
	if opts.PromoRule != "" {
		m.Set(constants.ColPromoFlag, Rule(opts.PromoRule))
	}
	return NewMappingNormalizer(log, retailerID, endpoint, m)
}
