package constants

// Silver contract

const (
	ColSnapshotDate       = "snapshot_date"
	ColCapturedAt         = "captured_at"
	ColRetailerID         = "retailer_id"
	ColNativeItemID       = "native_item_id"
	ColUPC                = "upc"
	ColTitleRaw           = "title_raw"
	ColBrandRaw           = "brand_raw"
	ColModelRaw           = "model_raw"
	ColCategoryRawPath    = "category_raw_path"
	ColProductURL         = "product_url"
	ColCurrency           = "currency"
	ColPriceCurrent       = "price_current"
	ColPriceRegular       = "price_regular"
	ColMsrp               = "msrp"
	ColPriceRegularChosen = "price_regular_chosen"
	ColRegularPriceSource = "regular_price_source"
	ColShippingCost       = "shipping_cost"
	ColLandedPrice        = "landed_price"
	ColPromoFlag          = "promo_flag"
	ColPromoDetectMethod  = "promo_detect_method"
	ColDiscountDepth      = "discount_depth"
	ColInStockFlag        = "in_stock_flag"
	ColAvailabilityMsg    = "availability_message"
	ColRatingAvg          = "rating_avg"
	ColRatingCount        = "rating_count"
	ColSourceEndpoint     = "source_endpoint"
	ColIngestRunID        = "ingest_run_id"
	ColIngestStatus       = "ingest_status"
)

// SilverColumns is the canonical column order of every silver table and partition file.
var SilverColumns = []string{
	ColSnapshotDate, ColCapturedAt, ColRetailerID, ColNativeItemID, ColUPC,
	ColTitleRaw, ColBrandRaw, ColModelRaw, ColCategoryRawPath, ColProductURL, ColCurrency,
	ColPriceCurrent, ColPriceRegular, ColMsrp, ColPriceRegularChosen, ColRegularPriceSource,
	ColShippingCost, ColLandedPrice,
	ColPromoFlag, ColPromoDetectMethod, ColDiscountDepth,
	ColInStockFlag, ColAvailabilityMsg,
	ColRatingAvg, ColRatingCount,
	ColSourceEndpoint, ColIngestRunID, ColIngestStatus,
}

// DefaultKeyColumns identify one listing in a current view.
var DefaultKeyColumns = []string{ColRetailerID, ColNativeItemID}

const (
	RegularSourceExplicit = "explicit_regular"
	RegularSourceMsrp     = "msrp"
	RegularSourceUnknown  = "unknown"
	PromoMethodExplicit   = "explicit"
	PromoMethodHeuristic  = "heuristic_regular"
	PromoMethodNone       = "none"
	PromoHeuristicRatio   = "0.95" // current at or below 95% of regular counts as a promotion
	IngestStatusOK        = "ok"
	DefaultCurrency       = "USD"
	RetailerWalmart       = "walmart"
	RetailerEbay          = "ebay"
	EndpointWalmart       = "items:responseGroup=full"
	EndpointEbay          = "browse:item"
)

// Storage layout and formats

const (
	DateFormat                   = "2006-01-02"
	TimeFormatCapturedAt         = "2006-01-02T15:04:05Z"
	DefaultRawPrefix             = "raw"
	DefaultSilverPrefix          = "silver"
	DefaultRawContainer          = "retail-data"
	CurrentViewName              = "current.csv"
	PartitionDirPrefix           = "snapshot_date="
	AuditFilePrefix              = "run_"
	StatsCaptureFrequencySeconds = 5
	EmojiBang                    = "\U0001F4A5"
	EnvVarPrefix                 = "SP" // prefixed for environment variables in twelveFactorMode
)

// Store types

const (
	StoreTypeMemory = "mem"
	StoreTypeFile   = "file"
	StoreTypeS3     = "s3"
	StoreTypeAzure  = "azure"
	StoreTypeSQL    = "sql"
)

// Commands

const (
	ActionFuncsCommandRun    = "run"
	ActionFuncsCommandPull   = "pull"
	ActionFuncsCommandUpsert = "upsert"
	ActionFuncsCommandServe  = "serve"
)
