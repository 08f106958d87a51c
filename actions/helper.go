package actions

import (
	"github.com/relloyd/silverpipe/config"
	"github.com/relloyd/silverpipe/constants"
	h "github.com/relloyd/silverpipe/helper"
	"github.com/relloyd/silverpipe/normalize"
)

func validate(cfg interface{}) error {
	return h.ValidateStructIsPopulated(cfg)
}

// NewIngestConfig maps settings onto an IngestConfig. Store and Log must still be set by the caller.
func NewIngestConfig(s *config.Config, runID string) *IngestConfig {
	return &IngestConfig{
		RunID:        runID,
		RawPrefix:    s.Store.RawPrefix,
		SilverPrefix: s.Silver.Prefix,
		KeyColumns:   s.Silver.KeyColumns,
		Parallel:     s.Silver.Parallel,
		Options: map[string]normalize.Options{
			constants.RetailerEbay: {PromoRule: s.Silver.EbayPromoRule},
		},
	}
}
