package actions

import (
	"context"

	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/blob"
	"github.com/relloyd/silverpipe/config"
	"github.com/relloyd/silverpipe/constants"
)

// OpenStore returns the blob store described by cfg and a func to release it.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (blob.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Type {
	case constants.StoreTypeMemory:
		return blob.NewMemoryStore(), noop, nil
	case constants.StoreTypeFile:
		s, err := blob.NewFileStore(cfg.DSN)
		return s, noop, err
	case constants.StoreTypeS3:
		s, err := blob.NewS3StoreFromDSN(cfg.DSN, cfg.Region)
		return s, noop, err
	case constants.StoreTypeAzure:
		container := cfg.Container
		if container == "" {
			container = constants.DefaultRawContainer
		}
		s, err := blob.NewAzureStore(cfg.DSN, container)
		return s, noop, err
	case constants.StoreTypeSQL:
		s, err := blob.OpenSQLStore(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}
	return nil, noop, errors.Errorf("unknown store type %q", cfg.Type)
}
