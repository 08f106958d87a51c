package actions

import (
	"context"
	"fmt"
	"io/ioutil"
	"path"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/blob"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/normalize"
	"github.com/relloyd/silverpipe/raw"
	"github.com/relloyd/silverpipe/stats"
	"github.com/relloyd/silverpipe/stream"
	"github.com/relloyd/silverpipe/upsert"
)

// IngestConfig describes one ingestion run over the latest raw snapshot of each retailer.
type IngestConfig struct {
	Log          logger.Logger
	Store        blob.Store
	RunID        string   `errorTxt:"run id" mandatory:"yes"`
	RawPrefix    string   `errorTxt:"raw prefix" mandatory:"yes"`
	SilverPrefix string   `errorTxt:"silver prefix" mandatory:"yes"`
	Retailers    []string // defaults to every known retailer
	KeyColumns   []string
	Parallel     bool
	Options      map[string]normalize.Options // per retailer
	Stats        *stats.Manager               // optional
}

// IngestResult is the outcome for one retailer.
type IngestResult struct {
	Retailer string        `json:"retailer"`
	RawBlob  string        `json:"rawBlob"`
	Rows     int           `json:"rows"`
	Written  []string      `json:"written"`
	Stats    []stats.Stats `json:"stats"`
	Error    string        `json:"error,omitempty"`
}

// RunIngest reads, normalizes and upserts each retailer, one after the other or in parallel.
// Results are in retailer order. The error reports every failed retailer.
func RunIngest(ctx context.Context, cfg *IngestConfig) ([]IngestResult, error) {
	if err := validateIngest(cfg); err != nil {
		return nil, err
	}
	retailers := cfg.Retailers
	if len(retailers) == 0 {
		retailers = normalize.Retailers
	}
	results := make([]IngestResult, len(retailers))
	errs := make([]error, len(retailers))
	engine := upsert.NewEngine(cfg.Log, cfg.Store, cfg.SilverPrefix)
	reader := raw.NewReader(cfg.Log, cfg.Store, cfg.RawPrefix)
	run := func(i int) {
		src := func(ctx context.Context) (stream.Table, string, error) { return reader.ReadLatest(ctx, retailers[i]) }
		results[i], errs[i] = ingestOne(ctx, cfg, engine, retailers[i], src)
	}
	if cfg.Parallel {
		var wg sync.WaitGroup
		for i := range retailers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				run(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range retailers {
			run(i)
		}
	}
	return results, joinErrors(retailers, errs)
}

// RunUpsertFile normalizes and upserts a local raw file for one retailer.
func RunUpsertFile(ctx context.Context, cfg *IngestConfig, retailer string, fileName string) (IngestResult, error) {
	if err := validateIngest(cfg); err != nil {
		return IngestResult{}, err
	}
	b, err := ioutil.ReadFile(fileName)
	if err != nil {
		return IngestResult{}, errors.Wrapf(err, "error reading %v", fileName)
	}
	src := func(ctx context.Context) (stream.Table, string, error) {
		t, err := raw.Parse(fileName, string(b))
		return t, path.Base(fileName), err
	}
	engine := upsert.NewEngine(cfg.Log, cfg.Store, cfg.SilverPrefix)
	return ingestOne(ctx, cfg, engine, retailer, src)
}

func validateIngest(cfg *IngestConfig) error {
	if cfg == nil || cfg.Store == nil || cfg.Log == nil {
		return errors.New("ingest needs a store and a logger")
	}
	return validate(cfg)
}

func ingestOne(ctx context.Context, cfg *IngestConfig, engine *upsert.Engine, retailer string,
	source func(context.Context) (stream.Table, string, error)) (result IngestResult, err error) {
	result = IngestResult{Retailer: retailer, Written: []string{}}
	log := logger.WithFields(cfg.Log, map[string]interface{}{"retailer": retailer, "runId": cfg.RunID})
	n, err := normalize.ForRetailer(log, retailer, cfg.Options[retailer])
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	var rs *stats.RunStats
	if cfg.Stats != nil {
		rs = cfg.Stats.AddRun(cfg.RunID + "/" + retailer)
		defer func() {
			if err != nil {
				rs.Fail()
			} else {
				rs.Complete()
			}
			result.Stats = rs.GetStats()
		}()
	}
	t, name, err := source(ctx)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	result.RawBlob = name
	result.Rows = t.Len()
	log.Info("normalizing ", t.Len(), " raw records from ", name)
	pre := n.Normalize(t)
	// Copy the engine so each retailer has its own observer and log fields.
	e := &upsert.Engine{Store: engine.Store, Log: log, Prefix: engine.Prefix, Pipeline: engine.Pipeline, Now: engine.Now}
	if rs != nil {
		e.Observer = rs
	}
	written, err := e.Upsert(ctx, pre, n.RetailerID(), n.SourceEndpoint(), cfg.RunID, cfg.KeyColumns)
	result.Written = append(result.Written, written...)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}
	return result, nil
}

func joinErrors(retailers []string, errs []error) error {
	msgs := make([]string, 0)
	for i, err := range errs {
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("%v: %v", retailers[i], err))
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(msgs, "; "))
}
