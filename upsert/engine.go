package upsert

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/blob"
	"github.com/relloyd/silverpipe/codec"
	"github.com/relloyd/silverpipe/constants"
	h "github.com/relloyd/silverpipe/helper"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/silver"
	"github.com/relloyd/silverpipe/stream"
)

// ErrConcurrentUpdate is returned when another writer replaced a current view between our read and write.
var ErrConcurrentUpdate = stderrors.New("current view was updated concurrently")

// Engine writes silver partitions.
type Engine struct {
	Store    blob.Store
	Log      logger.Logger
	Prefix   string // silver root, e.g. "silver"
	Pipeline *silver.Pipeline
	Now      func() time.Time
	Observer silver.Observer // optional
}

// partitionLocks gives each partition a single writer within the process, across engines.
var partitionLocks keyedMutex

// NewEngine returns an Engine using the standard silver pipeline.
func NewEngine(log logger.Logger, store blob.Store, prefix string) *Engine {
	if prefix == "" {
		prefix = constants.DefaultSilverPrefix
	}
	e := &Engine{Store: store, Log: log, Prefix: prefix, Now: func() time.Time { return time.Now().UTC() }}
	e.Pipeline = silver.NewPipeline(e.now, silver.NewKeyDeriver())
	return e
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now()
}

// Upsert transforms t and merges it into the current view of every snapshot_date partition it touches.
// It returns the blob names written: the audit copy then the current view, per partition in date order.
// keyColumns defaults to retailer_id and native_item_id.
func (e *Engine) Upsert(ctx context.Context, t stream.Table, retailerID string, sourceEndpoint string, ingestRunID string, keyColumns []string) ([]string, error) {
	keys, err := validateArgs(retailerID, ingestRunID, keyColumns)
	if err != nil {
		return nil, err
	}
	log := logger.WithFields(e.Log, map[string]interface{}{"retailer": retailerID, "runId": ingestRunID})
	silverRows := e.Pipeline.Run(t, e.Observer)
	silverRows = Finalize(silverRows, retailerID, sourceEndpoint, ingestRunID)
	if silverRows.Len() == 0 {
		log.Info("no rows to upsert")
		return []string{}, nil
	}
	dates, parts := Partition(silverRows)
	written := make([]string, 0, 2*len(dates))
	for _, d := range dates {
		names, err := e.writePartition(ctx, log, retailerID, d, ingestRunID, parts[d], keys)
		written = append(written, names...)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func validateArgs(retailerID string, ingestRunID string, keyColumns []string) ([]string, error) {
	if strings.TrimSpace(retailerID) == "" {
		return nil, errors.New("retailer id is required")
	}
	if strings.TrimSpace(ingestRunID) == "" || strings.ContainsAny(ingestRunID, "/\\") {
		return nil, errors.Errorf("invalid ingest run id %q", ingestRunID)
	}
	if len(keyColumns) == 0 {
		keyColumns = constants.DefaultKeyColumns
	}
	keys := h.OrderedMapKeysToStringSlice(h.StringSliceToOrderedMap(keyColumns))
	known := h.StringSliceToOrderedMap(constants.SilverColumns)
	for _, k := range keys {
		if _, ok := known.Get(k); !ok {
			return nil, errors.Errorf("key column %q is not a silver column", k)
		}
	}
	return keys, nil
}

// PartitionPath returns the directory of one retailer's snapshot_date partition.
func (e *Engine) PartitionPath(retailerID string, snapshotDate string) string {
	return blob.Join(e.Prefix, retailerID, constants.PartitionDirPrefix+snapshotDate)
}

// AuditName returns the write-once blob name holding one run's contribution to a partition.
func (e *Engine) AuditName(retailerID string, snapshotDate string, ingestRunID string) string {
	return blob.Join(e.PartitionPath(retailerID, snapshotDate), constants.AuditFilePrefix+ingestRunID+".csv")
}

// CurrentName returns the blob name of a partition's merged view.
func (e *Engine) CurrentName(retailerID string, snapshotDate string) string {
	return blob.Join(e.PartitionPath(retailerID, snapshotDate), constants.CurrentViewName)
}

func (e *Engine) writePartition(ctx context.Context, log logger.Logger, retailerID, date, runID string, incoming stream.Table, keys []string) ([]string, error) {
	unlock := partitionLocks.Lock(e.PartitionPath(retailerID, date))
	defer unlock()
	written := make([]string, 0, 2)
	// Audit copy.
	auditName := e.AuditName(retailerID, date, runID)
	text, err := codec.EncodeCSV(incoming, constants.SilverColumns)
	if err != nil {
		return written, errors.Wrapf(err, "error encoding audit copy %v", auditName)
	}
	if err := e.Store.WriteText(ctx, auditName, text, false); err != nil {
		return written, errors.Wrapf(err, "error writing audit copy %v", auditName)
	}
	written = append(written, auditName)
	log.Debug("wrote audit copy ", auditName, " rows=", incoming.Len())
	// Current view.
	currentName := e.CurrentName(retailerID, date)
	existingText, version, err := e.readCurrent(ctx, currentName)
	if err != nil {
		return written, err
	}
	existing, err := codec.DecodeCSV(strings.NewReader(existingText))
	if err != nil {
		return written, errors.Wrapf(err, "error decoding current view %v", currentName)
	}
	now := e.now()
	merged := Merge(silver.ConformSchema(existing, now), incoming, keys, now)
	if text, err = codec.EncodeCSV(merged, constants.SilverColumns); err != nil {
		return written, errors.Wrapf(err, "error encoding current view %v", currentName)
	}
	if err := e.writeCurrent(ctx, currentName, text, version); err != nil {
		return written, err
	}
	written = append(written, currentName)
	log.Info("upserted partition ", currentName, " existing=", existing.Len(), " incoming=", incoming.Len(), " merged=", merged.Len())
	return written, nil
}

// readCurrent returns "" for an absent view. version is only set for versioned stores.
func (e *Engine) readCurrent(ctx context.Context, name string) (text string, version string, err error) {
	if vs, ok := e.Store.(blob.VersionedStore); ok {
		text, version, err = vs.ReadTextVersion(ctx, name)
	} else {
		text, err = e.Store.ReadText(ctx, name)
	}
	if stderrors.Is(err, blob.ErrNotFound) {
		return "", "", nil
	}
	if err != nil {
		return "", "", errors.Wrapf(err, "error reading current view %v", name)
	}
	return text, version, nil
}

func (e *Engine) writeCurrent(ctx context.Context, name string, text string, version string) error {
	var err error
	if vs, ok := e.Store.(blob.VersionedStore); ok {
		err = vs.WriteTextIfVersion(ctx, name, text, version)
		if stderrors.Is(err, blob.ErrVersionConflict) {
			return errors.Wrapf(ErrConcurrentUpdate, "%v", name)
		}
	} else {
		err = e.Store.WriteText(ctx, name, text, true)
	}
	if err != nil {
		return errors.Wrapf(err, "error writing current view %v", name)
	}
	return nil
}

// Finalize stamps the caller's lineage onto every row.
// retailer_id, source_endpoint and ingest_run_id are overwritten. ingest_status keeps a non-blank value, otherwise "ok".
func Finalize(t stream.Table, retailerID string, sourceEndpoint string, ingestRunID string) stream.Table {
	out := t.Clone()
	for _, r := range out.Rows {
		r.SetData(constants.ColRetailerID, retailerID)
		r.SetData(constants.ColSourceEndpoint, sourceEndpoint)
		r.SetData(constants.ColIngestRunID, ingestRunID)
		if h.IsBlank(r.GetData(constants.ColIngestStatus)) {
			r.SetData(constants.ColIngestStatus, constants.IngestStatusOK)
		}
	}
	return out
}

// Partition groups rows by snapshot_date and returns the dates in ascending order.
func Partition(t stream.Table) ([]string, map[string]stream.Table) {
	parts := make(map[string]stream.Table)
	dates := make([]string, 0)
	for _, r := range t.Rows {
		d := h.GetStringFromInterface(r.GetData(constants.ColSnapshotDate))
		p, ok := parts[d]
		if !ok {
			p = stream.NewTable(t.Columns...)
			dates = append(dates, d)
		}
		p.Rows = append(p.Rows, r)
		parts[d] = p
	}
	sort.Strings(dates)
	return dates, parts
}

// CapturedAtSortKey is the ordering policy for merges.
// Unparsable or missing capture times count as now, so such rows sort last and win ties.
func CapturedAtSortKey(v interface{}, now time.Time) time.Time {
	if ts, ok := silver.ParseTimestamp(v); ok {
		return ts
	}
	return now
}

// Merge concatenates existing and incoming rows, orders them by capture time and keeps the last row per key.
// Equal capture times keep submission order, so incoming rows replace existing ones.
func Merge(existing stream.Table, incoming stream.Table, keyColumns []string, now time.Time) stream.Table {
	all := stream.Concat(existing, incoming)
	type entry struct {
		row stream.Record
		ts  time.Time
		key string
	}
	entries := make([]entry, len(all.Rows))
	for i, r := range all.Rows {
		entries[i] = entry{row: r, ts: CapturedAtSortKey(r.GetData(constants.ColCapturedAt), now), key: rowKey(r, keyColumns)}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ts.Before(entries[j].ts) })
	last := make(map[string]int, len(entries))
	for i, en := range entries {
		last[en.key] = i
	}
	out := stream.NewTable(all.Columns...)
	for i, en := range entries {
		if last[en.key] == i {
			out.Rows = append(out.Rows, en.row)
		}
	}
	return out
}

func rowKey(r stream.Record, keyColumns []string) string {
	parts := make([]string, len(keyColumns))
	for i, c := range keyColumns {
		v := r.GetData(c)
		if v == nil {
			parts[i] = "\x00"
			continue
		}
		parts[i] = h.GetStringFromInterface(v)
	}
	return strings.Join(parts, "\x1f")
}

// keyedMutex serialises work per partition within this process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()
	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
