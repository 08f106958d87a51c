package pull

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/blob"
	"github.com/relloyd/silverpipe/codec"
	"github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/stream"
)

// SnapshotWriter stores pulled records as a raw CSV snapshot.
type SnapshotWriter struct {
	Store  blob.Store
	Prefix string // raw root, e.g. "raw"
	Log    logger.Logger
	Now    func() time.Time
}

func NewSnapshotWriter(log logger.Logger, store blob.Store, prefix string) *SnapshotWriter {
	if prefix == "" {
		prefix = constants.DefaultRawPrefix
	}
	return &SnapshotWriter{Store: store, Prefix: prefix, Log: log, Now: func() time.Time { return time.Now().UTC() }}
}

// SnapshotName returns raw/{retailer}/daily/{date}/run_id={run}/{retailer}_snapshot_{date}_{run}.csv.
func (w *SnapshotWriter) SnapshotName(retailerID string, date string, runID string) string {
	return blob.Join(w.Prefix, retailerID, "daily", date, "run_id="+runID,
		retailerID+"_snapshot_"+date+"_"+runID+".csv")
}

// Write stamps snapshot_date, captured_at and retailer_id on every record and uploads the table.
// The itemId column is copied to {retailer}_item_id when that column is missing.
func (w *SnapshotWriter) Write(ctx context.Context, retailerID string, runID string, t stream.Table) (string, error) {
	if t.Len() == 0 {
		return "", errors.Errorf("no %v records to write", retailerID)
	}
	now := w.Now().UTC()
	date := now.Format(constants.DateFormat)
	idColumn := retailerID + "_item_id"
	out := t.Clone()
	for _, c := range []string{constants.ColSnapshotDate, constants.ColCapturedAt, constants.ColRetailerID, idColumn} {
		out.AddColumn(c)
	}
	for _, r := range out.Rows {
		r.SetData(constants.ColSnapshotDate, date)
		r.SetData(constants.ColCapturedAt, now.Format(constants.TimeFormatCapturedAt))
		r.SetData(constants.ColRetailerID, retailerID)
		if r.GetData(idColumn) == nil {
			r.SetData(idColumn, r.GetData("itemId"))
		}
	}
	text, err := codec.EncodeCSV(out, out.Columns)
	if err != nil {
		return "", errors.Wrap(err, "error encoding raw snapshot")
	}
	name := w.SnapshotName(retailerID, date, runID)
	if err := w.Store.WriteText(ctx, name, text, true); err != nil {
		return "", errors.Wrapf(err, "error writing raw snapshot %v", name)
	}
	w.Log.Info("uploaded raw ", retailerID, " snapshot ", name, " rows=", out.Len())
	return name, nil
}
