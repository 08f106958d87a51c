package raw

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/silverpipe/blob"
	"github.com/relloyd/silverpipe/codec"
	"github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/stream"
)

// Reader loads the newest raw snapshot for a source from a blob store.
type Reader struct {
	Store  blob.Store
	Prefix string // e.g. "raw"
	Log    logger.Logger
	Now    func() time.Time
}

func NewReader(log logger.Logger, store blob.Store, prefix string) *Reader {
	if prefix == "" {
		prefix = constants.DefaultRawPrefix
	}
	return &Reader{Store: store, Prefix: prefix, Log: log, Now: time.Now}
}

// ReadLatest parses the most recently modified blob under {prefix}/{source}/.
// When there is no blob it returns an empty table and an empty name.
// Missing snapshot_date and captured_at columns are stamped with the current date and time.
func (r *Reader) ReadLatest(ctx context.Context, source string) (stream.Table, string, error) {
	prefix := blob.DirPrefix(blob.Join(r.Prefix, source))
	latest, err := blob.Latest(ctx, r.Store, prefix)
	if errors.Is(err, blob.ErrNotFound) {
		r.Log.Warn("no raw data found under ", prefix)
		return stream.NewTable(), "", nil
	}
	if err != nil {
		return stream.Table{}, "", errors.Wrapf(err, "error finding latest raw blob for %v", source)
	}
	r.Log.Info("reading raw blob ", latest.Name)
	text, err := r.Store.ReadText(ctx, latest.Name)
	if err != nil {
		return stream.Table{}, "", errors.Wrapf(err, "error reading raw blob %v", latest.Name)
	}
	t, err := Parse(latest.Name, text)
	if err != nil {
		return stream.Table{}, "", errors.Wrapf(err, "error parsing raw blob %v", latest.Name)
	}
	t = StampMissing(t, r.now())
	r.Log.Debug("read ", t.Len(), " raw records from ", latest.Name)
	return t, latest.Name, nil
}

func (r *Reader) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Parse chooses the decoder from the blob name: .jsonl is JSON lines, .json is a JSON document and
// anything else is CSV with a header row.
func Parse(name string, text string) (stream.Table, error) {
	rd := strings.NewReader(text)
	switch strings.ToLower(path.Ext(name)) {
	case ".jsonl":
		return codec.DecodeJSONLines(rd)
	case ".json":
		return codec.DecodeJSON(rd)
	}
	return codec.DecodeCSV(rd)
}

// StampMissing adds snapshot_date and captured_at to t when the columns are absent.
// Existing columns are left alone, even where individual values are blank.
func StampMissing(t stream.Table, now time.Time) stream.Table {
	now = now.UTC()
	stamps := []struct {
		col string
		val string
	}{
		{constants.ColSnapshotDate, now.Format(constants.DateFormat)},
		{constants.ColCapturedAt, now.Format(constants.TimeFormatCapturedAt)},
	}
	for _, s := range stamps {
		if t.HasColumn(s.col) {
			continue
		}
		values := make([]interface{}, t.Len())
		for i := range values {
			values[i] = s.val
		}
		t.SetColumn(s.col, values)
	}
	return t
}
