package upsert_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/silverpipe/blob"
	"github.com/relloyd/silverpipe/blob/mocks"
	"github.com/relloyd/silverpipe/codec"
	"github.com/relloyd/silverpipe/constants"
	"github.com/relloyd/silverpipe/logger"
	"github.com/relloyd/silverpipe/stream"
	"github.com/relloyd/silverpipe/upsert"
)

var log = logger.NewLogger("silverpipe-test", "error", false)

func row(id string, capturedAt string, price interface{}) map[string]interface{} {
	return map[string]interface{}{
		constants.ColSnapshotDate: "2024-03-01",
		constants.ColCapturedAt:   capturedAt,
		constants.ColNativeItemID: id,
		constants.ColPriceCurrent: price,
		constants.ColTitleRaw:     "Widget " + id,
	}
}

func table(rows ...map[string]interface{}) stream.Table {
	t := stream.NewTable()
	for _, r := range rows {
		t.AppendRecord(stream.NewRecordFromMap(r))
	}
	return t
}

func readCurrent(store blob.Store, name string) stream.Table {
	text, err := store.ReadText(context.Background(), name)
	Expect(err).ToNot(HaveOccurred())
	t, err := codec.DecodeCSV(strings.NewReader(text))
	Expect(err).ToNot(HaveOccurred())
	return t
}

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		store  *blob.MemoryStore
		engine *upsert.Engine
		now    time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = blob.NewMemoryStore()
		engine = upsert.NewEngine(log, store, "silver")
		now = time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
		engine.Now = func() time.Time { return now }
	})

	It("writes an audit copy and a current view per partition", func() {
		in := table(row("1", "2024-03-01T10:00:00Z", "9.99"))
		r2 := row("2", "2024-03-02T10:00:00Z", "5")
		r2[constants.ColSnapshotDate] = "2024-03-02"
		in.AppendRecord(stream.NewRecordFromMap(r2))

		written, err := engine.Upsert(ctx, in, "walmart", constants.EndpointWalmart, "r1", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(written).To(Equal([]string{
			"silver/walmart/snapshot_date=2024-03-01/run_r1.csv",
			"silver/walmart/snapshot_date=2024-03-01/current.csv",
			"silver/walmart/snapshot_date=2024-03-02/run_r1.csv",
			"silver/walmart/snapshot_date=2024-03-02/current.csv",
		}))
		cur := readCurrent(store, written[1])
		Expect(cur.Columns).To(Equal(constants.SilverColumns))
		Expect(cur.Len()).To(Equal(1))
		r := cur.Rows[0]
		Expect(r.GetData(constants.ColRetailerID)).To(Equal("walmart"))
		Expect(r.GetData(constants.ColIngestRunID)).To(Equal("r1"))
		Expect(r.GetData(constants.ColIngestStatus)).To(Equal("ok"))
		Expect(r.GetData(constants.ColSourceEndpoint)).To(Equal(constants.EndpointWalmart))
		Expect(r.GetData(constants.ColPriceCurrent)).To(Equal("9.99"))
	})

	It("overwrites lineage supplied upstream", func() {
		in := table(row("1", "2024-03-01T10:00:00Z", "1"))
		in.Rows[0].SetData(constants.ColRetailerID, "WALMART-OLD")
		in.Rows[0].SetData(constants.ColIngestRunID, "old")
		written, err := engine.Upsert(ctx, in, "walmart", "ep", "r1", nil)
		Expect(err).ToNot(HaveOccurred())
		r := readCurrent(store, written[1]).Rows[0]
		Expect(r.GetData(constants.ColRetailerID)).To(Equal("walmart"))
		Expect(r.GetData(constants.ColIngestRunID)).To(Equal("r1"))
	})

	It("converges when the same row is upserted repeatedly", func() {
		for _, run := range []string{"r1", "r2", "r3"} {
			_, err := engine.Upsert(ctx, table(row("1", "2024-03-01T10:00:00Z", "1")), "walmart", "ep", run, nil)
			Expect(err).ToNot(HaveOccurred())
		}
		cur := readCurrent(store, engine.CurrentName("walmart", "2024-03-01"))
		Expect(cur.Len()).To(Equal(1))
		Expect(cur.Rows[0].GetData(constants.ColIngestRunID)).To(Equal("r3"))
		audits, err := store.List(ctx, "silver/walmart/snapshot_date=2024-03-01/run_")
		Expect(err).ToNot(HaveOccurred())
		Expect(audits).To(HaveLen(3))
	})

	It("keeps the most recent capture regardless of submission order", func() {
		_, err := engine.Upsert(ctx, table(row("1", "2024-03-01T12:00:00Z", "20")), "ebay", "ep", "late", nil)
		Expect(err).ToNot(HaveOccurred())
		_, err = engine.Upsert(ctx, table(row("1", "2024-03-01T08:00:00Z", "10")), "ebay", "ep", "early", nil)
		Expect(err).ToNot(HaveOccurred())
		cur := readCurrent(store, engine.CurrentName("ebay", "2024-03-01"))
		Expect(cur.Len()).To(Equal(1))
		Expect(cur.Rows[0].GetData(constants.ColPriceCurrent)).To(Equal("20"))
		Expect(cur.Rows[0].GetData(constants.ColIngestRunID)).To(Equal("late"))
	})

	It("deduplicates keys within one batch by recency", func() {
		in := table(
			row("1", "2024-03-01T12:00:00Z", "3"),
			row("1", "2024-03-01T09:00:00Z", "1"),
			row("2", "2024-03-01T09:00:00Z", "2"),
		)
		_, err := engine.Upsert(ctx, in, "ebay", "ep", "r1", nil)
		Expect(err).ToNot(HaveOccurred())
		cur := readCurrent(store, engine.CurrentName("ebay", "2024-03-01"))
		Expect(cur.Len()).To(Equal(2))
		prices := map[interface{}]interface{}{}
		for _, r := range cur.Rows {
			prices[r.GetData(constants.ColNativeItemID)] = r.GetData(constants.ColPriceCurrent)
		}
		Expect(prices).To(Equal(map[interface{}]interface{}{"1": "3", "2": "2"}))
	})

	It("refuses to overwrite an audit copy", func() {
		_, err := engine.Upsert(ctx, table(row("1", "2024-03-01T10:00:00Z", "1")), "walmart", "ep", "r1", nil)
		Expect(err).ToNot(HaveOccurred())
		_, err = engine.Upsert(ctx, table(row("1", "2024-03-01T11:00:00Z", "2")), "walmart", "ep", "r1", nil)
		Expect(errors.Is(err, blob.ErrAlreadyExists)).To(BeTrue())
	})

	It("writes nothing for an empty table", func() {
		written, err := engine.Upsert(ctx, stream.NewTable(), "walmart", "ep", "r1", nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(written).To(BeEmpty())
		objs, _ := store.List(ctx, "")
		Expect(objs).To(BeEmpty())
	})

	It("validates its arguments", func() {
		in := table(row("1", "2024-03-01T10:00:00Z", "1"))
		_, err := engine.Upsert(ctx, in, "", "ep", "r1", nil)
		Expect(err).To(HaveOccurred())
		_, err = engine.Upsert(ctx, in, "walmart", "ep", "a/b", nil)
		Expect(err).To(HaveOccurred())
		_, err = engine.Upsert(ctx, in, "walmart", "ep", "r1", []string{"nope"})
		Expect(err).To(HaveOccurred())
	})

	It("supports custom key columns", func() {
		in := table(row("1", "2024-03-01T10:00:00Z", "1"), row("2", "2024-03-01T11:00:00Z", "2"))
		in.Rows[0].SetData(constants.ColUPC, "0001")
		in.Rows[1].SetData(constants.ColUPC, "0001")
		_, err := engine.Upsert(ctx, in, "walmart", "ep", "r1", []string{constants.ColRetailerID, constants.ColUPC})
		Expect(err).ToNot(HaveOccurred())
		cur := readCurrent(store, engine.CurrentName("walmart", "2024-03-01"))
		Expect(cur.Len()).To(Equal(1))
		Expect(cur.Rows[0].GetData(constants.ColNativeItemID)).To(Equal("2"))
	})

	It("serialises concurrent upserts to one partition without losing rows", func() {
		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := string(rune('a' + i))
				_, err := engine.Upsert(ctx, table(row(id, "2024-03-01T10:00:00Z", "1")), "walmart", "ep", "run-"+id, nil)
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(readCurrent(store, engine.CurrentName("walmart", "2024-03-01")).Len()).To(Equal(10))
	})

	Context("with a versioned store", func() {
		var ctrl *gomock.Controller

		BeforeEach(func() {
			ctrl = gomock.NewController(GinkgoT())
		})

		AfterEach(func() {
			ctrl.Finish()
		})

		It("reports a concurrent update when the current view changed underneath", func() {
			vs := mocks.NewMockVersionedStore(ctrl)
			vs.EXPECT().WriteText(gomock.Any(), "silver/walmart/snapshot_date=2024-03-01/run_r1.csv", gomock.Any(), false).Return(nil)
			vs.EXPECT().ReadTextVersion(gomock.Any(), "silver/walmart/snapshot_date=2024-03-01/current.csv").Return("", "", blob.ErrNotFound)
			vs.EXPECT().WriteTextIfVersion(gomock.Any(), "silver/walmart/snapshot_date=2024-03-01/current.csv", gomock.Any(), "").Return(blob.ErrVersionConflict)
			engine.Store = vs
			written, err := engine.Upsert(ctx, table(row("1", "2024-03-01T10:00:00Z", "1")), "walmart", "ep", "r1", nil)
			Expect(errors.Is(err, upsert.ErrConcurrentUpdate)).To(BeTrue())
			Expect(written).To(Equal([]string{"silver/walmart/snapshot_date=2024-03-01/run_r1.csv"}))
		})
	})

	Context("with a failing store", func() {
		var ctrl *gomock.Controller

		BeforeEach(func() {
			ctrl = gomock.NewController(GinkgoT())
		})

		AfterEach(func() {
			ctrl.Finish()
		})

		It("surfaces read failures and leaves the current view alone", func() {
			ms := mocks.NewMockStore(ctrl)
			ms.EXPECT().WriteText(gomock.Any(), gomock.Any(), gomock.Any(), false).Return(nil)
			ms.EXPECT().ReadText(gomock.Any(), gomock.Any()).Return("", errors.New("connection reset"))
			engine.Store = ms
			_, err := engine.Upsert(ctx, table(row("1", "2024-03-01T10:00:00Z", "1")), "walmart", "ep", "r1", nil)
			Expect(err).To(MatchError(ContainSubstring("connection reset")))
		})

		It("surfaces write failures", func() {
			ms := mocks.NewMockStore(ctrl)
			ms.EXPECT().WriteText(gomock.Any(), gomock.Any(), gomock.Any(), false).Return(errors.New("disk full"))
			engine.Store = ms
			written, err := engine.Upsert(ctx, table(row("1", "2024-03-01T10:00:00Z", "1")), "walmart", "ep", "r1", nil)
			Expect(err).To(MatchError(ContainSubstring("disk full")))
			Expect(written).To(BeEmpty())
		})
	})
})

var _ = Describe("Merge", func() {
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	keys := constants.DefaultKeyColumns

	withRetailer := func(t stream.Table) stream.Table {
		for _, r := range t.Rows {
			r.SetData(constants.ColRetailerID, "ebay")
		}
		return t
	}

	It("lets an unparsable capture time win as if captured now", func() {
		existing := withRetailer(table(row("1", "2024-03-01T23:00:00Z", "1")))
		incoming := withRetailer(table(row("1", "garbage", "2")))
		out := upsert.Merge(existing, incoming, keys, now)
		Expect(out.Len()).To(Equal(1))
		Expect(out.Rows[0].GetData(constants.ColPriceCurrent)).To(Equal("2"))
	})

	It("prefers incoming rows on equal capture times", func() {
		existing := withRetailer(table(row("1", "2024-03-01T10:00:00Z", "1")))
		incoming := withRetailer(table(row("1", "2024-03-01T10:00:00Z", "2")))
		out := upsert.Merge(existing, incoming, keys, now)
		Expect(out.Rows[0].GetData(constants.ColPriceCurrent)).To(Equal("2"))
	})

	It("sorts by capture time", func() {
		out := upsert.Merge(withRetailer(table(row("2", "2024-03-01T11:00:00Z", 1), row("1", "2024-03-01T09:00:00Z", 1))), stream.NewTable(), keys, now)
		Expect(out.Rows[0].GetData(constants.ColNativeItemID)).To(Equal("1"))
		Expect(out.Rows[1].GetData(constants.ColNativeItemID)).To(Equal("2"))
	})
})

var _ = Describe("CapturedAtSortKey", func() {
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	It("parses valid timestamps", func() {
		Expect(upsert.CapturedAtSortKey("2024-03-01T10:00:00Z", now)).To(Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	})

	It("treats bad and missing values as now", func() {
		Expect(upsert.CapturedAtSortKey("not a time", now)).To(Equal(now))
		Expect(upsert.CapturedAtSortKey(nil, now)).To(Equal(now))
	})
})
