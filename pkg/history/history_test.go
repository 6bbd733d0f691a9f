package history_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ambient/pkg/history"
	"github.com/papercomputeco/ambient/pkg/ledger"
	"github.com/papercomputeco/ambient/pkg/ledger/inmemory"
)

func TestHistory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "History Suite")
}

var _ = Describe("Navigator", func() {
	var (
		ctx   context.Context
		store *inmemory.Driver
		nav   *history.Navigator
		base  time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		nav = history.NewNavigator(store)
		base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	appendTurns := func(n int, start time.Time) {
		for i := 0; i < n; i++ {
			_, err := store.AppendTurn(ctx, &ledger.Turn{
				Channel:   "discord",
				Author:    "user",
				Content:   fmt.Sprintf("turn %d", i),
				CreatedAt: start.Add(time.Duration(i) * time.Minute),
			})
			Expect(err).NotTo(HaveOccurred())
		}
	}

	Describe("ConversationContext", func() {
		It("rejects a negative budget before touching storage", func() {
			_, err := nav.ConversationContext(ctx, -1)
			var verr *history.ValidationError
			Expect(err).To(BeAssignableToTypeOf(verr))
		})

		It("returns an empty bundle for a zero budget", func() {
			appendTurns(10, base)
			bundle, err := nav.ConversationContext(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(bundle.Turns).To(BeEmpty())
			Expect(bundle.Summaries).To(BeEmpty())
		})

		It("returns only raw turns when the backlog meets the budget", func() {
			appendTurns(30, base)
			bundle, err := nav.ConversationContext(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(bundle.Summaries).To(BeEmpty())
			Expect(bundle.Turns).To(HaveLen(10))
			Expect(bundle.Turns[9].Content).To(Equal("turn 29"))
		})

		It("blends summaries oldest-first when the backlog is short", func() {
			for i := 0; i < 3; i++ {
				Expect(store.PutSummary(ctx, &ledger.Summary{
					Text:      fmt.Sprintf("summary %d", i),
					SpanStart: base.Add(time.Duration(i) * time.Hour),
					SpanEnd:   base.Add(time.Duration(i)*time.Hour + 30*time.Minute),
				})).To(Succeed())
			}
			appendTurns(5, base.Add(4*time.Hour))

			bundle, err := nav.ConversationContext(ctx, 100)
			Expect(err).NotTo(HaveOccurred())
			Expect(bundle.Turns).To(HaveLen(5))
			// 95 unspent turns at ~50 per summary wants 2 summaries, the
			// most recent two, presented oldest first.
			Expect(bundle.Summaries).To(HaveLen(2))
			Expect(bundle.Summaries[0].Text).To(Equal("summary 1"))
			Expect(bundle.Summaries[1].Text).To(Equal("summary 2"))
		})

		It("survives a huge budget with little history", func() {
			appendTurns(3, base)
			bundle, err := nav.ConversationContext(ctx, 1_000_000)
			Expect(err).NotTo(HaveOccurred())
			Expect(bundle.Turns).To(HaveLen(3))
		})
	})

	Describe("TurnsSince", func() {
		It("rejects a malformed timestamp before touching storage", func() {
			_, err := nav.TurnsSince(ctx, "yesterday-ish", false, 10)
			var verr *history.ValidationError
			Expect(err).To(BeAssignableToTypeOf(verr))
			Expect(err.Error()).To(ContainSubstring("timestamp"))
		})

		It("returns turns strictly after the timestamp, oldest first", func() {
			appendTurns(5, base)
			bundle, err := nav.TurnsSince(ctx, base.Add(time.Minute).Format(time.RFC3339), false, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(bundle.Turns).To(HaveLen(3))
			Expect(bundle.Turns[0].Content).To(Equal("turn 2"))
		})

		It("includes summaries whose spans end after the timestamp", func() {
			Expect(store.PutSummary(ctx, &ledger.Summary{
				Text:    "old",
				SpanEnd: base.Add(-time.Hour),
			})).To(Succeed())
			Expect(store.PutSummary(ctx, &ledger.Summary{
				Text:    "recent",
				SpanEnd: base.Add(time.Hour),
			})).To(Succeed())

			bundle, err := nav.TurnsSince(ctx, base.Format(time.RFC3339), true, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(bundle.Summaries).To(HaveLen(1))
			Expect(bundle.Summaries[0].Text).To(Equal("recent"))
		})
	})

	Describe("TurnsAround", func() {
		It("splits a 40-turn window evenly at ratio 0.5", func() {
			appendTurns(100, base)
			anchor := base.Add(49 * time.Minute) // turn 49

			turns, err := nav.TurnsAround(ctx, anchor.Format(time.RFC3339), 40, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(40))
			// 20 at or before the anchor, 20 strictly after, chronological.
			Expect(turns[0].Content).To(Equal("turn 30"))
			Expect(turns[19].Content).To(Equal("turn 49"))
			Expect(turns[20].Content).To(Equal("turn 50"))
			Expect(turns[39].Content).To(Equal("turn 69"))
		})

		It("clamps the ratio into [0,1]", func() {
			appendTurns(20, base)
			anchor := base.Add(10 * time.Minute)

			turns, err := nav.TurnsAround(ctx, anchor.Format(time.RFC3339), 4, 7.5)
			Expect(err).NotTo(HaveOccurred())
			// Ratio clamps to 1: the whole window lands at or before the anchor.
			Expect(turns).To(HaveLen(4))
			Expect(turns[3].Content).To(Equal("turn 10"))

			turns, err = nav.TurnsAround(ctx, anchor.Format(time.RFC3339), 4, -2)
			Expect(err).NotTo(HaveOccurred())
			// Ratio clamps to 0: the whole window is strictly after.
			Expect(turns).To(HaveLen(4))
			Expect(turns[0].Content).To(Equal("turn 11"))
		})

		It("returns nothing for a zero count", func() {
			appendTurns(5, base)
			turns, err := nav.TurnsAround(ctx, base.Format(time.RFC3339), 0, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(BeEmpty())
		})

		It("rejects a negative count", func() {
			_, err := nav.TurnsAround(ctx, base.Format(time.RFC3339), -5, 0.5)
			var verr *history.ValidationError
			Expect(err).To(BeAssignableToTypeOf(verr))
		})
	})
})
