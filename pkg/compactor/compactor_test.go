package compactor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/compactor"
	"github.com/papercomputeco/ambient/pkg/ledger"
	"github.com/papercomputeco/ambient/pkg/ledger/inmemory"
)

func TestCompactor(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Compactor Suite")
}

type countingSummarizer struct {
	calls int
	spans [][]*ledger.Turn
	err   error
}

func (s *countingSummarizer) Summarize(_ context.Context, turns []*ledger.Turn) (string, error) {
	s.calls++
	s.spans = append(s.spans, turns)
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("summary of %d turns", len(turns)), nil
}

var _ = Describe("Compactor", func() {
	var (
		ctx        context.Context
		store      *inmemory.Driver
		summarizer *countingSummarizer
		now        time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		summarizer = &countingSummarizer{}
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	appendTurns := func(n int, start time.Time, gap time.Duration) {
		for i := 0; i < n; i++ {
			ok, err := store.AppendTurn(ctx, &ledger.Turn{
				Channel:   "discord",
				Author:    "user",
				Content:   fmt.Sprintf("turn %d", i),
				CreatedAt: start.Add(time.Duration(i) * gap),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		}
	}

	newCompactor := func(opts ...compactor.Option) *compactor.Compactor {
		opts = append(opts, compactor.WithClock(func() time.Time { return now }))
		return compactor.New(store, summarizer, zap.NewNop(), opts...)
	}

	It("summarizes the oldest threshold turns and leaves the rest live", func() {
		appendTurns(70, now.Add(-70*time.Minute), time.Minute)
		c := newCompactor(compactor.WithTurnThreshold(50))

		summary, err := c.Compact(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).NotTo(BeNil())
		Expect(summarizer.spans[0]).To(HaveLen(50))
		Expect(summary.SpanStart).To(Equal(summarizer.spans[0][0].CreatedAt))
		Expect(summary.SpanEnd).To(Equal(summarizer.spans[0][49].CreatedAt))

		// The 20 newest turns stay unsummarized.
		remaining, err := store.TurnsSince(ctx, summary.SpanEnd, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(remaining).To(HaveLen(20))

		// An immediate second run sees a 20-turn backlog and does nothing.
		summary, err = c.Compact(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(BeNil())
		Expect(summarizer.calls).To(Equal(1))
	})

	It("produces contiguous non-overlapping spans across runs", func() {
		appendTurns(10, now.Add(-100*time.Minute), time.Minute)
		c := newCompactor(compactor.WithTurnThreshold(5))

		first, err := c.Compact(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).NotTo(BeNil())

		second, err := c.Compact(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).NotTo(BeNil())

		Expect(second.SpanStart.After(first.SpanEnd)).To(BeTrue())
		Expect(summarizer.spans[1][0].Content).To(Equal("turn 5"))
	})

	It("triggers on age even below the turn threshold", func() {
		appendTurns(3, now.Add(-3*time.Hour), time.Minute)
		c := newCompactor(
			compactor.WithTurnThreshold(50),
			compactor.WithMaxAge(2*time.Hour),
		)

		summary, err := c.Compact(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).NotTo(BeNil())
		Expect(summarizer.spans[0]).To(HaveLen(3))
	})

	It("does nothing when neither trigger fires", func() {
		appendTurns(10, now.Add(-10*time.Minute), time.Minute)
		c := newCompactor(
			compactor.WithTurnThreshold(50),
			compactor.WithMaxAge(2*time.Hour),
		)

		summary, err := c.Compact(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(BeNil())
		Expect(summarizer.calls).To(BeZero())
	})

	It("is disabled when both thresholds are zero", func() {
		appendTurns(100, now.Add(-24*time.Hour), time.Minute)
		c := newCompactor()

		summary, err := c.Compact(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(BeNil())
		Expect(summarizer.calls).To(BeZero())
	})

	It("does nothing on an empty backlog", func() {
		c := newCompactor(compactor.WithTurnThreshold(1))
		summary, err := c.Compact(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary).To(BeNil())
	})

	It("records the distinct channels of the span", func() {
		for i, ch := range []string{"slack", "discord", "slack"} {
			_, err := store.AppendTurn(ctx, &ledger.Turn{
				Channel:   ch,
				Author:    "user",
				Content:   "hi",
				CreatedAt: now.Add(time.Duration(i-10) * time.Minute),
			})
			Expect(err).NotTo(HaveOccurred())
		}

		c := newCompactor(compactor.WithTurnThreshold(3))
		summary, err := c.Compact(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Channels).To(Equal("discord,slack"))
	})

	It("surfaces summarizer failures without writing a summary", func() {
		appendTurns(5, now.Add(-time.Hour), time.Minute)
		summarizer.err = errors.New("model down")
		c := newCompactor(compactor.WithTurnThreshold(5))

		_, err := c.Compact(ctx)
		Expect(err).To(HaveOccurred())

		_, err = store.LatestSummary(ctx)
		Expect(err).To(MatchError(ledger.ErrNoSummaries))
	})
})

var _ = Describe("Fallback summarizer", func() {
	It("uses the digest when the primary fails", func() {
		primary := &countingSummarizer{err: errors.New("model down")}
		f := compactor.NewFallback(primary, compactor.NewDigest(), zap.NewNop())

		now := time.Now().UTC()
		text, err := f.Summarize(context.Background(), []*ledger.Turn{
			{Author: "user", Content: "hello there", CreatedAt: now},
			{Author: "agent", Content: "hi", CreatedAt: now.Add(time.Second)},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(ContainSubstring("2 turns"))
		Expect(text).To(ContainSubstring("user: hello there"))
	})
})
