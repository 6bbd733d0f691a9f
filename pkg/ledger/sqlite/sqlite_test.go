package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ambient/pkg/ledger"
	"github.com/papercomputeco/ambient/pkg/ledger/sqlite"
)

func TestSQLiteLedger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLite Ledger Suite")
}

var _ = Describe("Driver", func() {
	var (
		driver *sqlite.Driver
		ctx    context.Context
		base   time.Time
	)

	appendTurn := func(content string, createdAt time.Time, externalID string) *ledger.Turn {
		turn := &ledger.Turn{
			ExternalID: externalID,
			Channel:    "general",
			Author:     "alice",
			Content:    content,
			CreatedAt:  createdAt,
		}
		inserted, err := driver.AppendTurn(ctx, turn)
		Expect(err).NotTo(HaveOccurred())
		Expect(inserted).To(BeTrue())
		return turn
	}

	BeforeEach(func() {
		ctx = context.Background()
		base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		var err error
		driver, err = sqlite.NewDriver(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	Describe("NewDriver", func() {
		It("requires a database path", func() {
			_, err := sqlite.NewDriver(ctx, "")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("AppendTurn", func() {
		It("assigns monotonic IDs in arrival order", func() {
			first := appendTurn("one", base, "")
			second := appendTurn("two", base.Add(time.Second), "")

			Expect(second.ID).To(BeNumerically(">", first.ID))
		})

		It("skips redelivered turns with a known external ID", func() {
			appendTurn("original", base, "msg-1")

			dup := &ledger.Turn{
				ExternalID: "msg-1",
				Channel:    "general",
				Author:     "alice",
				Content:    "redelivered",
				CreatedAt:  base.Add(time.Minute),
			}
			inserted, err := driver.AppendTurn(ctx, dup)
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(BeFalse())

			count, err := driver.CountTurnsSince(ctx, base.Add(-time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})

		It("allows many turns without an external ID", func() {
			appendTurn("one", base, "")
			appendTurn("two", base.Add(time.Second), "")

			count, err := driver.CountTurnsSince(ctx, base.Add(-time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})
	})

	Describe("turn range queries", func() {
		BeforeEach(func() {
			for i := 0; i < 10; i++ {
				appendTurn("turn", base.Add(time.Duration(i)*time.Minute), "")
			}
		})

		It("returns turns strictly after the cutoff, oldest first", func() {
			turns, err := driver.TurnsSince(ctx, base.Add(5*time.Minute), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(4))
			Expect(turns[0].CreatedAt).To(Equal(base.Add(6 * time.Minute)))
			Expect(turns[3].CreatedAt).To(Equal(base.Add(9 * time.Minute)))
		})

		It("caps TurnsSince when a limit is given", func() {
			turns, err := driver.TurnsSince(ctx, base.Add(-time.Hour), 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(3))
		})

		It("returns the newest turns before a cutoff, oldest first", func() {
			turns, err := driver.TurnsBefore(ctx, base.Add(5*time.Minute), 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(3))
			Expect(turns[0].CreatedAt).To(Equal(base.Add(3 * time.Minute)))
			Expect(turns[2].CreatedAt).To(Equal(base.Add(5 * time.Minute)))
		})

		It("returns a half-open window for TurnsBetween", func() {
			turns, err := driver.TurnsBetween(ctx, base.Add(2*time.Minute), base.Add(5*time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(3))
			Expect(turns[0].CreatedAt).To(Equal(base.Add(3 * time.Minute)))
			Expect(turns[2].CreatedAt).To(Equal(base.Add(5 * time.Minute)))
		})

		It("returns the newest N turns oldest first for RecentTurns", func() {
			turns, err := driver.RecentTurns(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(turns).To(HaveLen(2))
			Expect(turns[0].CreatedAt).To(Equal(base.Add(8 * time.Minute)))
			Expect(turns[1].CreatedAt).To(Equal(base.Add(9 * time.Minute)))
		})
	})

	Describe("summaries", func() {
		It("returns ErrNoSummaries when empty", func() {
			_, err := driver.LatestSummary(ctx)
			Expect(err).To(MatchError(ledger.ErrNoSummaries))
		})

		It("returns the summary with the newest span end", func() {
			older := &ledger.Summary{
				Text:      "earlier digest",
				SpanStart: base,
				SpanEnd:   base.Add(time.Hour),
			}
			newer := &ledger.Summary{
				Text:      "later digest",
				SpanStart: base.Add(time.Hour),
				SpanEnd:   base.Add(2 * time.Hour),
			}
			Expect(driver.PutSummary(ctx, older)).To(Succeed())
			Expect(driver.PutSummary(ctx, newer)).To(Succeed())

			latest, err := driver.LatestSummary(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.Text).To(Equal("later digest"))
			Expect(latest.SpanEnd).To(Equal(base.Add(2 * time.Hour)))
		})

		It("returns recent summaries newest first", func() {
			for i := 0; i < 3; i++ {
				Expect(driver.PutSummary(ctx, &ledger.Summary{
					Text:      "digest",
					SpanStart: base.Add(time.Duration(i) * time.Hour),
					SpanEnd:   base.Add(time.Duration(i+1) * time.Hour),
				})).To(Succeed())
			}

			summaries, err := driver.RecentSummaries(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(summaries).To(HaveLen(2))
			Expect(summaries[0].SpanEnd).To(Equal(base.Add(3 * time.Hour)))
			Expect(summaries[1].SpanEnd).To(Equal(base.Add(2 * time.Hour)))
		})
	})

	Describe("claims", func() {
		newClaim := func(holder string) *ledger.Claim {
			now := time.Now()
			return &ledger.Claim{
				Channel:    "general",
				ExternalID: "msg-7",
				HolderID:   holder,
				ClaimedAt:  now,
				ExpiresAt:  now.Add(30 * time.Second),
			}
		}

		It("admits exactly one of two concurrent claimants", func() {
			var wg sync.WaitGroup
			results := make([]bool, 2)

			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					defer GinkgoRecover()
					ok, err := driver.InsertClaim(ctx, newClaim("holder-"+string(rune('a'+i))))
					Expect(err).NotTo(HaveOccurred())
					results[i] = ok
				}(i)
			}
			wg.Wait()

			Expect(results[0] != results[1]).To(BeTrue(),
				"exactly one concurrent claim should win")
		})

		It("only releases a claim for its holder", func() {
			ok, err := driver.InsertClaim(ctx, newClaim("holder-a"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			Expect(driver.DeleteClaim(ctx, "general", "msg-7", "holder-b")).To(Succeed())

			ok, err = driver.InsertClaim(ctx, newClaim("holder-c"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse(), "claim should still be held after foreign release")

			Expect(driver.DeleteClaim(ctx, "general", "msg-7", "holder-a")).To(Succeed())

			ok, err = driver.InsertClaim(ctx, newClaim("holder-c"))
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("purges only expired claims", func() {
			now := time.Now()
			live := &ledger.Claim{
				Channel: "general", ExternalID: "live", HolderID: "h",
				ClaimedAt: now, ExpiresAt: now.Add(time.Minute),
			}
			dead := &ledger.Claim{
				Channel: "general", ExternalID: "dead", HolderID: "h",
				ClaimedAt: now.Add(-time.Minute), ExpiresAt: now.Add(-time.Second),
			}
			for _, c := range []*ledger.Claim{live, dead} {
				ok, err := driver.InsertClaim(ctx, c)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
			}

			purged, err := driver.PurgeExpiredClaims(ctx, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(purged).To(Equal(1))

			ok, err := driver.InsertClaim(ctx, &ledger.Claim{
				Channel: "general", ExternalID: "dead", HolderID: "h2",
				ClaimedAt: now, ExpiresAt: now.Add(time.Minute),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue(), "purged key should be claimable again")
		})
	})

	Describe("sessions", func() {
		It("returns ErrNoSession for an unknown channel", func() {
			_, err := driver.Session(ctx, "nowhere")
			Expect(err).To(MatchError(ledger.ErrNoSession))
		})

		It("refreshes activity without moving entered_at", func() {
			Expect(driver.UpsertSession(ctx, "general", "h1", base)).To(Succeed())
			Expect(driver.UpsertSession(ctx, "general", "h1", base.Add(time.Minute))).To(Succeed())

			sess, err := driver.Session(ctx, "general")
			Expect(err).NotTo(HaveOccurred())
			Expect(sess.EnteredAt).To(Equal(base))
			Expect(sess.LastActivityAt).To(Equal(base.Add(time.Minute)))
		})

		It("purges idle sessions", func() {
			Expect(driver.UpsertSession(ctx, "idle", "h1", base)).To(Succeed())
			Expect(driver.UpsertSession(ctx, "busy", "h1", base.Add(time.Hour))).To(Succeed())

			purged, err := driver.PurgeIdleSessions(ctx, base.Add(30*time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(purged).To(Equal(1))

			_, err = driver.Session(ctx, "idle")
			Expect(err).To(MatchError(ledger.ErrNoSession))

			_, err = driver.Session(ctx, "busy")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("anchors", func() {
		It("upserts and bumps the modification time", func() {
			Expect(driver.PutAnchor(ctx, "identity", "v1")).To(Succeed())

			anchors, err := driver.Anchors(ctx, []string{"identity"})
			Expect(err).NotTo(HaveOccurred())
			Expect(anchors).To(HaveLen(1))
			firstUpdate := anchors[0].UpdatedAt

			Expect(driver.PutAnchor(ctx, "identity", "v2")).To(Succeed())

			anchors, err = driver.Anchors(ctx, []string{"identity"})
			Expect(err).NotTo(HaveOccurred())
			Expect(anchors[0].Body).To(Equal("v2"))
			Expect(anchors[0].UpdatedAt).To(BeTemporally(">=", firstUpdate))
		})

		It("skips missing names", func() {
			Expect(driver.PutAnchor(ctx, "identity", "body")).To(Succeed())

			anchors, err := driver.Anchors(ctx, []string{"missing", "identity"})
			Expect(err).NotTo(HaveOccurred())
			Expect(anchors).To(HaveLen(1))
			Expect(anchors[0].Name).To(Equal("identity"))
		})
	})
})
