package maintain_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/curation"
	"github.com/papercomputeco/ambient/pkg/ledger"
	"github.com/papercomputeco/ambient/pkg/ledger/inmemory"
	"github.com/papercomputeco/ambient/pkg/maintain"
)

func TestMaintain(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Maintain Suite")
}

type stubCompacter struct{ calls int }

func (s *stubCompacter) Compact(context.Context) (*ledger.Summary, error) {
	s.calls++
	return nil, nil
}

type stubCurator struct {
	calls   int
	queries []string
	dryRun  bool
}

func (s *stubCurator) Curate(_ context.Context, queries []string, dryRun bool) (*curation.Report, error) {
	s.calls++
	s.queries = queries
	s.dryRun = dryRun
	return &curation.Report{DryRun: dryRun}, nil
}

var _ = Describe("Runner", func() {
	var (
		ctx       context.Context
		store     *inmemory.Driver
		compacter *stubCompacter
		curator   *stubCurator
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		compacter = &stubCompacter{}
		curator = &stubCurator{}
	})

	It("schedules compaction, claim purge, session expiry, and curation", func() {
		r := maintain.NewRunner(store, compacter, curator, maintain.Config{
			CurationSchedule: "0 3 * * *",
			SessionTimeout:   30 * time.Minute,
		}, zap.NewNop())

		Expect(r.Start()).To(Succeed())
		defer r.Stop()

		Expect(r.Jobs()).To(Equal(4))
	})

	It("omits curation and session expiry when disabled", func() {
		r := maintain.NewRunner(store, compacter, nil, maintain.Config{}, zap.NewNop())

		Expect(r.Start()).To(Succeed())
		defer r.Stop()

		Expect(r.Jobs()).To(Equal(2))
	})

	It("rejects a malformed curation schedule", func() {
		r := maintain.NewRunner(store, compacter, curator, maintain.Config{
			CurationSchedule: "every day at three",
		}, zap.NewNop())

		Expect(r.Start()).To(HaveOccurred())
	})

	It("purges expired claims on the claim job", func() {
		now := time.Now().UTC()
		won, err := store.InsertClaim(ctx, &ledger.Claim{
			Channel:    "discord",
			ExternalID: "msg-1",
			HolderID:   "h1",
			ClaimedAt:  now.Add(-time.Minute),
			ExpiresAt:  now.Add(-30 * time.Second),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(won).To(BeTrue())

		r := maintain.NewRunner(store, compacter, curator, maintain.Config{}, zap.NewNop())
		r.PurgeClaims()

		won, err = store.InsertClaim(ctx, &ledger.Claim{
			Channel:    "discord",
			ExternalID: "msg-1",
			HolderID:   "h2",
			ClaimedAt:  now,
			ExpiresAt:  now.Add(30 * time.Second),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(won).To(BeTrue())
	})

	It("expires only sessions idle past the timeout", func() {
		now := time.Now().UTC()
		Expect(store.UpsertSession(ctx, "idle", "h1", now.Add(-time.Hour))).To(Succeed())
		Expect(store.UpsertSession(ctx, "live", "h1", now)).To(Succeed())

		r := maintain.NewRunner(store, compacter, curator, maintain.Config{
			SessionTimeout: 30 * time.Minute,
		}, zap.NewNop())
		r.PurgeSessions()

		_, err := store.Session(ctx, "idle")
		Expect(err).To(MatchError(ledger.ErrNoSession))
		_, err = store.Session(ctx, "live")
		Expect(err).NotTo(HaveOccurred())
	})

	It("passes the configured queries and dry-run flag to curation", func() {
		r := maintain.NewRunner(store, compacter, curator, maintain.Config{
			CurationQueries: []string{"people", "projects"},
			CurationDryRun:  true,
		}, zap.NewNop())

		r.RunCuration()

		Expect(curator.calls).To(Equal(1))
		Expect(curator.queries).To(Equal([]string{"people", "projects"}))
		Expect(curator.dryRun).To(BeTrue())
	})

	It("runs compaction through the job entrypoint", func() {
		r := maintain.NewRunner(store, compacter, curator, maintain.Config{}, zap.NewNop())
		r.RunCompaction()
		Expect(compacter.calls).To(Equal(1))
	})
})
