package facts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/facts"
)

func TestFacts(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Facts Suite")
}

type stubGraph struct {
	edges      []*facts.Fact
	edgesErr   error
	nodes      []*facts.EntityNode
	nodesErr   error
	edgeLimits []int
	focalUUIDs []string
	nodeCalls  int
	merged     [][2]string
}

func (s *stubGraph) SearchEdges(_ context.Context, _ string, limit int, focalUUID string) ([]*facts.Fact, error) {
	s.edgeLimits = append(s.edgeLimits, limit)
	s.focalUUIDs = append(s.focalUUIDs, focalUUID)
	if s.edgesErr != nil {
		return nil, s.edgesErr
	}
	// Hand out copies so reranking never mutates the fixtures.
	out := make([]*facts.Fact, len(s.edges))
	for i, f := range s.edges {
		copied := *f
		out[i] = &copied
	}
	return out, nil
}

func (s *stubGraph) SearchNodes(context.Context, string, int) ([]*facts.EntityNode, error) {
	s.nodeCalls++
	return s.nodes, s.nodesErr
}

func (s *stubGraph) MergeNodes(_ context.Context, canonical, dup string) error {
	s.merged = append(s.merged, [2]string{canonical, dup})
	return nil
}

func (s *stubGraph) DeleteEdge(context.Context, string) error { return nil }

func (s *stubGraph) CreateFact(context.Context, string, string, string, string) error { return nil }

func (s *stubGraph) Close(context.Context) error { return nil }

func fact(uuid, subject, object string, relevance float64, validAt *time.Time) *facts.Fact {
	return &facts.Fact{
		UUID:      uuid,
		Subject:   subject,
		Predicate: "relates to",
		Object:    object,
		Text:      subject + " relates to " + object,
		ValidAt:   validAt,
		Relevance: relevance,
	}
}

func at(t time.Time) *time.Time { return &t }

var _ = Describe("Adapter", func() {
	var (
		ctx   context.Context
		graph *stubGraph
		now   time.Time
		clock func() time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		graph = &stubGraph{}
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		clock = func() time.Time { return now }
	})

	newAdapter := func(opts ...facts.AdapterOption) *facts.Adapter {
		opts = append(opts, facts.WithAdapterClock(clock))
		return facts.NewAdapter(graph, zap.NewNop(), opts...)
	}

	It("over-fetches double the requested count from the graph", func() {
		a := newAdapter()
		a.Search(ctx, "coffee", 5)
		Expect(graph.edgeLimits).To(Equal([]int{10}))
	})

	It("ranks a fresher fact above an otherwise identical older one", func() {
		graph.edges = []*facts.Fact{
			fact("old", "alice", "tea", 0.9, at(now.Add(-40*24*time.Hour))),
			fact("new", "bob", "coffee", 0.9, at(now.Add(-1*24*time.Hour))),
		}

		got := newAdapter().Search(ctx, "drinks", 2)
		Expect(got).To(HaveLen(2))
		Expect(got[0].UUID).To(Equal("new"))
		Expect(got[1].UUID).To(Equal("old"))
	})

	It("decays relevance strictly monotonically with age", func() {
		ages := []time.Duration{0, 24 * time.Hour, 7 * 24 * time.Hour, 30 * 24 * time.Hour, 365 * 24 * time.Hour}
		graph.edges = make([]*facts.Fact, len(ages))
		for i, age := range ages {
			graph.edges[i] = fact(string(rune('a'+i)), "s", "o", 1.0, at(now.Add(-age)))
		}

		got := newAdapter(facts.WithDiversityDedup(false)).Search(ctx, "q", len(ages))
		Expect(got).To(HaveLen(len(ages)))
		for i := 1; i < len(got); i++ {
			Expect(got[i].Relevance).To(BeNumerically("<", got[i-1].Relevance))
		}
	})

	It("applies the neutral multiplier to undated facts", func() {
		graph.edges = []*facts.Fact{
			fact("dated", "a", "b", 0.8, at(now)),
			fact("undated", "c", "d", 0.8, nil),
		}

		got := newAdapter().Search(ctx, "q", 2)
		Expect(got[0].UUID).To(Equal("dated"))
		Expect(got[1].UUID).To(Equal("undated"))
		Expect(got[1].Relevance).To(BeNumerically("~", 0.4, 1e-9))
	})

	It("surfaces each entity pair once before any pair repeats", func() {
		graph.edges = []*facts.Fact{
			fact("ab1", "alice", "bob", 0.9, at(now)),
			fact("ab2", "alice", "bob", 0.8, at(now)),
			fact("ab3", "bob", "alice", 0.7, at(now)),
			fact("cd1", "carol", "dave", 0.3, at(now)),
		}

		got := newAdapter().Search(ctx, "q", 3)
		Expect(got).To(HaveLen(3))
		// Primary bucket first: one fact per pair, including the reversed
		// bob/alice edge which shares alice/bob's bucket. Overflow fills
		// the remaining slot.
		Expect(got[0].UUID).To(Equal("ab1"))
		Expect(got[1].UUID).To(Equal("cd1"))
		Expect(got[2].UUID).To(Equal("ab2"))
	})

	It("returns repeats in relevance order when dedup is disabled", func() {
		graph.edges = []*facts.Fact{
			fact("ab1", "alice", "bob", 0.9, at(now)),
			fact("ab2", "alice", "bob", 0.8, at(now)),
			fact("cd1", "carol", "dave", 0.3, at(now)),
		}

		got := newAdapter(facts.WithDiversityDedup(false)).Search(ctx, "q", 3)
		Expect(got[0].UUID).To(Equal("ab1"))
		Expect(got[1].UUID).To(Equal("ab2"))
		Expect(got[2].UUID).To(Equal("cd1"))
	})

	It("returns no facts and no error when the graph is unreachable", func() {
		graph.edgesErr = errors.New("connection refused")
		got := newAdapter().Search(ctx, "q", 5)
		Expect(got).To(BeEmpty())
	})

	It("returns nothing for a non-positive count", func() {
		graph.edges = []*facts.Fact{fact("x", "a", "b", 1, at(now))}
		Expect(newAdapter().Search(ctx, "q", 0)).To(BeEmpty())
	})

	Describe("focal entity", func() {
		It("resolves once and caches the UUID within the TTL", func() {
			graph.nodes = []*facts.EntityNode{
				{UUID: "node-1", Name: "ezra", LastSeen: at(now)},
			}
			a := newAdapter(facts.WithFocalEntity("ezra"))

			a.Search(ctx, "q1", 3)
			a.Search(ctx, "q2", 3)

			Expect(graph.nodeCalls).To(Equal(1))
			Expect(graph.focalUUIDs).To(Equal([]string{"node-1", "node-1"}))
		})

		It("re-resolves after the cache TTL elapses", func() {
			graph.nodes = []*facts.EntityNode{
				{UUID: "node-1", Name: "ezra", LastSeen: at(now)},
			}
			a := newAdapter(facts.WithFocalEntity("ezra"))

			a.Search(ctx, "q1", 3)
			now = now.Add(2 * time.Hour)
			a.Search(ctx, "q2", 3)

			Expect(graph.nodeCalls).To(Equal(2))
		})

		It("proceeds without proximity bias when resolution fails", func() {
			graph.nodesErr = errors.New("graph down")
			graph.edges = []*facts.Fact{fact("x", "a", "b", 1, at(now))}
			a := newAdapter(facts.WithFocalEntity("ezra"))

			got := a.Search(ctx, "q", 3)
			Expect(got).To(HaveLen(1))
			Expect(graph.focalUUIDs).To(Equal([]string{""}))
		})

		It("merges duplicate focal nodes, keeping the most recently active", func() {
			graph.nodes = []*facts.EntityNode{
				{UUID: "stale", Name: "ezra", LastSeen: at(now.Add(-72 * time.Hour))},
				{UUID: "active", Name: "ezra", LastSeen: at(now.Add(-time.Hour))},
			}
			a := newAdapter(facts.WithFocalEntity("ezra"))

			a.Search(ctx, "q", 3)

			Expect(graph.merged).To(Equal([][2]string{{"active", "stale"}}))
			Expect(graph.focalUUIDs).To(Equal([]string{"active"}))
		})
	})
})
