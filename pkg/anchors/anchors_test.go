package anchors_test

import (
	"context"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/anchors"
	"github.com/papercomputeco/ambient/pkg/ledger/inmemory"
	"github.com/papercomputeco/ambient/pkg/vector"
)

func TestAnchors(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Anchors Suite")
}

// stubEmbedder hands out a fixed embedding per text and can fail on demand.
type stubEmbedder struct {
	byText map[string][]float32
	failOn string
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.failOn != "" && text == s.failOn {
		return nil, fmt.Errorf("embedder down for %q", text)
	}
	if emb, ok := s.byText[text]; ok {
		return emb, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (s *stubEmbedder) Close() error { return nil }

// stubVectors records added documents and replays canned query results.
type stubVectors struct {
	added   map[string][]float32
	results []vector.QueryResult
}

func newStubVectors() *stubVectors {
	return &stubVectors{added: make(map[string][]float32)}
}

func (s *stubVectors) Add(_ context.Context, docs []vector.Document) error {
	for _, d := range docs {
		s.added[d.ID] = d.Embedding
	}
	return nil
}

func (s *stubVectors) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	if topK < len(s.results) {
		return s.results[:topK], nil
	}
	return s.results, nil
}

func (s *stubVectors) Get(_ context.Context, _ []string) ([]vector.Document, error) {
	return nil, nil
}

func (s *stubVectors) Delete(_ context.Context, _ []string) error { return nil }
func (s *stubVectors) Close() error                               { return nil }

var _ = Describe("Index", func() {
	var (
		ctx      context.Context
		store    *inmemory.Driver
		vectors  *stubVectors
		embedder *stubEmbedder
		index    *anchors.Index
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		vectors = newStubVectors()
		embedder = &stubEmbedder{byText: map[string][]float32{}}
		index = anchors.NewIndex(store, vectors, embedder, zap.NewNop())
	})

	Describe("Put", func() {
		It("persists the body and the embedding", func() {
			Expect(index.Put(ctx, "owner", "Sam, engineer in Portland")).To(Succeed())

			recent, err := store.RecentAnchors(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(1))
			Expect(recent[0].Name).To(Equal("owner"))

			Expect(vectors.added).To(HaveKey("owner"))
		})

		It("rejects an empty name", func() {
			Expect(index.Put(ctx, "", "body")).To(HaveOccurred())
		})

		It("keeps the body readable when embedding fails", func() {
			embedder.failOn = "unreachable body"

			Expect(index.Put(ctx, "style", "unreachable body")).To(Succeed())

			recent, err := store.RecentAnchors(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(1))
			Expect(vectors.added).NotTo(HaveKey("style"))
		})

		It("replaces the body when writing an existing name", func() {
			Expect(index.Put(ctx, "owner", "first body")).To(Succeed())
			Expect(index.Put(ctx, "owner", "second body")).To(Succeed())

			recent, err := store.RecentAnchors(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(1))
			Expect(recent[0].Body).To(Equal("second body"))
		})
	})

	Describe("Search", func() {
		It("attaches similarity scores to the stored bodies", func() {
			Expect(index.Put(ctx, "owner", "Sam, engineer")).To(Succeed())
			Expect(index.Put(ctx, "style", "short answers")).To(Succeed())

			vectors.results = []vector.QueryResult{
				{Document: vector.Document{ID: "style"}, Score: 0.91},
				{Document: vector.Document{ID: "owner"}, Score: 0.44},
			}

			hits, err := index.Search(ctx, "formatting rules", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(2))

			byName := map[string]float32{}
			for _, h := range hits {
				byName[h.Anchor.Name] = h.Score
			}
			Expect(byName["style"]).To(BeNumerically("~", 0.91, 1e-6))
			Expect(byName["owner"]).To(BeNumerically("~", 0.44, 1e-6))
		})

		It("propagates embedder failures", func() {
			embedder.failOn = "down"

			_, err := index.Search(ctx, "down", 5)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Reindex", func() {
		It("re-embeds every anchor, repairing earlier failures", func() {
			embedder.failOn = "body two"
			Expect(index.Put(ctx, "one", "body one")).To(Succeed())
			Expect(index.Put(ctx, "two", "body two")).To(Succeed())
			Expect(vectors.added).NotTo(HaveKey("two"))

			embedder.failOn = ""
			count, err := index.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
			Expect(vectors.added).To(HaveKey("two"))
		})

		It("skips anchors that still fail and counts the rest", func() {
			Expect(index.Put(ctx, "one", "body one")).To(Succeed())
			Expect(index.Put(ctx, "two", "body two")).To(Succeed())

			embedder.failOn = "body two"
			count, err := index.Reindex(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})
	})
})
