package embeddings_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/embeddings"
)

func TestEmbeddings(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Embeddings Suite")
}

type stubEmbedder struct {
	embedding []float32
	err       error
	calls     int
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	s.calls++
	return s.embedding, s.err
}

func (s *stubEmbedder) Close() error { return nil }

var _ = Describe("Fallback", func() {
	It("returns the primary embedding without touching the secondary", func() {
		primary := &stubEmbedder{embedding: []float32{1, 2}}
		secondary := &stubEmbedder{embedding: []float32{3, 4}}
		f := embeddings.NewFallback(primary, secondary, zap.NewNop())

		embedding, err := f.Embed(context.Background(), "text")
		Expect(err).NotTo(HaveOccurred())
		Expect(embedding).To(Equal([]float32{1, 2}))
		Expect(secondary.calls).To(BeZero())
	})

	It("falls through to the secondary when the primary fails", func() {
		primary := &stubEmbedder{err: errors.New("connection refused")}
		secondary := &stubEmbedder{embedding: []float32{3, 4}}
		f := embeddings.NewFallback(primary, secondary, zap.NewNop())

		embedding, err := f.Embed(context.Background(), "text")
		Expect(err).NotTo(HaveOccurred())
		Expect(embedding).To(Equal([]float32{3, 4}))
	})

	It("returns an error only when both tiers fail", func() {
		primary := &stubEmbedder{err: errors.New("primary down")}
		secondary := &stubEmbedder{err: errors.New("secondary down")}
		f := embeddings.NewFallback(primary, secondary, zap.NewNop())

		_, err := f.Embed(context.Background(), "text")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("primary down"))
		Expect(err.Error()).To(ContainSubstring("secondary down"))
	})

	It("returns the primary error directly when no secondary is configured", func() {
		primaryErr := errors.New("primary down")
		f := embeddings.NewFallback(&stubEmbedder{err: primaryErr}, nil, zap.NewNop())

		_, err := f.Embed(context.Background(), "text")
		Expect(err).To(MatchError(primaryErr))
	})
})
