package dotdir_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ambient/pkg/dotdir"
)

func TestDotdir(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dotdir Suite")
}

var _ = Describe("Manager", func() {
	var m *dotdir.Manager

	BeforeEach(func() {
		m = dotdir.NewManager()
	})

	It("uses the override directory when provided", func() {
		override := filepath.Join(GinkgoT().TempDir(), "custom")

		target, err := m.Target(override)
		Expect(err).NotTo(HaveOccurred())
		Expect(target).To(Equal(override))

		info, err := os.Stat(target)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("creates the directory if it does not exist", func() {
		override := filepath.Join(GinkgoT().TempDir(), "a", "b")

		target, err := m.Target(override)
		Expect(err).NotTo(HaveOccurred())

		info, err := os.Stat(target)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("derives the ledger path inside the dotdir", func() {
		override := GinkgoT().TempDir()

		path, err := m.DefaultLedgerPath(override)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(override, "ledger.db")))
	})

	It("derives the vector path inside the dotdir", func() {
		override := GinkgoT().TempDir()

		path, err := m.DefaultVectorPath(override)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(override, "vectors.db")))
	})
})
