package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/ambient/pkg/logger"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("New", func() {
	It("writes to the provided writer", func() {
		var buf bytes.Buffer
		log := logger.New(logger.WithWriters(&buf))

		log.Info("hello")
		Expect(log.Sync()).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("hello"))
	})

	It("suppresses debug logs by default", func() {
		var buf bytes.Buffer
		log := logger.New(logger.WithWriters(&buf))

		log.Debug("quiet")
		Expect(buf.String()).To(BeEmpty())
	})

	It("emits debug logs when debug is enabled", func() {
		var buf bytes.Buffer
		log := logger.New(logger.WithDebug(true), logger.WithWriters(&buf))

		log.Debug("loud")
		Expect(buf.String()).To(ContainSubstring("loud"))
	})

	It("emits valid JSON records with the JSON encoder", func() {
		var buf bytes.Buffer
		log := logger.New(logger.WithJSON(true), logger.WithWriters(&buf))

		log.Info("structured", zap.String("key", "value"))

		var record map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
		Expect(record["msg"]).To(Equal("structured"))
		Expect(record["key"]).To(Equal("value"))
	})

	It("fans out to multiple writers", func() {
		var a, b bytes.Buffer
		log := logger.New(logger.WithWriters(&a, &b))

		log.Info("both")
		Expect(a.String()).To(ContainSubstring("both"))
		Expect(b.String()).To(ContainSubstring("both"))
	})
})
