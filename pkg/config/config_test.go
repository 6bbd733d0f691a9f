package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/ambient/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).NotTo(BeNil())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Version).To(Equal(defaults.Version))
			Expect(cfg.Storage.Driver).To(Equal(defaults.Storage.Driver))
			Expect(cfg.VectorStore.Provider).To(Equal(defaults.VectorStore.Provider))
			Expect(cfg.Embedding.Provider).To(Equal(defaults.Embedding.Provider))
			Expect(cfg.Embedding.Target).To(Equal(defaults.Embedding.Target))
			Expect(cfg.Embedding.Model).To(Equal(defaults.Embedding.Model))
			Expect(cfg.Embedding.Dimensions).To(Equal(defaults.Embedding.Dimensions))
			Expect(cfg.Recall.CharBudget).To(Equal(defaults.Recall.CharBudget))
			Expect(cfg.Claims.TTLSeconds).To(Equal(defaults.Claims.TTLSeconds))
			Expect(cfg.Compaction.TurnThreshold).To(Equal(defaults.Compaction.TurnThreshold))
			Expect(cfg.Facts.HalfLifeDays).To(Equal(defaults.Facts.HalfLifeDays))
		})

		It("loads a valid config file", func() {
			data := `version = 0

[storage]
driver = "postgres"
postgres_dsn = "postgres://ambient@localhost/ambient"

[recall]
char_budget = 4000

[embedding]
dimensions = 768
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).NotTo(BeNil())
			Expect(cfg.Version).To(Equal(0))
			Expect(cfg.Storage.Driver).To(Equal("postgres"))
			Expect(cfg.Storage.PostgresDSN).To(Equal("postgres://ambient@localhost/ambient"))
			Expect(cfg.Recall.CharBudget).To(Equal(4000))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
		})

		It("fills unset fields from defaults", func() {
			data := `[graph]
uri = "bolt://graph.internal:7687"
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Graph.URI).To(Equal("bolt://graph.internal:7687"))

			defaults := config.NewDefaultConfig()
			Expect(cfg.Graph.Username).To(Equal(defaults.Graph.Username))
			Expect(cfg.Recall.LimitPerSource).To(Equal(defaults.Recall.LimitPerSource))
			Expect(cfg.Embedding.Model).To(Equal(defaults.Embedding.Model))
		})

		It("rejects an unsupported version", func() {
			data := `version = 99`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported config version"))
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips a modified config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Storage.SQLitePath = "/tmp/ambient.db"
			cfg.Claims.TTLSeconds = 45
			cfg.EventStream.Provider = "kafka"
			cfg.EventStream.Brokers = []string{"kafka-1:9092", "kafka-2:9092"}

			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Storage.SQLitePath).To(Equal("/tmp/ambient.db"))
			Expect(loaded.Claims.TTLSeconds).To(Equal(45))
			Expect(loaded.EventStream.Provider).To(Equal("kafka"))
			Expect(loaded.EventStream.Brokers).To(Equal([]string{"kafka-1:9092", "kafka-2:9092"}))
		})

		It("rejects a nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(HaveOccurred())
		})
	})

	Describe("config keys", func() {
		It("gets and sets values through the dotted-key registry", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("recall.char_budget", "2500")).To(Succeed())
			got, err := c.GetConfigValue("recall.char_budget")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("2500"))

			Expect(c.SetConfigValue("curation.dry_run", "true")).To(Succeed())
			got, err = c.GetConfigValue("curation.dry_run")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("true"))

			Expect(c.SetConfigValue("eventstream.brokers", "a:9092, b:9092")).To(Succeed())
			got, err = c.GetConfigValue("eventstream.brokers")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("a:9092,b:9092"))
		})

		It("rejects unknown keys", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("bogus.key", "x")).To(HaveOccurred())
			_, err = c.GetConfigValue("bogus.key")
			Expect(err).To(HaveOccurred())
		})

		It("rejects malformed numeric values", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SetConfigValue("claims.ttl_seconds", "soon")).To(HaveOccurred())
		})

		It("lists every registered key exactly once", func() {
			keys := config.ValidConfigKeys()
			seen := make(map[string]int)
			for _, k := range keys {
				seen[k]++
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
			for k, n := range seen {
				Expect(n).To(Equal(1), "duplicate key %s", k)
			}
			Expect(keys).To(ContainElement("facts.half_life_days"))
			Expect(keys).To(ContainElement("compaction.max_age_minutes"))
		})
	})

	Describe("viper precedence", func() {
		It("prefers env vars over file values", func() {
			data := `[recall]
char_budget = 1000
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			os.Setenv("AMBIENT_RECALL_CHAR_BUDGET", "9000")
			defer os.Unsetenv("AMBIENT_RECALL_CHAR_BUDGET")

			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.GetInt("recall.char_budget")).To(Equal(9000))
		})

		It("prefers bound flags over everything", func() {
			os.Setenv("AMBIENT_CLAIMS_TTL_SECONDS", "60")
			defer os.Unsetenv("AMBIENT_CLAIMS_TTL_SECONDS")

			cmd := &cobra.Command{Use: "test"}
			var ttl int
			config.AddIntFlag(cmd, config.DefaultFlags, config.FlagClaimTTL, &ttl)
			Expect(cmd.Flags().Set("claim-ttl", "15")).To(Succeed())

			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, []string{config.FlagClaimTTL})

			Expect(v.GetInt("claims.ttl_seconds")).To(Equal(15))
		})

		It("falls back to defaults when nothing is set", func() {
			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			defaults := config.NewDefaultConfig()
			Expect(v.GetInt("compaction.turn_threshold")).To(Equal(defaults.Compaction.TurnThreshold))
			Expect(v.GetString("embedding.model")).To(Equal(defaults.Embedding.Model))
			Expect(v.GetBool("facts.diversity_dedup")).To(BeTrue())
		})
	})
})
