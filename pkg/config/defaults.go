package config

const (
	defaultStorageDriver = "sqlite"

	defaultVectorProvider = "sqlite"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultGraphURI      = "bolt://localhost:7687"
	defaultGraphUsername = "neo4j"
	defaultGraphDatabase = "neo4j"

	defaultRecallCharBudget       = 6000
	defaultRecallLimitPerSource   = 5
	defaultRecallStartupAnchors   = 3
	defaultRecallStartupSummaries = 2
	defaultRecallSourceTimeoutMS  = 2000

	defaultClaimTTLSeconds = 30

	defaultCompactionTurnThreshold = 50
	defaultCompactionMaxAgeMinutes = 120

	defaultSessionTimeoutMinutes = 30

	defaultCurationSchedule = "0 3 * * *"

	defaultFactsHalfLifeDays = 14.0

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "ambient.turns"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Graph: GraphConfig{
			URI:      defaultGraphURI,
			Username: defaultGraphUsername,
			Database: defaultGraphDatabase,
		},
		Recall: RecallConfig{
			CharBudget:       defaultRecallCharBudget,
			LimitPerSource:   defaultRecallLimitPerSource,
			StartupAnchors:   defaultRecallStartupAnchors,
			StartupSummaries: defaultRecallStartupSummaries,
			SourceTimeoutMS:  defaultRecallSourceTimeoutMS,
		},
		Claims: ClaimsConfig{
			TTLSeconds: defaultClaimTTLSeconds,
		},
		Compaction: CompactionConfig{
			TurnThreshold: defaultCompactionTurnThreshold,
			MaxAgeMinutes: defaultCompactionMaxAgeMinutes,
		},
		Session: SessionConfig{
			TimeoutMinutes: defaultSessionTimeoutMinutes,
		},
		Curation: CurationConfig{
			Schedule: defaultCurationSchedule,
		},
		Facts: FactsConfig{
			HalfLifeDays:   defaultFactsHalfLifeDays,
			DiversityDedup: true,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
