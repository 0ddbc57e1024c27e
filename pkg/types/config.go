package types

// Default configuration values
const (
	DefaultCandidatePoolSize = 50
	DefaultFTSLimit          = 50
	DefaultHNSWThreshold     = 1000
	DefaultHNSWSearchK       = 100
	DefaultHNSWM             = 16
	DefaultHNSWEf            = 64
	DefaultEmbeddingDim      = 128
)

// Config holds engine configuration. Immutable per engine instance.
type Config struct {
	// CandidatePoolSize is the max number of vector-top candidates fed
	// to the reranker.
	CandidatePoolSize int

	// FTSLimit is the max number of rows returned by a single FTS call.
	FTSLimit int

	// HNSWThreshold is the minimum corpus size at which the ANN index is
	// built; below it the engine falls back to a linear cosine scan.
	HNSWThreshold int

	// HNSWSearchK is the neighbour count requested from the ANN index
	// per query. Must be >= CandidatePoolSize.
	HNSWSearchK int

	// HNSWM is the ANN graph fan-out.
	HNSWM int

	// HNSWEf is the ANN search-list width.
	HNSWEf int

	// EmbeddingDim is the vector length; must match the embedder output.
	EmbeddingDim int

	// Store schema names, passed through to the store capability.
	TableName      string
	FTSTableName   string
	IDColumn       string
	CategoryColumn string
	QuestionColumn string
	AnswerColumn   string
}

// DefaultConfig returns a Config populated with default values
func DefaultConfig() Config {
	return Config{
		CandidatePoolSize: DefaultCandidatePoolSize,
		FTSLimit:          DefaultFTSLimit,
		HNSWThreshold:     DefaultHNSWThreshold,
		HNSWSearchK:       DefaultHNSWSearchK,
		HNSWM:             DefaultHNSWM,
		HNSWEf:            DefaultHNSWEf,
		EmbeddingDim:      DefaultEmbeddingDim,
		TableName:         "entries",
		FTSTableName:      "fts",
		IDColumn:          "id",
		CategoryColumn:    "category",
		QuestionColumn:    "question",
		AnswerColumn:      "answer",
	}
}

// Normalize fills zero-valued fields with defaults and returns the result
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.CandidatePoolSize <= 0 {
		c.CandidatePoolSize = def.CandidatePoolSize
	}
	if c.FTSLimit <= 0 {
		c.FTSLimit = def.FTSLimit
	}
	if c.HNSWThreshold <= 0 {
		c.HNSWThreshold = def.HNSWThreshold
	}
	if c.HNSWSearchK <= 0 {
		c.HNSWSearchK = def.HNSWSearchK
	}
	if c.HNSWSearchK < c.CandidatePoolSize {
		c.HNSWSearchK = c.CandidatePoolSize
	}
	if c.HNSWM <= 0 {
		c.HNSWM = def.HNSWM
	}
	if c.HNSWEf <= 0 {
		c.HNSWEf = def.HNSWEf
	}
	if c.EmbeddingDim <= 0 {
		c.EmbeddingDim = def.EmbeddingDim
	}
	if c.TableName == "" {
		c.TableName = def.TableName
	}
	if c.FTSTableName == "" {
		c.FTSTableName = def.FTSTableName
	}
	if c.IDColumn == "" {
		c.IDColumn = def.IDColumn
	}
	if c.CategoryColumn == "" {
		c.CategoryColumn = def.CategoryColumn
	}
	if c.QuestionColumn == "" {
		c.QuestionColumn = def.QuestionColumn
	}
	if c.AnswerColumn == "" {
		c.AnswerColumn = def.AnswerColumn
	}
	return c
}
