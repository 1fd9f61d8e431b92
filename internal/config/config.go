// Package config loads the layered CodeContext configuration: environment
// variables, project config file, user global config file, and built-in
// defaults, in that priority order.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v3"
)

// Config is the complete CodeContext configuration.
type Config struct {
	Tokenizer   TokenizerConfig   `json:"tokenizer" mapstructure:"tokenizer"`
	BM25F       BM25FConfig       `json:"bm25f" mapstructure:"bm25f"`
	Embeddings  EmbeddingsConfig  `json:"embeddings" mapstructure:"embeddings"`
	VectorStore VectorStoreConfig `json:"vectorstore" mapstructure:"vectorstore"`
	Retrieval   RetrievalConfig   `json:"retrieval" mapstructure:"retrieval"`
	Indexing    IndexingConfig    `json:"indexing" mapstructure:"indexing"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
}

// TokenizerConfig configures internal/tokenizer.
type TokenizerConfig struct {
	Stopwords    []string `json:"stopwords" mapstructure:"stopwords"`
	MaxCacheSize int      `json:"maxCacheSize" mapstructure:"maxCacheSize"`
}

// BM25FConfig configures internal/bm25f.
type BM25FConfig struct {
	FieldWeights map[string]float64 `json:"fieldWeights" mapstructure:"fieldWeights"`
	K1           float64             `json:"k1" mapstructure:"k1"`
	B            float64             `json:"b" mapstructure:"b"`
	AvgDL        float64             `json:"avgDl" mapstructure:"avgDl"`
}

// EmbeddingsConfig configures internal/embedding.
type EmbeddingsConfig struct {
	Provider       string `json:"provider" mapstructure:"provider"`
	BatchSize      int    `json:"batchSize" mapstructure:"batchSize"`
	TimeoutSeconds int    `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
}

// VectorStoreConfig configures internal/vectorstore.
type VectorStoreConfig struct {
	Kind                string  `json:"kind" mapstructure:"kind"`
	DSN                 string  `json:"dsn" mapstructure:"dsn"`
	RRFK                int     `json:"rrfK" mapstructure:"rrfK"`
	PrefetchDenseRatio  float64 `json:"prefetchDenseRatio" mapstructure:"prefetchDenseRatio"`
	PrefetchSparseRatio float64 `json:"prefetchSparseRatio" mapstructure:"prefetchSparseRatio"`
	TimeoutSeconds      int     `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
}

// RetrievalConfig configures internal/retriever.
type RetrievalConfig struct {
	DefaultLimit          int                `json:"defaultLimit" mapstructure:"defaultLimit"`
	EnableGraphExpansion  bool               `json:"enableGraphExpansion" mapstructure:"enableGraphExpansion"`
	GraphScoreWeight      float64            `json:"graphScoreWeight" mapstructure:"graphScoreWeight"`
	GraphPPRThreshold     float64            `json:"graphPprThreshold" mapstructure:"graphPprThreshold"`
	TypeBoosts            map[string]float64 `json:"typeBoosts" mapstructure:"typeBoosts"`
	DiversityPreserveTopN int                `json:"diversityPreserveTopN" mapstructure:"diversityPreserveTopN"`
	MaxChunksPerFile      int                `json:"maxChunksPerFile" mapstructure:"maxChunksPerFile"`
}

// IndexingConfig configures internal/indexer.
type IndexingConfig struct {
	IncludeGlobs     []string `json:"includeGlobs" mapstructure:"includeGlobs"`
	ExcludeGlobs     []string `json:"excludeGlobs" mapstructure:"excludeGlobs"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	ParallelWorkers  int      `json:"parallelWorkers" mapstructure:"parallelWorkers"`
	MaxRetries       int      `json:"maxRetries" mapstructure:"maxRetries"`
	RetryBaseSeconds float64  `json:"retryBaseSeconds" mapstructure:"retryBaseSeconds"`
	RetryCapSeconds  float64  `json:"retryCapSeconds" mapstructure:"retryCapSeconds"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// Default returns the built-in configuration used when no config file or
// environment override is present.
func Default() *Config {
	return &Config{
		Tokenizer: TokenizerConfig{
			Stopwords:    defaultStopwords(),
			MaxCacheSize: 10000,
		},
		BM25F: BM25FConfig{
			FieldWeights: map[string]float64{
				"name":           15,
				"qualified_name": 12,
				"signature":      10,
				"docstring":      8,
				"content":        6,
				"filename":       4,
				"file_path":      2,
			},
			K1:    1.2,
			B:     0.75,
			AvgDL: 100.0,
		},
		Embeddings: EmbeddingsConfig{
			Provider:       "deterministic",
			BatchSize:      32,
			TimeoutSeconds: 30,
		},
		VectorStore: VectorStoreConfig{
			Kind:                "sqlite",
			DSN:                 ".codecontext/codecontext.db",
			RRFK:                60,
			PrefetchDenseRatio:  7.0,
			PrefetchSparseRatio: 3.0,
			TimeoutSeconds:      10,
		},
		Retrieval: RetrievalConfig{
			DefaultLimit:         10,
			EnableGraphExpansion: true,
			GraphScoreWeight:     0.3,
			GraphPPRThreshold:    0.4,
			TypeBoosts: map[string]float64{
				"class":     0.12,
				"method":    0.10,
				"function":  0.10,
				"enum":      0.08,
				"interface": 0.06,
				"markdown":  0.07,
				"config":    0.05,
				"type":      0.04,
				"field":     0.02,
				"variable":  0.00,
			},
			DiversityPreserveTopN: 1,
			MaxChunksPerFile:      2,
		},
		Indexing: IndexingConfig{
			IncludeGlobs:     []string{"**/*"},
			ExcludeGlobs:     []string{"**/.git/**", "**/node_modules/**", "**/vendor/**", "**/.codecontext/**"},
			MaxFileSizeBytes: 1 << 20,
			ParallelWorkers:  8,
			MaxRetries:       3,
			RetryBaseSeconds: 2,
			RetryCapSeconds:  30,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

func defaultStopwords() []string {
	return []string{
		"the", "is", "a", "an", "and", "or", "of", "to", "in", "on", "for",
		"with", "at", "by", "from", "as", "it", "this", "that", "be", "are",
		"was", "were", "if", "then", "else", "var", "let", "const",
	}
}

// Load builds a Config by merging, from lowest to highest priority:
// built-in defaults, user global config (~/.codecontext/config.toml),
// project config (<projectRoot>/.codecontext.{toml,yaml}), and environment
// variables prefixed CODECONTEXT_ with "__" as the nesting separator.
func Load(projectRoot string) (*Config, error) {
	v := viper.New()

	defaultsMap, err := toMap(Default())
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(defaultsMap); err != nil {
		return nil, err
	}

	if home, err := os.UserHomeDir(); err == nil {
		if err := mergeTOMLFile(v, filepath.Join(home, ".codecontext", "config.toml")); err != nil {
			return nil, err
		}
	}
	if err := mergeTOMLFile(v, filepath.Join(projectRoot, ".codecontext.toml")); err != nil {
		return nil, err
	}
	if err := mergeYAMLFile(v, filepath.Join(projectRoot, ".codecontext.yaml")); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("CODECONTEXT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func toMap(cfg *Config) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func mergeTOMLFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var m map[string]interface{}
	if err := toml.Unmarshal(data, &m); err != nil {
		return err
	}
	return v.MergeConfigMap(m)
}

func mergeYAMLFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var m map[string]interface{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return err
	}
	return v.MergeConfigMap(m)
}
