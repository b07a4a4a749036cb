// Package config provides configuration management for the research service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Auth contains JWT authentication settings.
	Auth AuthConfig `mapstructure:"auth"`
	// Sources contains paper source API configurations.
	Sources SourcesConfig `mapstructure:"sources"`
	// LLM contains language model client settings.
	LLM LLMConfig `mapstructure:"llm"`
	// Qdrant contains Qdrant vector store settings for the RAG index.
	Qdrant QdrantConfig `mapstructure:"qdrant"`
	// RAG contains retrieval-augmented generation settings.
	RAG RAGConfig `mapstructure:"rag"`
	// Storage contains flat-file storage settings.
	Storage StorageConfig `mapstructure:"storage"`
	// Analysis contains trend/gap analysis settings.
	Analysis AnalysisConfig `mapstructure:"analysis"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// Port is the HTTP server port (default: 8080).
	Port int `mapstructure:"port"`
	// ReadTimeout is the maximum duration for reading the request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for the metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace is the metric name prefix.
	Namespace string `mapstructure:"namespace"`
}

// AuthConfig holds JWT authentication settings.
type AuthConfig struct {
	// Enabled controls whether authenticated routes require a token.
	Enabled bool `mapstructure:"enabled"`
	// JWTSecret signs access tokens (loaded from RESEARCHMATE_AUTH_JWT_SECRET).
	JWTSecret string `mapstructure:"-"`
	// TokenTTL is how long issued tokens stay valid.
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	// BCryptCost is the bcrypt work factor for password hashing.
	BCryptCost int `mapstructure:"bcrypt_cost"`
}

// SourcesConfig holds configuration for all paper source APIs.
type SourcesConfig struct {
	// ArXiv contains arXiv API settings.
	ArXiv SourceConfig `mapstructure:"arxiv"`
	// SemanticScholar contains Semantic Scholar API settings.
	SemanticScholar SourceConfig `mapstructure:"semantic_scholar"`
	// Crossref contains Crossref API settings.
	Crossref SourceConfig `mapstructure:"crossref"`
	// PubMed contains PubMed E-utilities settings.
	PubMed SourceConfig `mapstructure:"pubmed"`
}

// SourceConfig holds configuration for a single paper source API. Not every
// field applies to every source: MailTo is Crossref's polite-pool contact,
// and MaxRetries/RetryDelay only drive the Semantic Scholar backoff.
type SourceConfig struct {
	// Enabled controls whether this source is queried.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key, loaded from an environment variable such as
	// RESEARCHMATE_SOURCES_SEMANTIC_SCHOLAR_API_KEY.
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// RequestInterval is the minimum spacing between requests to this source.
	RequestInterval time.Duration `mapstructure:"request_interval"`
	// MaxResults is the maximum results per query.
	MaxResults int `mapstructure:"max_results"`
	// MaxRetries is the retry budget for throttled requests.
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// MailTo is the contact address sent in the Crossref User-Agent.
	MailTo string `mapstructure:"mail_to"`
}

// LLMConfig holds language model client settings.
type LLMConfig struct {
	// Enabled controls whether LLM-backed features (summaries, reviews,
	// question answering) are active.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from RESEARCHMATE_LLM_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the OpenAI-compatible API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Model is the chat model to use.
	Model string `mapstructure:"model"`
	// EmbeddingModel is the model used for text embeddings.
	EmbeddingModel string `mapstructure:"embedding_model"`
	// MaxTokens is the default completion token budget.
	MaxTokens int `mapstructure:"max_tokens"`
	// Temperature is the sampling temperature.
	Temperature float64 `mapstructure:"temperature"`
	// Timeout is the timeout for LLM API calls.
	Timeout time.Duration `mapstructure:"timeout"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Address is the Qdrant gRPC address.
	Address string `mapstructure:"address"`
	// CollectionName is the collection holding paper chunks.
	CollectionName string `mapstructure:"collection_name"`
	// VectorSize is the embedding dimension (must match the embedding model).
	VectorSize uint64 `mapstructure:"vector_size"`
}

// RAGConfig holds retrieval-augmented generation settings.
type RAGConfig struct {
	// ChunkSize is the target chunk length in characters.
	ChunkSize int `mapstructure:"chunk_size"`
	// ChunkOverlap is how many characters adjacent chunks share.
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	// TopK is the number of chunks retrieved per question.
	TopK int `mapstructure:"top_k"`
}

// StorageConfig holds flat-file storage settings.
type StorageConfig struct {
	// DataDir is the root directory for service state.
	DataDir string `mapstructure:"data_dir"`
	// UsersFile is the JSON file holding user accounts, relative to DataDir
	// unless absolute.
	UsersFile string `mapstructure:"users_file"`
	// ProjectsFile is the JSON file holding research projects.
	ProjectsFile string `mapstructure:"projects_file"`
	// UploadDir is where uploaded PDFs are kept.
	UploadDir string `mapstructure:"upload_dir"`
}

// AnalysisConfig holds trend/gap analysis settings.
type AnalysisConfig struct {
	// MaxPapers caps how many papers an analysis endpoint will fetch.
	MaxPapers int `mapstructure:"max_papers"`
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("RESEARCHMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/research-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Auth.JWTSecret = os.Getenv("RESEARCHMATE_AUTH_JWT_SECRET")
	cfg.LLM.APIKey = os.Getenv("RESEARCHMATE_LLM_API_KEY")

	cfg.Sources.SemanticScholar.APIKey = os.Getenv("RESEARCHMATE_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
	cfg.Sources.PubMed.APIKey = os.Getenv("RESEARCHMATE_SOURCES_PUBMED_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "research")

	// Auth defaults. The JWT secret is loaded exclusively from
	// RESEARCHMATE_AUTH_JWT_SECRET (see loadSecrets).
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.bcrypt_cost", 12)

	// Paper source defaults. Request intervals follow each provider's
	// published guidance: arXiv asks for 3 seconds between requests, the
	// unauthenticated Semantic Scholar pool allows roughly one request per
	// 5 seconds, Crossref's polite pool tolerates 10 req/s, and NCBI allows
	// 3 req/s without an API key.
	v.SetDefault("sources.arxiv.enabled", true)
	v.SetDefault("sources.arxiv.base_url", "http://export.arxiv.org/api")
	v.SetDefault("sources.arxiv.timeout", "30s")
	v.SetDefault("sources.arxiv.request_interval", "3s")
	v.SetDefault("sources.arxiv.max_results", 10)

	v.SetDefault("sources.semantic_scholar.enabled", true)
	v.SetDefault("sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("sources.semantic_scholar.timeout", "30s")
	v.SetDefault("sources.semantic_scholar.request_interval", "5s")
	v.SetDefault("sources.semantic_scholar.max_results", 10)
	v.SetDefault("sources.semantic_scholar.max_retries", 3)
	v.SetDefault("sources.semantic_scholar.retry_delay", "5s")

	v.SetDefault("sources.crossref.enabled", true)
	v.SetDefault("sources.crossref.base_url", "https://api.crossref.org")
	v.SetDefault("sources.crossref.timeout", "30s")
	v.SetDefault("sources.crossref.request_interval", "100ms")
	v.SetDefault("sources.crossref.max_results", 10)
	v.SetDefault("sources.crossref.mail_to", "research@researchmate.dev")

	v.SetDefault("sources.pubmed.enabled", true)
	v.SetDefault("sources.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("sources.pubmed.timeout", "30s")
	v.SetDefault("sources.pubmed.request_interval", "340ms")
	v.SetDefault("sources.pubmed.max_results", 10)

	// LLM defaults. Disabled until RESEARCHMATE_LLM_API_KEY is provided.
	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", "60s")

	// Qdrant defaults
	v.SetDefault("qdrant.address", "localhost:6334")
	v.SetDefault("qdrant.collection_name", "research_papers")
	v.SetDefault("qdrant.vector_size", 1536) // text-embedding-3-small

	// RAG defaults
	v.SetDefault("rag.chunk_size", 1000)
	v.SetDefault("rag.chunk_overlap", 200)
	v.SetDefault("rag.top_k", 5)

	// Storage defaults
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.users_file", "users.json")
	v.SetDefault("storage.projects_file", "projects.json")
	v.SetDefault("storage.upload_dir", "uploads")

	// Analysis defaults
	v.SetDefault("analysis.max_papers", 200)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.Port)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Auth.Enabled {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth requires RESEARCHMATE_AUTH_JWT_SECRET to be set")
		}
		if c.Auth.TokenTTL <= 0 {
			return fmt.Errorf("auth token_ttl must be positive")
		}
	}

	if c.LLM.Enabled && c.LLM.APIKey == "" {
		return fmt.Errorf("llm requires RESEARCHMATE_LLM_API_KEY to be set")
	}

	if !c.Sources.ArXiv.Enabled && !c.Sources.SemanticScholar.Enabled &&
		!c.Sources.Crossref.Enabled && !c.Sources.PubMed.Enabled {
		return fmt.Errorf("at least one paper source must be enabled")
	}

	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag chunk_size must be positive")
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag chunk_overlap must be smaller than chunk_size")
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir is required")
	}

	return nil
}
