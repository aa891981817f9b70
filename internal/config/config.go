package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/answer"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

// #region types
// Config is the full service configuration. It is read once at startup and
// not modified afterwards.
type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Log       LogConfig                 `yaml:"log"`
	Gate      gate.Config               `yaml:"gate"`
	Answer    answer.Config             `yaml:"answer"`
	Retrieval retrieval.RetrievalConfig `yaml:"retrieval"`
	Knowledge KnowledgeConfig           `yaml:"knowledge"`
	LLM       LLMConfig                 `yaml:"llm"`
	Store     StoreConfig               `yaml:"store"`
	Session   SessionConfig             `yaml:"session"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"` // budget for one turn, retrieval and model call included
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// KnowledgeConfig points at the knowledge service that serves Search and Generate.
type KnowledgeConfig struct {
	Addr           string `yaml:"addr"`
	EmbeddingModel string `yaml:"embedding_model"`
}

// LLMConfig selects the generator. Provider "gemini" calls the Gemini API;
// "knowledge" uses the knowledge service's Generate RPC.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"-"`
}

// StoreConfig locates the SQLite answer log. An empty path disables it.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// SessionConfig sizes the in-memory recent-turn cache.
type SessionConfig struct {
	Size int `yaml:"size"`
}

// #endregion types

// #region defaults
const (
	ProviderGemini    = "gemini"
	ProviderKnowledge = "knowledge"
)

// Default returns the production configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  45 * time.Second,
		},
		Log:       LogConfig{Level: "info", JSON: true},
		Gate:      gate.DefaultConfig(),
		Answer:    answer.DefaultConfig(),
		Retrieval: retrieval.DefaultConfig(),
		Knowledge: KnowledgeConfig{Addr: "localhost:50051", EmbeddingModel: "text-embedding-004"},
		LLM:       LLMConfig{Provider: ProviderGemini, Model: "gemini-2.5-flash"},
		Store:     StoreConfig{Path: "rag_answers.db"},
		Session:   SessionConfig{Size: 1024},
	}
}

// #endregion defaults

// #region load
// Load builds the configuration: defaults, then the YAML file at path (when
// path is non-empty), then variables from envFile (when it exists), then RAG_*
// environment overrides. The result is validated.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// #endregion load

// #region env
type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	num := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("RAG_SERVER_ADDR", &c.Server.Addr)
	str("RAG_LOG_LEVEL", &c.Log.Level)
	boolean("RAG_LOG_JSON", &c.Log.JSON)
	integer("RAG_MIN_HITS", &c.Gate.MinHits)
	num("RAG_T_CLARIFY", &c.Gate.TClarify)
	num("RAG_T_ALLOW", &c.Gate.TAllow)
	num("RAG_OVERRIDE_SCORE", &c.Answer.OverrideScore)
	integer("RAG_TOP_K", &c.Retrieval.TopK)
	num("RAG_MIN_SCORE", &c.Retrieval.MinScore)
	str("RAG_KB_ADDR", &c.Knowledge.Addr)
	str("RAG_EMBEDDING_MODEL", &c.Knowledge.EmbeddingModel)
	str("RAG_LLM_PROVIDER", &c.LLM.Provider)
	str("RAG_LLM_MODEL", &c.LLM.Model)
	str("GEMINI_API_KEY", &c.LLM.APIKey)
	str("RAG_LLM_API_KEY", &c.LLM.APIKey)
	str("RAG_DB_PATH", &c.Store.Path)
	integer("RAG_SESSION_SIZE", &c.Session.Size)

	if len(errs) > 0 {
		return fmt.Errorf("env overrides: %w", errors.Join(errs...))
	}
	return nil
}

// #endregion env

// #region validate
// Validate checks the threshold ordering and required fields.
func (c Config) Validate() error {
	var errs []error
	g := c.Gate
	if g.MinHits < 0 {
		errs = append(errs, fmt.Errorf("gate.min_hits must be >= 0, got %d", g.MinHits))
	}
	if !(0 <= g.TClarify && g.TClarify <= g.TAllow && g.TAllow <= 1) {
		errs = append(errs, fmt.Errorf("gate thresholds must satisfy 0 <= t_clarify <= t_allow <= 1, got %v / %v", g.TClarify, g.TAllow))
	}
	if !(0 <= c.Answer.OverrideScore && c.Answer.OverrideScore <= 1) {
		errs = append(errs, fmt.Errorf("answer.override_score must be in [0,1], got %v", c.Answer.OverrideScore))
	}
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.top_k must be > 0, got %d", c.Retrieval.TopK))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.LLM.Provider {
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("llm provider gemini needs GEMINI_API_KEY"))
		}
	case ProviderKnowledge:
	default:
		errs = append(errs, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// #endregion validate
