package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	ChunkerURL       string        `env:"CHUNKER_URL" envDefault:"http://localhost:8000"`
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT" envDefault:"2m"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON          bool          `env:"LOG_JSON" envDefault:"false"`
	TokenEncoding    string        `env:"TOKEN_ENCODING" envDefault:"cl100k_base"`
	OllamaURL        string        `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaEmbedModel string        `env:"OLLAMA_EMBED_MODEL" envDefault:"nomic-embed-text"`
	TopK             int           `env:"TOP_K" envDefault:"3"`
	ParamsFile       string        `env:"PARAMS_FILE"`
	Output           string        `env:"OUTPUT"`
}

func Init(cfg interface{}) error {
	return env.Parse(cfg)
}
