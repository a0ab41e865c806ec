package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type VoiceConfig struct {
	STTURL          string `mapstructure:"stt_url"`
	InputSampleRate int    `mapstructure:"input_sample_rate"`
	TTSURL          string `mapstructure:"tts_url"`
	TTSVoice        string `mapstructure:"tts_voice"`
}

type OllamaConfig struct {
	URLs  []string `mapstructure:"urls"`
	Model string   `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// AssistantConfig selects the conversational-model provider.
type AssistantConfig struct {
	Provider string       `mapstructure:"provider"` // ollama | openai | gemini
	Ollama   OllamaConfig `mapstructure:"ollama"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type PipelineConfig struct {
	QueueBound        int           `mapstructure:"queue_bound"`
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval"`
	DrainTimeout      time.Duration `mapstructure:"drain_timeout"`
}

type Settings struct {
	Server    ServerConfig    `mapstructure:"server"`
	Voice     VoiceConfig     `mapstructure:"voice"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Env       string          `mapstructure:"env"`
	Debug     bool            `mapstructure:"debug"`
}

func Load() (*Settings, error) {
	viper.SetConfigName("config_" + genEnv())
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Missing file is fine, the defaults carry a dev setup.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &settings, nil
}

func setDefaults() {
	viper.SetDefault("server.addr", ":8000")
	viper.SetDefault("voice.stt_url", "http://localhost:9000")
	viper.SetDefault("voice.input_sample_rate", 16000)
	viper.SetDefault("voice.tts_url", "http://localhost:8880")
	viper.SetDefault("voice.tts_voice", "af_heart")
	viper.SetDefault("assistant.provider", "ollama")
	viper.SetDefault("assistant.ollama.urls", []string{"http://localhost:11434"})
	viper.SetDefault("assistant.ollama.model", "llama3.2:1b")
	viper.SetDefault("pipeline.queue_bound", 32)
	viper.SetDefault("pipeline.keepalive_interval", 10*time.Second)
	viper.SetDefault("pipeline.drain_timeout", 5*time.Second)
}

func genEnv() string {
	env := viper.GetString("ENV")
	if env == "" {
		return "dev"
	}
	return env
}
