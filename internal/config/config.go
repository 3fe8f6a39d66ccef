package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Postgres DBConfig
	Redis    RedisConfig
	S3       S3Config
	Logger   Logger
	Worker   WorkerConfig
	Encoder  EncoderConfig
	Subtitle SubtitleConfig
}

type ServerConfig struct {
	AppVersion string
	Port       string
	Mode       string
}

type WorkerConfig struct {
	EncodeWorkerCount   int
	SubtitleWorkerCount int
	MaxCPUUsage         float64
	PollTimeout         time.Duration
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	PgDriver string
}

type RedisConfig struct {
	RedisAddr        string
	RedisPassword    string
	DB               int
	MinIdleConns     int
	PoolSize         int
	PoolTimeout      int
	EncodeQueueKey   string
	SubtitleQueueKey string
	ProgressChannel  string
}

type S3Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	InputBucket  string
	OutputBucket string
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

type EncoderConfig struct {
	FFmpegBin      string
	FFprobeBin     string
	ScratchDir     string
	SegmentSeconds int
	AttemptTimeout time.Duration
}

type SubtitleConfig struct {
	WhisperBin      string
	WhisperModel    string
	ScratchDir      string
	MaxAudioSeconds int
	SampleRate      int
	AttemptTimeout  time.Duration
	Translator      TranslatorConfig
}

type TranslatorConfig struct {
	Endpoint  string
	APIKey    string
	Model     string
	BatchSize int
	Timeout   time.Duration
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
