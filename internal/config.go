package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/prappser/prappser_composer/internal/media"
	"github.com/prappser/prappser_composer/internal/remote"
	"github.com/prappser/prappser_composer/internal/upload"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	defaultConfigFile = "files/config.yaml"
	multipartOverhead = 1 << 20
)

type Config struct {
	Server   ServerConfig         `mapstructure:"server"`
	Services ServicesConfig       `mapstructure:"services"`
	Storage  upload.BackendConfig `mapstructure:"storage"`
	Limits   media.Limits         `mapstructure:"limits"`
	Probe    ProbeConfig          `mapstructure:"probe"`
	Drafts   DraftsConfig         `mapstructure:"drafts"`
	Log      LogConfig            `mapstructure:"log"`
}

type ServerConfig struct {
	Port               int      `mapstructure:"port"`
	ExternalURL        string   `mapstructure:"externalUrl"`
	AllowedOrigins     []string `mapstructure:"allowedOrigins"`
	MaxRequestBodySize int      `mapstructure:"maxRequestBodySize"`
}

type ServicesConfig struct {
	Posts remote.Config `mapstructure:"posts"`
	Media remote.Config `mapstructure:"media"`
}

type ProbeConfig struct {
	FFProbePath string `mapstructure:"ffprobePath"`
	// Native reads MP4 and QuickTime durations in-process before falling back to ffprobe.
	Native bool `mapstructure:"native"`
}

type DraftsConfig struct {
	SpoolDir      string        `mapstructure:"spoolDir"`
	IdleTTL       time.Duration `mapstructure:"idleTTL"`
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.externalUrl", "http://localhost:8080")
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.maxRequestBodySize", 0)

	v.SetDefault("services.posts.baseUrl", "http://localhost:5000/api")
	v.SetDefault("services.posts.timeout", 15*time.Second)
	v.SetDefault("services.media.baseUrl", "http://localhost:5000/api")
	v.SetDefault("services.media.timeout", 15*time.Second)

	v.SetDefault("storage.type", string(upload.BackendTypeLocal))
	v.SetDefault("storage.localPath", "./media")
	v.SetDefault("storage.s3Endpoint", "")
	v.SetDefault("storage.s3Bucket", "composer-media")
	v.SetDefault("storage.s3AccessKey", "")
	v.SetDefault("storage.s3SecretKey", "")
	v.SetDefault("storage.s3Region", "")
	v.SetDefault("storage.s3UseSSL", true)
	v.SetDefault("storage.externalUrl", "")
	v.SetDefault("storage.maxFileSize", upload.DefaultMaxFileSize)

	v.SetDefault("limits.maxFiles", media.DefaultMaxFiles)
	v.SetDefault("limits.maxVideos", media.DefaultMaxVideos)
	v.SetDefault("limits.maxVideoDuration", media.DefaultMaxVideoDuration)

	v.SetDefault("probe.ffprobePath", "ffprobe")
	v.SetDefault("probe.native", true)

	v.SetDefault("drafts.spoolDir", "")
	v.SetDefault("drafts.idleTTL", 2*time.Hour)
	v.SetDefault("drafts.sweepInterval", 10*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// LoadConfig reads COMPOSER_CONFIG (or files/config.yaml) and applies
// COMPOSER_* environment overrides. A missing file is not an error.
func LoadConfig() (*Config, error) {
	path := os.Getenv("COMPOSER_CONFIG")
	if path == "" {
		path = defaultConfigFile
	}
	return loadConfig(path)
}

func loadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COMPOSER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Warn().Str("path", path).Msg("Config file not found, using defaults")
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// a multipart add carries up to limits.maxFiles files plus form overhead
	if config.Server.MaxRequestBodySize <= 0 {
		config.Server.MaxRequestBodySize = int(config.Storage.MaxFileSize)*config.Limits.MaxFiles + multipartOverhead
	}
	if config.Server.MaxRequestBodySize < int(config.Storage.MaxFileSize) {
		log.Warn().
			Int("maxRequestBodySize", config.Server.MaxRequestBodySize).
			Int64("maxFileSize", config.Storage.MaxFileSize).
			Msg("server.maxRequestBodySize is below storage.maxFileSize; large files will be cut off by the server")
	}

	if config.Storage.ExternalURL == "" {
		config.Storage.ExternalURL = config.Server.ExternalURL
	}
	return &config, nil
}
