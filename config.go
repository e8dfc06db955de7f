package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit          string        `yaml:"git_commit" envconfig:"GRIM_GIT_COMMIT"`
	GitTag             string        `yaml:"git_tag" envconfig:"GRIM_GIT_TAG"`
	BuildTime          string        `yaml:"build_time" envconfig:"GRIM_BUILD_TIME"`
	IsProduction       bool          `yaml:"is_production" envconfig:"GRIM_IS_PRODUCTION"`
	LogLevel           zapcore.Level `yaml:"log_level" envconfig:"GRIM_LOG_LEVEL"`
	LogFile            string        `yaml:"log_file" envconfig:"GRIM_LOG_FILE"`
	OpsEndpointsEnable bool          `yaml:"ops_endpoints_enable" envconfig:"GRIM_OPS_ENDPOINTS_ENABLE"`
	ProfilerEnable     bool          `yaml:"profiler_enable" envconfig:"GRIM_PROFILER_ENABLE"`
	Server             ServerConfig  `yaml:"server"`
	Storage            StorageConfig `yaml:"storage"`
	Redis              RedisConfig   `yaml:"redis"`
	BoltDB             BoltDBConfig  `yaml:"boltdb"`
	Auth               AuthConfig    `yaml:"auth"`
	Images             ImagesConfig  `yaml:"images"`
	Minio              MinioConfig   `yaml:"minio"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"GRIM_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"GRIM_SERVER_PORT"`
	CertsFile       string        `yaml:"certs_file" envconfig:"GRIM_SERVER_CERTS_FILE"`
	KeyFile         string        `yaml:"key_file" envconfig:"GRIM_SERVER_KEY_FILE"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"GRIM_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"GRIM_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"GRIM_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"GRIM_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig selects which database backend holds the records.
type StorageConfig struct {
	Backend string `yaml:"backend" envconfig:"GRIM_STORAGE_BACKEND"` // redis or bolt
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"GRIM_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"GRIM_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"GRIM_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"GRIM_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"GRIM_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"GRIM_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"GRIM_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"GRIM_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"GRIM_REDIS_PASSWORD"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"GRIM_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath     string        `yaml:"filepath" envconfig:"GRIM_BOLTDB_FILE_PATH"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"GRIM_BOLTDB_TIMEOUT"`
	BooksBucket  string        `yaml:"books_bucket" envconfig:"GRIM_BOLTDB_BOOKS_BUCKET"`
	UsersBucket  string        `yaml:"users_bucket" envconfig:"GRIM_BOLTDB_USERS_BUCKET"`
	EmailsBucket string        `yaml:"emails_bucket" envconfig:"GRIM_BOLTDB_EMAILS_BUCKET"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret" envconfig:"GRIM_AUTH_JWT_SECRET"`
	TokenTTL   time.Duration `yaml:"token_ttl" envconfig:"GRIM_AUTH_TOKEN_TTL"`
	BcryptCost int           `yaml:"bcrypt_cost" envconfig:"GRIM_AUTH_BCRYPT_COST"`
}

// ImagesConfig drives the cover pipeline: where the normalized blobs
// live and how wide they are allowed to be.
type ImagesConfig struct {
	Backend       string `yaml:"backend" envconfig:"GRIM_IMAGES_BACKEND"` // disk or s3
	Folder        string `yaml:"folder" envconfig:"GRIM_IMAGES_FOLDER"`
	MaxWidth      int    `yaml:"max_width" envconfig:"GRIM_IMAGES_MAX_WIDTH"`
	MaxUploadSize int64  `yaml:"max_upload_size" envconfig:"GRIM_IMAGES_MAX_UPLOAD_SIZE"`
}

type MinioConfig struct {
	Endpoint      string `yaml:"endpoint" envconfig:"GRIM_MINIO_ENDPOINT"`
	AccessKey     string `yaml:"access_key" envconfig:"GRIM_MINIO_ACCESS_KEY"`
	SecretKey     string `yaml:"secret_key" envconfig:"GRIM_MINIO_SECRET_KEY"`
	Bucket        string `yaml:"bucket" envconfig:"GRIM_MINIO_BUCKET"`
	UseSSL        bool   `yaml:"use_ssl" envconfig:"GRIM_MINIO_USE_SSL"`
	PublicBaseURL string `yaml:"public_base_url" envconfig:"GRIM_MINIO_PUBLIC_BASE_URL"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	switch config.Storage.Backend {
	case "redis":
		if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
			return errors.New("make sure to set valid redis address and port in configuration file")
		}
	case "bolt":
		if len(config.BoltDB.FilePath) == 0 {
			return errors.New("make sure to set a valid boltdb file path in configuration file")
		}
		if len(config.BoltDB.BooksBucket) == 0 {
			config.BoltDB.BooksBucket = "books"
		}
		if len(config.BoltDB.UsersBucket) == 0 {
			config.BoltDB.UsersBucket = "users"
		}
		if len(config.BoltDB.EmailsBucket) == 0 {
			config.BoltDB.EmailsBucket = "emails"
		}
	default:
		return fmt.Errorf("unknown storage backend %q in configuration file", config.Storage.Backend)
	}

	if len(config.Auth.JWTSecret) == 0 {
		return errors.New("make sure to set a non-empty jwt secret in configuration file")
	}

	if config.Auth.TokenTTL == 0 {
		config.Auth.TokenTTL = 24 * time.Hour
	}

	if config.Auth.BcryptCost == 0 {
		config.Auth.BcryptCost = 10
	}

	switch config.Images.Backend {
	case "", "disk":
		config.Images.Backend = "disk"
		if len(config.Images.Folder) == 0 {
			config.Images.Folder = "images"
		}
	case "s3":
		if len(config.Minio.Endpoint) == 0 || len(config.Minio.Bucket) == 0 {
			return errors.New("make sure to set valid minio endpoint and bucket in configuration file")
		}
	default:
		return fmt.Errorf("unknown images backend %q in configuration file", config.Images.Backend)
	}

	if config.Images.MaxWidth == 0 {
		config.Images.MaxWidth = 800
	}

	if config.Images.MaxUploadSize == 0 {
		config.Images.MaxUploadSize = 8 << 20
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration. Missing file is fine, the
	// variables may come straight from the environment.
	if err := godotenv.Load("./config.env"); err != nil && !os.IsNotExist(err) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `GRIM`.
	err = LoadConfigEnvs("GRIM", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
