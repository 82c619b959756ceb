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

// Supported storage backends.
const (
	MongoStorage = "mongo"
	RedisStorage = "redis"
	BoltStorage  = "bolt"
)

const (
	DefaultListLimit = 1000
	EnvPrefix        = "BSAPI"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit          string        `yaml:"git_commit" json:"git_commit" envconfig:"BSAPI_GIT_COMMIT"`
	GitTag             string        `yaml:"git_tag" json:"git_tag" envconfig:"BSAPI_GIT_TAG"`
	BuildTime          string        `yaml:"build_time" json:"build_time" envconfig:"BSAPI_BUILD_TIME"`
	IsProduction       bool          `yaml:"is_production" json:"is_production" envconfig:"BSAPI_IS_PRODUCTION"`
	LogLevel           zapcore.Level `yaml:"log_level" json:"log_level" envconfig:"BSAPI_LOG_LEVEL"`
	LogFolder          string        `yaml:"log_folder" json:"log_folder" envconfig:"BSAPI_LOG_FOLDER"`
	LogMaxSize         int           `yaml:"log_max_size" json:"log_max_size" envconfig:"BSAPI_LOG_MAX_SIZE"`
	ProfilerEnable     bool          `yaml:"profiler_enable" json:"profiler_enable" envconfig:"BSAPI_PROFILER_ENABLE"`
	OpsEndpointsEnable bool          `yaml:"ops_endpoints_enable" json:"ops_endpoints_enable" envconfig:"BSAPI_OPS_ENDPOINTS_ENABLE"`
	Storage            string        `yaml:"storage" json:"storage" envconfig:"BSAPI_STORAGE"`
	Server             ServerConfig  `yaml:"server" json:"server"`
	Catalog            CatalogConfig `yaml:"catalog" json:"catalog"`
	Mongo              MongoConfig   `yaml:"mongo" json:"mongo"`
	Redis              RedisConfig   `yaml:"redis" json:"redis"`
	BoltDB             BoltDBConfig  `yaml:"boltdb" json:"boltdb"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" json:"host" envconfig:"BSAPI_SERVER_HOST"`
	Port            string        `yaml:"port" json:"port" envconfig:"BSAPI_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" envconfig:"BSAPI_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" envconfig:"BSAPI_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout" envconfig:"BSAPI_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" envconfig:"BSAPI_SERVER_SHUTDOWN_TIMEOUT"`
}

type CatalogConfig struct {
	ListLimit int `yaml:"list_limit" json:"list_limit" envconfig:"BSAPI_CATALOG_LIST_LIMIT"` // Max records returned by list and search
}

type MongoConfig struct {
	URI            string        `yaml:"uri" json:"-" envconfig:"BSAPI_MONGO_URI"`
	Database       string        `yaml:"database" json:"database" envconfig:"BSAPI_MONGO_DATABASE"`
	Collection     string        `yaml:"collection" json:"collection" envconfig:"BSAPI_MONGO_COLLECTION"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout" envconfig:"BSAPI_MONGO_CONNECT_TIMEOUT"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout" envconfig:"BSAPI_MONGO_TIMEOUT"`
	MaxPoolSize    uint64        `yaml:"max_pool_size" json:"max_pool_size" envconfig:"BSAPI_MONGO_MAX_POOL_SIZE"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" json:"host" envconfig:"BSAPI_REDIS_HOST"`
	Port          string        `yaml:"port" json:"port" envconfig:"BSAPI_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" json:"dial_timeout" envconfig:"BSAPI_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" json:"read_timeout" envconfig:"BSAPI_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" json:"write_timeout" envconfig:"BSAPI_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" json:"pool_size" envconfig:"BSAPI_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" json:"pool_timeout" envconfig:"BSAPI_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" json:"-" envconfig:"BSAPI_REDIS_USERNAME"`
	Password      string        `yaml:"password" json:"-" envconfig:"BSAPI_REDIS_PASSWORD"`
	DatabaseIndex int           `yaml:"db_index" json:"db_index" envconfig:"BSAPI_REDIS_DATABASE_INDEX"`
	HashName      string        `yaml:"hash_name" json:"hash_name" envconfig:"BSAPI_REDIS_HASH_NAME"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" json:"filepath" envconfig:"BSAPI_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" envconfig:"BSAPI_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" json:"bucket_name" envconfig:"BSAPI_BOLTDB_BUCKET_NAME"`
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

	if config.Server.RequestTimeout <= 0 {
		config.Server.RequestTimeout = 30 * time.Second
	}

	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = 30 * time.Second
	}

	if config.Catalog.ListLimit <= 0 {
		config.Catalog.ListLimit = DefaultListLimit
	}

	if len(config.LogFolder) == 0 {
		config.LogFolder = "./logs"
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 100
	}

	if len(config.Storage) == 0 {
		config.Storage = MongoStorage
	}

	switch config.Storage {
	case MongoStorage:
		if len(config.Mongo.URI) == 0 {
			return errors.New("make sure to set valid mongo uri in configuration file")
		}
		if len(config.Mongo.Database) == 0 {
			config.Mongo.Database = "bookstore"
		}
		if len(config.Mongo.Collection) == 0 {
			config.Mongo.Collection = "books"
		}
	case RedisStorage:
		if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
			return errors.New("make sure to set valid redis address and port in configuration file")
		}
		if len(config.Redis.HashName) == 0 {
			config.Redis.HashName = DefaultBooksHash
		}
	case BoltStorage:
		if len(config.BoltDB.FilePath) == 0 {
			return errors.New("make sure to set valid boltdb file path in configuration file")
		}
		if len(config.BoltDB.BucketName) == 0 {
			config.BoltDB.BucketName = "books"
		}
	default:
		return fmt.Errorf("unsupported storage %q: must be one of %s, %s or %s", config.Storage, MongoStorage, RedisStorage, BoltStorage)
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The env file is optional.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration.
	err = godotenv.Load("./config.env")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `BSAPI`.
	err = LoadConfigEnvs(EnvPrefix, config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
