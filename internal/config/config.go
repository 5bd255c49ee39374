// Package config loads deployment settings from an optional YAML file and
// applies environment overrides on top.
package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultStage  = "dev"
	defaultRegion = "us-west-1"

	configPathEnv = "NEWSDAL_CONFIG"
	stageEnv      = "DEPLOYMENT_STAGE"
	bucketEnv     = "CANDIDATE_ARTICLES_BUCKET"
	regionEnv     = "REGION_NAME"
	endpointEnv   = "S3_ENDPOINT_URL"
	redisAddrEnv  = "REDIS_ADDR"
)

// Config holds the settings required across the data layer.
type Config struct {
	Stage   string        `yaml:"stage"`
	Store   StoreConfig   `yaml:"store"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig describes where candidate articles are kept.
type StoreConfig struct {
	Bucket     string `yaml:"bucket"`
	Region     string `yaml:"region"`
	Endpoint   string `yaml:"endpoint"`
	BadgerPath string `yaml:"badgerPath"`
}

// RedisConfig describes the document-store connection.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. The candidate bucket defaults to a stage-derived name when
// nothing names it explicitly.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if cfg.Store.Bucket == "" {
		cfg.Store.Bucket = fmt.Sprintf("news-aggregator-candidate-articles-%s", cfg.Stage)
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(stageEnv); v != "" {
		c.Stage = v
	}
	if v := os.Getenv(bucketEnv); v != "" {
		c.Store.Bucket = v
	}
	if v := os.Getenv(regionEnv); v != "" {
		c.Store.Region = v
	}
	if v := os.Getenv(endpointEnv); v != "" {
		c.Store.Endpoint = v
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Stage != "" {
		base.Stage = override.Stage
	}
	if override.Store.Bucket != "" {
		base.Store.Bucket = override.Store.Bucket
	}
	if override.Store.Region != "" {
		base.Store.Region = override.Store.Region
	}
	if override.Store.Endpoint != "" {
		base.Store.Endpoint = override.Store.Endpoint
	}
	if override.Store.BadgerPath != "" {
		base.Store.BadgerPath = override.Store.BadgerPath
	}
	if override.Redis.Addr != "" {
		base.Redis.Addr = override.Redis.Addr
	}
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Stage: defaultStage,
		Store: StoreConfig{
			Region: defaultRegion,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
