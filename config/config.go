package config

import (
	"time"

	"github.com/ONSdigital/dp-glify-layer/partition"
	"github.com/ONSdigital/dp-glify-layer/scheduler"
	"github.com/ONSdigital/go-ns/log"
	"github.com/kelseyhightower/envconfig"
)

// Config is the configuration for this service
type Config struct {
	BindAddr               string           `envconfig:"BIND_ADDR"`
	CORSAllowedOrigins     string           `envconfig:"CORS_ALLOWED_ORIGINS"`
	ShutdownTimeout        time.Duration    `envconfig:"SHUTDOWN_TIMEOUT"`
	NumWorkers             int              `envconfig:"NUM_WORKERS"`
	PartitionTimeout       time.Duration    `envconfig:"PARTITION_TIMEOUT"`
	MalformedFeaturePolicy partition.Policy `envconfig:"MALFORMED_FEATURE_POLICY"`
}

var cfg *Config

// Get configures the application and returns the configuration
func Get() (*Config, error) {
	if cfg != nil {
		return cfg, nil
	}

	cfg = &Config{
		BindAddr:               ":23600",
		CORSAllowedOrigins:     "*",
		ShutdownTimeout:        5 * time.Second,
		NumWorkers:             scheduler.DefaultWorkers(),
		PartitionTimeout:       30 * time.Second,
		MalformedFeaturePolicy: partition.Tolerate,
	}

	return cfg, envconfig.Process("", cfg)
}

// SchedulerOptions returns the default options for partitioning requests
func (cfg *Config) SchedulerOptions() scheduler.Options {
	return scheduler.Options{
		Workers: cfg.NumWorkers,
		Policy:  cfg.MalformedFeaturePolicy,
		Timeout: cfg.PartitionTimeout,
	}
}

// Log writes all config properties to log.Debug
func (cfg *Config) Log() {
	log.Debug("Configuration", log.Data{
		"BindAddr":               cfg.BindAddr,
		"CORSAllowedOrigins":     cfg.CORSAllowedOrigins,
		"ShutdownTimeout":        cfg.ShutdownTimeout,
		"NumWorkers":             cfg.NumWorkers,
		"PartitionTimeout":       cfg.PartitionTimeout,
		"MalformedFeaturePolicy": cfg.MalformedFeaturePolicy.String(),
	})

}
