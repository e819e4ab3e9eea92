package config

import (
	"encoding/json"
	"flag"
	"os"
	"strings"

	"github.com/downfa11-org/go-shuffle/util"
	"gopkg.in/yaml.v3"
)

// Config represents the exchange service configuration including tunable
// performance options.
type Config struct {
	// Data plane
	DataDir        string `yaml:"data_dir" json:"data.dir"`
	SegmentSize    int    `yaml:"segment_size" json:"segment.size"`
	ReadAheadDepth int    `yaml:"read_ahead_depth" json:"read.ahead.depth"`
	ReadMode       string `yaml:"read_mode" json:"read.mode"`

	// Flow control
	CreditsPerChannel int `yaml:"credits_per_channel" json:"credits.per.channel"`
	MaxViewReaders    int `yaml:"max_view_readers" json:"max.view.readers"`

	// Compression
	CompressionType string `yaml:"compression_type" json:"compression.type"`

	// Observability
	EnableExporter bool          `yaml:"enable_exporter" json:"enable.exporter"`
	ExporterPort   int           `yaml:"exporter_port" json:"exporter.port"`
	LogLevel       util.LogLevel `yaml:"log_level" json:"log_level"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	configPath := flag.String("config", "", "Path to YAML/JSON config file")
	dataDirStr := flag.String("data-dir", "shuffle-data", "Directory for spilled partition files")
	segmentSizeStr := flag.String("segment-size", "32768", "Scratch segment size in bytes")
	readAheadStr := flag.String("read-ahead", "2", "Read-ahead depth (pooled segments per partition)")
	readModeStr := flag.String("read-mode", "segment", "Bounded read mode (segment, region, mmap)")
	creditsStr := flag.String("credits", "8", "Initial credits per consumer channel")
	maxReadersStr := flag.String("max-view-readers", "1000", "Maximum concurrent view readers")
	compressionStr := flag.String("compression", "none", "Compression codec (none, gzip, snappy, lz4)")
	exporterStr := flag.String("exporter", "true", "Enable Prometheus exporter")
	exporterPortStr := flag.String("exporter-port", "9100", "Exporter port")
	logLevelStr := flag.String("log-level", "info", "Log Level (debug, info, warn, error)")

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" && *configPath == "" {
		*configPath = envPath
	}

	flag.Parse()

	applyDefaults(cfg, dataDirStr, segmentSizeStr, readAheadStr, readModeStr,
		creditsStr, maxReadersStr, compressionStr, exporterStr, exporterPortStr, logLevelStr)

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, err
		}

		if strings.HasSuffix(*configPath, ".json") {
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	applyExplicitFlags(cfg, dataDirStr, segmentSizeStr, readAheadStr, readModeStr,
		creditsStr, maxReadersStr, compressionStr, exporterStr, exporterPortStr, logLevelStr)

	cfg.Normalize()
	util.SetLevel(cfg.LogLevel)

	return cfg, nil
}
