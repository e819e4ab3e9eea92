package config

import (
	"strconv"
	"strings"

	"github.com/downfa11-org/go-shuffle/util"
)

func applyDefaults(cfg *Config, dataDirStr, segmentSizeStr, readAheadStr, readModeStr,
	creditsStr, maxReadersStr, compressionStr, exporterStr, exporterPortStr, logLevelStr *string) {

	cfg.DataDir = *dataDirStr
	cfg.SegmentSize = util.ParseInt(*segmentSizeStr, 32768)
	cfg.ReadAheadDepth = util.ParseInt(*readAheadStr, 2)
	cfg.ReadMode = *readModeStr
	cfg.CreditsPerChannel = util.ParseInt(*creditsStr, 8)
	cfg.MaxViewReaders = util.ParseInt(*maxReadersStr, 1000)
	cfg.CompressionType = *compressionStr
	cfg.EnableExporter = util.ParseBool(*exporterStr, true)
	cfg.ExporterPort = util.ParseInt(*exporterPortStr, 9100)
	cfg.LogLevel = parseLogLevel(*logLevelStr)
}

func applyExplicitFlags(cfg *Config, dataDirStr, segmentSizeStr, readAheadStr, readModeStr,
	creditsStr, maxReadersStr, compressionStr, exporterStr, exporterPortStr, logLevelStr *string) {

	if *dataDirStr != "shuffle-data" {
		cfg.DataDir = *dataDirStr
	}
	if *segmentSizeStr != "32768" {
		if segmentSize, err := strconv.Atoi(*segmentSizeStr); err == nil {
			cfg.SegmentSize = segmentSize
		}
	}
	if *readAheadStr != "2" {
		if readAhead, err := strconv.Atoi(*readAheadStr); err == nil {
			cfg.ReadAheadDepth = readAhead
		}
	}
	if *readModeStr != "segment" {
		cfg.ReadMode = *readModeStr
	}
	if *creditsStr != "8" {
		if credits, err := strconv.Atoi(*creditsStr); err == nil {
			cfg.CreditsPerChannel = credits
		}
	}
	if *maxReadersStr != "1000" {
		if maxReaders, err := strconv.Atoi(*maxReadersStr); err == nil {
			cfg.MaxViewReaders = maxReaders
		}
	}
	if *compressionStr != "none" {
		cfg.CompressionType = *compressionStr
	}
	if *exporterStr != "true" {
		if exporter, err := strconv.ParseBool(*exporterStr); err == nil {
			cfg.EnableExporter = exporter
		}
	}
	if *exporterPortStr != "9100" {
		if exporterPort, err := strconv.Atoi(*exporterPortStr); err == nil {
			cfg.ExporterPort = exporterPort
		}
	}
	if *logLevelStr != "info" {
		cfg.LogLevel = parseLogLevel(*logLevelStr)
	}
}

func parseLogLevel(s string) util.LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return util.LogLevelDebug
	case "info":
		return util.LogLevelInfo
	case "warn", "warning":
		return util.LogLevelWarn
	case "error":
		return util.LogLevelError
	default:
		return util.LogLevelInfo
	}
}

func (cfg *Config) Normalize() {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "shuffle-data"
	}
	if cfg.SegmentSize < 1024 {
		cfg.SegmentSize = 32768
	}
	if cfg.ReadAheadDepth <= 0 {
		cfg.ReadAheadDepth = 2
	}
	switch cfg.ReadMode {
	case "segment", "region", "mmap":
	default:
		if cfg.ReadMode != "" {
			util.Warn("Invalid read mode %q, defaulting to segment", cfg.ReadMode)
		}
		cfg.ReadMode = "segment"
	}
	if cfg.CreditsPerChannel <= 0 {
		cfg.CreditsPerChannel = 8
	}
	if cfg.MaxViewReaders <= 0 {
		cfg.MaxViewReaders = 1000
	}
	switch cfg.CompressionType {
	case "none", "gzip", "snappy", "lz4":
	default:
		if cfg.CompressionType != "" {
			util.Warn("Unsupported compression type %q, disabling compression", cfg.CompressionType)
		}
		cfg.CompressionType = "none"
	}
	if cfg.ExporterPort <= 0 {
		cfg.ExporterPort = 9100
	}
}
