package config_test

import (
	"testing"

	"github.com/downfa11-org/go-shuffle/pkg/config"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Normalize()

	if cfg.DataDir != "shuffle-data" {
		t.Errorf("DataDir default incorrect: %s", cfg.DataDir)
	}
	if cfg.SegmentSize != 32768 {
		t.Errorf("SegmentSize default incorrect: %d", cfg.SegmentSize)
	}
	if cfg.ReadAheadDepth != 2 {
		t.Errorf("ReadAheadDepth default incorrect: %d", cfg.ReadAheadDepth)
	}
	if cfg.ReadMode != "segment" {
		t.Errorf("ReadMode default incorrect: %s", cfg.ReadMode)
	}
	if cfg.CreditsPerChannel != 8 {
		t.Errorf("CreditsPerChannel default incorrect: %d", cfg.CreditsPerChannel)
	}
	if cfg.CompressionType != "none" {
		t.Errorf("CompressionType default incorrect: %s", cfg.CompressionType)
	}
	if cfg.ExporterPort != 9100 {
		t.Errorf("ExporterPort default incorrect: %d", cfg.ExporterPort)
	}
}

func TestNormalizeRejectsBadValues(t *testing.T) {
	cfg := &config.Config{
		SegmentSize:     512,
		ReadAheadDepth:  -1,
		ReadMode:        "bogus",
		CompressionType: "zstd-turbo",
	}
	cfg.Normalize()

	if cfg.SegmentSize != 32768 {
		t.Errorf("undersized SegmentSize not normalized: %d", cfg.SegmentSize)
	}
	if cfg.ReadAheadDepth != 2 {
		t.Errorf("negative ReadAheadDepth not normalized: %d", cfg.ReadAheadDepth)
	}
	if cfg.ReadMode != "segment" {
		t.Errorf("invalid ReadMode not normalized: %s", cfg.ReadMode)
	}
	if cfg.CompressionType != "none" {
		t.Errorf("unsupported CompressionType not normalized: %s", cfg.CompressionType)
	}
}

func TestNormalizeKeepsValidValues(t *testing.T) {
	cfg := &config.Config{
		DataDir:           "/tmp/shuffle",
		SegmentSize:       1 << 20,
		ReadAheadDepth:    4,
		ReadMode:          "mmap",
		CreditsPerChannel: 16,
		CompressionType:   "lz4",
		ExporterPort:      9200,
	}
	cfg.Normalize()

	if cfg.ReadMode != "mmap" || cfg.SegmentSize != 1<<20 || cfg.ReadAheadDepth != 4 {
		t.Errorf("valid values were changed: %+v", cfg)
	}
	if cfg.CompressionType != "lz4" || cfg.ExporterPort != 9200 {
		t.Errorf("valid values were changed: %+v", cfg)
	}
}
