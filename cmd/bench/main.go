package main

import (
	"flag"
	"os"

	"github.com/downfa11-org/go-shuffle/pkg/bench"
	"github.com/downfa11-org/go-shuffle/pkg/config"
	"github.com/downfa11-org/go-shuffle/pkg/metrics"
	"github.com/downfa11-org/go-shuffle/util"
)

func main() {
	subpartitions := flag.Int("subpartitions", 8, "number of subpartitions")
	units := flag.Int("units", 1000, "units per subpartition")
	unitSize := flag.Int("unit-size", 4096, "payload bytes per unit")

	// LoadConfig parses the shared data-plane flags and any config file.
	cfg, err := config.LoadConfig()
	if err != nil {
		util.Error("load config: %v", err)
		os.Exit(1)
	}

	if cfg.EnableExporter {
		metrics.StartMetricsServer(cfg.ExporterPort)
	}

	runner := bench.NewBenchmarkRunner(cfg, *subpartitions, *units, *unitSize)
	if err := runner.Run(); err != nil {
		util.Error("benchmark failed: %v", err)
		os.Exit(1)
	}
}
