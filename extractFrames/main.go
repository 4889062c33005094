package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/c2h5oh/datasize"

	paqalign "github.com/brainbox-lab/paqalign/pkg"
	"github.com/brainbox-lab/paqalign/pkg/logging"
)

var logger logging.Logger

func init() {
	logger = logging.New(os.Stdout, os.Stderr)
}

func main() {
	dir := flag.String("dir", ".", "Directory searched for .paq files")
	numWorkers := flag.Int("workers", 1, "Number of files processed in parallel")
	threshold := flag.Float64("threshold", 2.5, "Rising edge threshold in volts")
	imaging := flag.String("imaging", "frame_clock", "Imaging frame channel, empty to skip")
	reward := flag.String("reward", "reward", "Reward channel")
	maxSize := flag.String("max-size", "8GB", "Largest paq file accepted")
	verbosity := flag.Int("v", 0, "Verbosity level")
	flag.Parse()

	limits := paqalign.DefaultReaderLimits()
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(*maxSize)); err != nil {
		logger.Error(fmt.Sprintf("Invalid max size %q: %v", *maxSize, err))
		os.Exit(1)
	}
	limits.MaxFileSize = size

	config := paqalign.GetConfiguration()
	config.Verbosity = *verbosity
	paqalign.SetConfiguration(config)
	paqalign.SetLogger(logger)

	files, err := filepath.Glob(filepath.Join(*dir, "*.paq"))
	if err != nil {
		logger.Error(fmt.Sprintf("Error listing %s: %v", *dir, err))
		os.Exit(1)
	}
	if len(files) == 0 {
		logger.Info(fmt.Sprintf("No paq files found in %s", *dir), "main")
		return
	}

	params := paqalign.ExtractParams{
		ImagingChannel: *imaging,
		RewardChannel:  *reward,
		Threshold:      *threshold,
	}
	start := time.Now()
	failed := extractAll(files, params, limits, *numWorkers)
	logger.Info(fmt.Sprintf("Processed %d files in %d ms, %d failed", len(files), time.Since(start).Milliseconds(), failed), "main")
	if failed > 0 {
		os.Exit(1)
	}
}
