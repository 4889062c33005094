package main

import (
	"encoding/json"
	"fmt"
	"os"

	paqalign "github.com/brainbox-lab/paqalign/pkg"
	"github.com/brainbox-lab/paqalign/pkg/logging"
)

func LoadConfiguration(filename string) (paqalign.Configuration, error) {
	var config paqalign.Configuration

	// Set default values
	config.Verbosity = 0
	config.FluDataset = "F"
	config.WriteFrameFiles = true
	config.Limits = paqalign.DefaultReaderLimits()
	config.UseDB = false
	config.Host = "localhost"
	config.User = "reader"
	config.Passwd = "readonly"
	config.DBName = "recordings"
	config.NumWorkers = 1
	config.CompressionLevel = 4
	config.FrameClock = paqalign.ChannelConfig{Name: "frame_clock", Threshold: 1}
	config.Reward = paqalign.ChannelConfig{Name: "reward", Threshold: 1}
	lickDistance := 160.0
	config.Lick = paqalign.ChannelConfig{Name: "lick", Threshold: 4.9, Distance: &lickDistance}
	config.ImagingRate = 30
	config.GapSeconds = 1
	config.BonusLimit = 20
	config.Columns = paqalign.DefaultBehaviorColumns()
	config.EventUnit = "seconds"
	config.PreFrames = 30
	config.PostFrames = 90
	config.MinFrameGap = 0

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func printConfiguration(config paqalign.Configuration, logger logging.Logger) {
	logger.Info(fmt.Sprintf("Session: %s", config.SessionID), "config")
	logger.Info(fmt.Sprintf("Paq file: %s", config.PaqFile), "config")
	logger.Info(fmt.Sprintf("Behavior file: %s", config.BehaviorFile), "config")
	logger.Info(fmt.Sprintf("Fluorescence file: %s (%s)", config.FluFile, config.FluDataset), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Use DB: %t", config.UseDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Max file size: %s", config.Limits.MaxFileSize.HumanReadable()), "config")
	logger.Info(fmt.Sprintf("Frame clock: %s (threshold %g)", config.FrameClock.Name, config.FrameClock.Threshold), "config")
	logger.Info(fmt.Sprintf("Reward: %s (threshold %g)", config.Reward.Name, config.Reward.Threshold), "config")
	logger.Info(fmt.Sprintf("Lick: %s (threshold %g)", config.Lick.Name, config.Lick.Threshold), "config")
	logger.Info(fmt.Sprintf("Correct swap: %t", config.CorrectSwap), "config")
	logger.Info(fmt.Sprintf("Imaging rate: %g", config.ImagingRate), "config")
	logger.Info(fmt.Sprintf("Tseries lengths: %v", config.TseriesLens), "config")
	logger.Info(fmt.Sprintf("Event unit: %s", config.EventUnit), "config")
	logger.Info(fmt.Sprintf("Window: %d pre, %d post frames", config.PreFrames, config.PostFrames), "config")
	logger.Info(fmt.Sprintf("Min frame gap: %d", config.MinFrameGap), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
}
