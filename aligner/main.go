package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	sqlx "github.com/jmoiron/sqlx"
	"golang.org/x/exp/maps"

	paqalign "github.com/brainbox-lab/paqalign/pkg"
	"github.com/brainbox-lab/paqalign/pkg/h5store"
	"github.com/brainbox-lab/paqalign/pkg/logging"
)

var dbConn *sqlx.DB
var configuration paqalign.Configuration

var (
	logger         logging.Logger
	VerbosityLevel int
)

func init() {
	logger = logging.New(os.Stdout, os.Stderr)
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	sessionID := flag.String("session", "", "Session ID, overrides the configuration file")
	flag.Parse()

	var err error
	configuration, err = LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		os.Exit(1)
	}
	if *sessionID != "" {
		configuration.SessionID = *sessionID
	}
	paqalign.SetConfiguration(configuration)
	paqalign.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	if configuration.UseDB {
		dbConn, err = paqalign.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
		if err != nil {
			message := fmt.Errorf("Error connection to database: %w", err)
			logger.Error(message.Error())
			os.Exit(1)
		}
		defer dbConn.Close()

		if err := loadFromRegistry(dbConn, &configuration); err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		paqalign.SetConfiguration(configuration)
	}

	start := time.Now()
	if err := run(configuration); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	duration := time.Since(start)
	logger.Info(fmt.Sprintf("Total time: %d ms", duration.Milliseconds()), "main")
}

// loadFromRegistry fills the file paths, tseries lengths and channel roles of
// the configured session from the database.
func loadFromRegistry(db *sqlx.DB, config *paqalign.Configuration) error {
	if config.SessionID == "" {
		return errors.New("use_db requires a session id")
	}
	recording, err := paqalign.GetRecordingFromDB(db, config.SessionID)
	if err != nil {
		return fmt.Errorf("error reading recording from database: %w", err)
	}
	config.PaqFile = recording.PaqPath
	if recording.BehaviorPath != "" {
		config.BehaviorFile = recording.BehaviorPath
	}
	if recording.FluPath != "" {
		config.FluFile = recording.FluPath
	}
	if recording.ImagingRate > 0 {
		config.ImagingRate = recording.ImagingRate
	}
	if len(recording.TseriesLens) > 0 {
		config.TseriesLens = recording.TseriesLens
	}
	config.Rig = recording.Rig

	roles, err := paqalign.GetChannelRolesFromDB(db, recording.Rig)
	if err != nil {
		return fmt.Errorf("error reading channel roles from database: %w", err)
	}
	roles.Apply(config)
	return nil
}

type results struct {
	runID      string
	session    *paqalign.Session
	frameClock []int
	frames     []int
	rewards    []int
	licks      []int
	lickCounts []int
	anchors    []int
	tensor     *paqalign.Tensor
	kept       []int
}

func run(config paqalign.Configuration) error {
	res := &results{runID: uuid.New().String()}
	logger.Info(fmt.Sprintf("Run %s, session %q", res.runID, config.SessionID), "main")

	session, err := paqalign.ReadPaqFile(config.PaqFile, config.Limits)
	if err != nil {
		return err
	}
	params, err := config.ResolveParams(session.Rate)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if config.CorrectSwap {
		corrected, swap, err := paqalign.CorrectSessionSwap(session, config.FrameClock.Name, params.Swap)
		switch {
		case errors.Is(err, paqalign.ErrSwapInconclusive):
			logger.Error(fmt.Sprintf("Correction failed, check if correction is needed: %v", err))
		case err != nil:
			return err
		case swap.Swapped:
			session = corrected
		}
	}
	res.session = session

	if res.frameClock, err = paqalign.DetectChannel(session, config.FrameClock.Name, params.FrameClock); err != nil {
		return err
	}
	if res.rewards, err = paqalign.DetectChannel(session, config.Reward.Name, params.Reward); err != nil {
		return err
	}
	if res.licks, err = paqalign.DetectChannel(session, config.Lick.Name, params.Lick); err != nil {
		logger.Error(fmt.Sprintf("Licks not analysed: %v", err))
	}

	if config.WriteFrameFiles {
		if err := writeFrameFiles(session.Path, res); err != nil {
			return err
		}
	}

	res.frames = res.frameClock
	if len(config.TseriesLens) > 0 {
		tseries, err := paqalign.FindTseries(res.frameClock, config.TseriesLens, params.Tseries)
		if err != nil {
			return err
		}
		res.frames = tseries.Frames
	}
	if len(res.frames) == 0 {
		return fmt.Errorf("no imaging frames found on channel %s", config.FrameClock.Name)
	}

	var behavior *paqalign.BehaviorLog
	events := paqalign.EventTimes{Unit: paqalign.Samples, Rate: session.Rate}
	if config.BehaviorFile != "" {
		behavior, err = paqalign.ReadBehaviorLog(config.BehaviorFile, config.Columns)
		if err != nil {
			return err
		}
		events.Values = behavior.OnsetTimes()
		events.Unit = params.EventUnit
		if config.StimulusType != "" {
			events.Values = selectTrials(events.Values, behavior.OfType(config.StimulusType))
		}
	} else {
		events.Values = make([]float64, len(res.rewards))
		for i, r := range res.rewards {
			events.Values[i] = float64(r)
		}
	}

	alignment, err := paqalign.Reconcile(res.frames, events)
	if err != nil {
		return err
	}
	if gaps := alignment.Gaps(); len(gaps) > 0 {
		logger.Error(fmt.Sprintf("%d of %d events could not be placed on the frame clock", len(gaps), len(alignment.Events)))
	}
	res.anchors = paqalign.ExcludeCloseFrames(alignment.FrameIndices(), config.MinFrameGap)

	if behavior != nil && res.licks != nil {
		if err := binLicks(behavior, params, config, session.Rate, res); err != nil {
			logger.Error(fmt.Sprintf("Lick binning failed: %v", err))
		}
	}

	if config.FluFile != "" {
		flu, err := h5store.ReadFluorescence(config.FluFile, config.FluDataset)
		if err != nil {
			return err
		}
		res.tensor, res.kept, err = paqalign.SplitTrials(flu, res.anchors, params.Window)
		if err != nil {
			return err
		}
		cells, steps, trials := res.tensor.Shape()
		logger.Info(fmt.Sprintf("Trial tensor: %d cells x %d frames x %d trials (%d anchors)",
			cells, steps, trials, len(res.anchors)), "main")
	}

	if config.FileOut != "" {
		if err := writeResults(config, res); err != nil {
			return err
		}
	}
	logger.Info(fmt.Sprintf("%s frames, %s rewards, %s licks, %d aligned events",
		humanize.Comma(int64(len(res.frames))), humanize.Comma(int64(len(res.rewards))),
		humanize.Comma(int64(len(res.licks))), len(res.anchors)), "main")
	return nil
}

func selectTrials(values []float64, trials []int) []float64 {
	out := make([]float64, len(trials))
	for i, t := range trials {
		out[i] = values[t]
	}
	return out
}

func binLicks(behavior *paqalign.BehaviorLog, params *paqalign.Params, config paqalign.Configuration, rate int, res *results) error {
	starts, err := behavior.TrialStarts(params.Offset, rate)
	if err != nil {
		return err
	}
	binned := paqalign.BinLicks(res.licks, starts)
	if config.ScrubRewardLick {
		window, ok := params.Offset.Seconds()
		if !ok || window <= 0 {
			return errors.New("reward lick scrubbing needs a single positive pre_stim_seconds")
		}
		rewardOffsets, err := behavior.RewardOffsets(params.Offset, rate)
		if err != nil {
			return err
		}
		binned = paqalign.ScrubRewardLicks(binned, rewardOffsets, window*float64(rate))
	}
	res.lickCounts = paqalign.LickCounts(binned)
	return nil
}

func writeFrameFiles(source string, res *results) error {
	imagingFile := paqalign.FramesFilename(source, paqalign.ImagingFramesSuffix)
	if err := paqalign.WriteFrameIndices(imagingFile, res.frameClock); err != nil {
		return err
	}
	rewardFile := paqalign.FramesFilename(source, paqalign.RewardFramesSuffix)
	if err := paqalign.WriteFrameIndices(rewardFile, res.rewards); err != nil {
		return err
	}
	if VerbosityLevel > 0 {
		logger.Info(fmt.Sprintf("Saved files: %s, %s", imagingFile, rewardFile), "main")
	}
	return nil
}

func writeResults(config paqalign.Configuration, res *results) (err error) {
	writer, err := h5store.NewWriter(config.FileOut, config.CompressionLevel)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, writer.Close())
	}()

	err = writer.WriteRunInfo(h5store.RunInfo{
		RunID:       res.runID,
		SessionID:   config.SessionID,
		Rate:        res.session.Rate,
		ImagingRate: config.ImagingRate,
		NumFrames:   len(res.frames),
		Created:     time.Now(),
	})
	if err != nil {
		return err
	}
	events := map[string][]int{
		"frame_clock": res.frameClock,
		"frames":      res.frames,
		"reward":      res.rewards,
		"lick":        res.licks,
		"lick_counts": res.lickCounts,
		"anchors":     res.anchors,
	}
	names := maps.Keys(events)
	sort.Strings(names)
	for _, name := range names {
		if err := writer.WriteEvents(name, events[name]); err != nil {
			return err
		}
	}
	if res.tensor != nil && res.tensor.Cells > 0 {
		if err := writer.WriteTrials("flu", res.tensor, res.kept); err != nil {
			return err
		}
	}
	logger.Info(fmt.Sprintf("Results written to %s", config.FileOut), "main")
	return nil
}
