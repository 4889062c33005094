package paqalign

import (
	"errors"
	"fmt"
)

// ChannelConfig selects a paq channel and its detection parameters. Nil
// pointers leave the matching option unset.
type ChannelConfig struct {
	Name      string   `json:"name"`
	Threshold float64  `json:"threshold"`
	Cutoff    *float64 `json:"cutoff"`
	Distance  *float64 `json:"distance"`
}

func (c ChannelConfig) DetectParams() DetectParams {
	return DetectParams{
		Threshold: c.Threshold,
		Cutoff:    LimitFrom(c.Cutoff),
		Distance:  LimitFrom(c.Distance),
	}
}

type Configuration struct {
	Verbosity       int          `json:"verbosity"`
	SessionID       string       `json:"session_id"`
	PaqFile         string       `json:"paq_file"`
	BehaviorFile    string       `json:"behavior_file"`
	FluFile         string       `json:"flu_file"`
	FluDataset      string       `json:"flu_dataset"`
	FileOut         string       `json:"file_out"`
	WriteFrameFiles bool         `json:"write_frame_files"`
	Limits          ReaderLimits `json:"limits"`

	UseDB  bool   `json:"use_db"`
	Host   string `json:"host"`
	User   string `json:"user"`
	Passwd string `json:"pass"`
	DBName string `json:"dbname"`
	Rig    string `json:"rig"`

	NumWorkers       int `json:"num_workers"`
	CompressionLevel int `json:"compression_level"`

	FrameClock ChannelConfig `json:"frame_clock"`
	Reward     ChannelConfig `json:"reward"`
	Lick       ChannelConfig `json:"lick"`

	CorrectSwap bool    `json:"correct_swap"`
	ImagingRate float64 `json:"imaging_rate"`

	TseriesLens []int   `json:"tseries_lens"`
	GapSeconds  float64 `json:"gap_seconds"`
	BonusLimit  int     `json:"bonus_limit"`

	Columns         BehaviorColumns `json:"columns"`
	EventUnit       string          `json:"event_unit"`
	PreStimSeconds  *float64        `json:"pre_stim_seconds"`
	PreStimPerTrial []float64       `json:"pre_stim_per_trial"`
	StimulusType    string          `json:"stimulus_type"`
	PreFrames       int             `json:"pre_frames"`
	PostFrames      int             `json:"post_frames"`
	MinFrameGap     int             `json:"min_frame_gap"`
	ScrubRewardLick bool            `json:"scrub_reward_lick"`
}

var configuration Configuration

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

// Params holds the validated component parameters derived from a
// Configuration. Rate-dependent params are filled in once the paq sample
// rate is known.
type Params struct {
	FrameClock DetectParams
	Reward     DetectParams
	Lick       DetectParams
	Window     Window
	EventUnit  TimeUnit
	Offset     Offset
	Tseries    TseriesParams
	Swap       SwapParams
}

// ResolveParams turns the optional JSON fields into typed parameters and
// validates every component up front.
func (c Configuration) ResolveParams(rate int) (*Params, error) {
	var errs []error
	p := &Params{
		FrameClock: c.FrameClock.DetectParams(),
		Reward:     c.Reward.DetectParams(),
		Lick:       c.Lick.DetectParams(),
		Window:     Window{Pre: c.PreFrames, Post: c.PostFrames},
		Tseries:    TseriesParams{Rate: rate, GapSeconds: c.GapSeconds, BonusLimit: c.BonusLimit},
		Swap:       DefaultSwapParams(0, rate, c.ImagingRate),
	}

	for name, detect := range map[string]DetectParams{
		"frame_clock": p.FrameClock,
		"reward":      p.Reward,
		"lick":        p.Lick,
	} {
		if err := detect.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if err := p.Window.Validate(); err != nil {
		errs = append(errs, err)
	}

	unit, err := ParseTimeUnit(c.EventUnit)
	if err != nil {
		errs = append(errs, err)
	}
	p.EventUnit = unit

	switch {
	case c.PreStimSeconds != nil && len(c.PreStimPerTrial) > 0:
		errs = append(errs, errors.New("pre_stim_seconds and pre_stim_per_trial are mutually exclusive"))
	case c.PreStimSeconds != nil:
		p.Offset = SingleOffset(*c.PreStimSeconds)
	case len(c.PreStimPerTrial) > 0:
		p.Offset = PerTrialOffset(c.PreStimPerTrial)
	default:
		p.Offset = NoOffset()
	}

	if len(c.TseriesLens) > 0 {
		if err := p.Tseries.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tseries: %w", err))
		}
	}
	if c.CorrectSwap {
		if err := p.Swap.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("swap: %w", err))
		}
	}
	if c.MinFrameGap < 0 {
		errs = append(errs, fmt.Errorf("min_frame_gap must be non-negative, got %d", c.MinFrameGap))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return p, nil
}
