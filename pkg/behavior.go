package paqalign

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// BehaviorColumns names the columns read from the behaviour log. RewardTime
// is optional.
type BehaviorColumns struct {
	Onset        string `json:"onset"`
	StimulusType string `json:"stimulus_type"`
	RewardVolume string `json:"reward_volume"`
	RewardTime   string `json:"reward_time"`
}

func DefaultBehaviorColumns() BehaviorColumns {
	return BehaviorColumns{
		Onset:        "stimulusOnsetTime",
		StimulusType: "stimulusType",
		RewardVolume: "rewardVolume",
		RewardTime:   "rewardTime",
	}
}

// BehaviorTrial is one row of the behaviour log. Missing numeric cells are
// NaN.
type BehaviorTrial struct {
	Onset        float64
	StimulusType string
	RewardVolume float64
	RewardTime   float64
}

type BehaviorLog struct {
	Path   string
	Trials []BehaviorTrial
}

// ReadBehaviorLog reads a per-trial table from a .csv or .xlsx file. The
// first sheet is used for workbooks.
func ReadBehaviorLog(path string, cols BehaviorColumns) (*BehaviorLog, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSVRows(path)
	case ".xlsx":
		rows, err = readXLSXRows(path)
	default:
		return nil, fmt.Errorf("unsupported behavior log type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	behavior, err := parseBehaviorRows(rows, cols)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	behavior.Path = path
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Read %d trials from %s", len(behavior.Trials), path), "behavior")
	}
	return behavior, nil
}

func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ErrOpenFile{Filename: path, Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows := make([][]string, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", path, err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ErrOpenFile{Filename: path, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %q of %s: %w", sheets[0], path, err)
	}
	return rows, nil
}

func parseBehaviorRows(rows [][]string, cols BehaviorColumns) (*BehaviorLog, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrMissingColumn)
	}
	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.TrimSpace(name)] = i
	}
	column := func(name string, required bool) (int, error) {
		idx, ok := header[name]
		if !ok && required {
			return -1, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
		if !ok {
			return -1, nil
		}
		return idx, nil
	}

	onset, err := column(cols.Onset, true)
	if err != nil {
		return nil, err
	}
	stimType, err := column(cols.StimulusType, true)
	if err != nil {
		return nil, err
	}
	volume, err := column(cols.RewardVolume, true)
	if err != nil {
		return nil, err
	}
	rewardTime, _ := column(cols.RewardTime, false)

	behavior := &BehaviorLog{Trials: make([]BehaviorTrial, 0, len(rows)-1)}
	for r, row := range rows[1:] {
		cell := func(idx int) string {
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		trial := BehaviorTrial{StimulusType: cell(stimType)}
		if trial.Onset, err = parseCell(cell(onset)); err != nil {
			return nil, fmt.Errorf("row %d, column %q: %w", r+2, cols.Onset, err)
		}
		if trial.RewardVolume, err = parseCell(cell(volume)); err != nil {
			return nil, fmt.Errorf("row %d, column %q: %w", r+2, cols.RewardVolume, err)
		}
		if trial.RewardTime, err = parseCell(cell(rewardTime)); err != nil {
			return nil, fmt.Errorf("row %d, column %q: %w", r+2, cols.RewardTime, err)
		}
		behavior.Trials = append(behavior.Trials, trial)
	}
	return behavior, nil
}

// parseCell reads a numeric cell. Empty and NaN cells are NaN.
func parseCell(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func (b *BehaviorLog) OnsetTimes() []float64 {
	out := make([]float64, len(b.Trials))
	for i, t := range b.Trials {
		out[i] = t.Onset
	}
	return out
}

// Rewarded reports, per trial, whether a positive reward volume was given.
func (b *BehaviorLog) Rewarded() []bool {
	out := make([]bool, len(b.Trials))
	for i, t := range b.Trials {
		out[i] = t.RewardVolume > 0
	}
	return out
}

// OfType returns the indices of trials with the given stimulus label.
func (b *BehaviorLog) OfType(label string) []int {
	out := make([]int, 0)
	for i, t := range b.Trials {
		if t.StimulusType == label {
			out = append(out, i)
		}
	}
	return out
}

// TrialStarts converts onsets to samples after subtracting the pre-stimulus
// offset of each trial.
func (b *BehaviorLog) TrialStarts(offset Offset, rate int) ([]float64, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadRate, rate)
	}
	offsets, err := offset.Resolve(len(b.Trials))
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(b.Trials))
	for i, t := range b.Trials {
		out[i] = (t.Onset - offsets[i]) * float64(rate)
	}
	return out, nil
}

// RewardOffsets returns, in samples from each trial start, when the reward
// was delivered. Unrewarded trials and trials without a reward time are NaN.
func (b *BehaviorLog) RewardOffsets(offset Offset, rate int) ([]float64, error) {
	offsets, err := offset.Resolve(len(b.Trials))
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(b.Trials))
	for i, t := range b.Trials {
		out[i] = math.NaN()
		if t.RewardVolume > 0 && !math.IsNaN(t.RewardTime) {
			out[i] = (offsets[i] + t.RewardTime - t.Onset) * float64(rate)
		}
	}
	return out, nil
}

type OffsetKind int

const (
	OffsetUnset OffsetKind = iota
	OffsetSingle
	OffsetPerTrial
)

// Offset is the pre-stimulus time subtracted from each onset: none, one value
// for every trial, or one value per trial.
type Offset struct {
	kind     OffsetKind
	single   float64
	perTrial []float64
}

func NoOffset() Offset { return Offset{} }

func SingleOffset(seconds float64) Offset {
	return Offset{kind: OffsetSingle, single: seconds}
}

func PerTrialOffset(seconds []float64) Offset {
	values := make([]float64, len(seconds))
	copy(values, seconds)
	return Offset{kind: OffsetPerTrial, perTrial: values}
}

func (o Offset) Kind() OffsetKind { return o.kind }

// Resolve expands the offset to one value per trial.
func (o Offset) Resolve(trials int) ([]float64, error) {
	out := make([]float64, trials)
	switch o.kind {
	case OffsetUnset:
	case OffsetSingle:
		for i := range out {
			out[i] = o.single
		}
	case OffsetPerTrial:
		if len(o.perTrial) != trials {
			return nil, fmt.Errorf("%w: %d offsets for %d trials", ErrOffsetLength, len(o.perTrial), trials)
		}
		copy(out, o.perTrial)
	default:
		return nil, fmt.Errorf("unknown offset kind %d", o.kind)
	}
	return out, nil
}

// Seconds returns the single offset, or 0 when unset. Per-trial offsets have
// no single value.
func (o Offset) Seconds() (float64, bool) {
	switch o.kind {
	case OffsetUnset:
		return 0, true
	case OffsetSingle:
		return o.single, true
	}
	return 0, false
}
