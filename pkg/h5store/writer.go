package h5store

import (
	"errors"
	"fmt"
	"time"

	hdf5 "github.com/jmbenlloch/go-hdf5"

	paqalign "github.com/brainbox-lab/paqalign/pkg"
)

type runInfoHDF5 struct {
	runID       [STRLEN]byte
	sessionID   [STRLEN]byte
	rate        int32
	imagingRate float64
	nFrames     int32
	created     int64
}

type RunInfo struct {
	RunID       string
	SessionID   string
	Rate        int
	ImagingRate float64
	NumFrames   int
	Created     time.Time
}

// Writer stores the results of one aligner run under the /Run, /Events and
// /Trials groups.
type Writer struct {
	File         *hdf5.File
	Filename     string
	Compression  int
	RunGroup     *hdf5.Group
	EventsGroup  *hdf5.Group
	TrialsGroup  *hdf5.Group
	RunInfoTable *hdf5.Dataset
	Datasets     []*hdf5.Dataset
}

func NewWriter(filename string, compression int) (*Writer, error) {
	hdf5.SetStringLength(STRLEN)

	file, err := hdf5.CreateFile(filename, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, fmt.Errorf("error creating file %q: %w", filename, err)
	}
	writer := &Writer{File: file, Filename: filename, Compression: compression}

	if writer.RunGroup, err = createGroup(file, "Run"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	if writer.EventsGroup, err = createGroup(file, "Events"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	if writer.TrialsGroup, err = createGroup(file, "Trials"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	if writer.RunInfoTable, err = createTable(writer.RunGroup, "runInfo", runInfoHDF5{}, compression); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	return writer, nil
}

func (w *Writer) WriteRunInfo(info RunInfo) error {
	entries := []runInfoHDF5{{
		runID:       convertToHdf5String(info.RunID),
		sessionID:   convertToHdf5String(info.SessionID),
		rate:        int32(info.Rate),
		imagingRate: info.ImagingRate,
		nFrames:     int32(info.NumFrames),
		created:     info.Created.Unix(),
	}}
	if err := writeSlab(w.RunInfoTable, &entries, []uint{1}); err != nil {
		return fmt.Errorf("error writing run info: %w", err)
	}
	return nil
}

// WriteEvents stores a list of sample or frame indices as /Events/<name>.
func (w *Writer) WriteEvents(name string, indices []int) error {
	dset, err := createDataset(w.EventsGroup, name, hdf5.T_NATIVE_INT64,
		[]uint{0}, []uint{unlimited}, []uint{chunkSize(len(indices), 32768)}, w.Compression)
	if err != nil {
		return err
	}
	w.Datasets = append(w.Datasets, dset)
	if len(indices) == 0 {
		return nil
	}

	data := make([]int64, len(indices))
	for i, v := range indices {
		data[i] = int64(v)
	}
	if err := writeSlab(dset, &data, []uint{uint(len(data))}); err != nil {
		return fmt.Errorf("error writing events %s: %w", name, err)
	}
	return nil
}

// WriteTrials stores the [cell][time][trial] tensor as /Trials/<name> and the
// anchors that produced it as /Trials/<name>_anchors.
func (w *Writer) WriteTrials(name string, tensor *paqalign.Tensor, anchors []int) error {
	if len(anchors) != tensor.Trials {
		return fmt.Errorf("tensor %s has %d trials but %d anchors", name, tensor.Trials, len(anchors))
	}
	if tensor.Cells == 0 || tensor.Time == 0 {
		return fmt.Errorf("tensor %s is empty: %d cells, %d time points", name, tensor.Cells, tensor.Time)
	}

	dims := []uint{uint(tensor.Cells), uint(tensor.Time), 0}
	maxDims := []uint{uint(tensor.Cells), uint(tensor.Time), unlimited}
	chunks := []uint{chunkSize(tensor.Cells, 64), uint(tensor.Time), 1}
	dset, err := createDataset(w.TrialsGroup, name, hdf5.T_NATIVE_DOUBLE, dims, maxDims, chunks, w.Compression)
	if err != nil {
		return err
	}
	w.Datasets = append(w.Datasets, dset)

	if tensor.Trials > 0 {
		dims[2] = uint(tensor.Trials)
		if err := writeSlab(dset, &tensor.Data, dims); err != nil {
			return fmt.Errorf("error writing trials %s: %w", name, err)
		}
	}

	anchorsName := name + "_anchors"
	anchorSet, err := createDataset(w.TrialsGroup, anchorsName, hdf5.T_NATIVE_INT64,
		[]uint{0}, []uint{unlimited}, []uint{chunkSize(len(anchors), 32768)}, w.Compression)
	if err != nil {
		return err
	}
	w.Datasets = append(w.Datasets, anchorSet)
	if len(anchors) == 0 {
		return nil
	}
	data := make([]int64, len(anchors))
	for i, a := range anchors {
		data[i] = int64(a)
	}
	if err := writeSlab(anchorSet, &data, []uint{uint(len(data))}); err != nil {
		return fmt.Errorf("error writing anchors %s: %w", anchorsName, err)
	}
	return nil
}

func (w *Writer) Close() error {
	var errs []error

	for _, dset := range w.Datasets {
		if err := dset.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing dataset: %w", err))
		}
	}
	if w.RunInfoTable != nil {
		if err := w.RunInfoTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing run info table: %w", err))
		}
	}
	for name, group := range map[string]*hdf5.Group{
		"run":    w.RunGroup,
		"events": w.EventsGroup,
		"trials": w.TrialsGroup,
	} {
		if group == nil {
			continue
		}
		if err := group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s group: %w", name, err))
		}
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
