package h5store

import (
	"errors"
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
	"gonum.org/v1/gonum/mat"
)

const STRLEN = 40

// H5S_UNLIMITED is -1L
const unlimited = ^uint(0)

type ErrCreateGroup struct {
	Group string
	Err   error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %s: %v", e.Group, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error {
	return e.Err
}

type ErrCreateDataset struct {
	Dataset string
	Err     error
}

func (e *ErrCreateDataset) Error() string {
	return fmt.Sprintf("error creating dataset %s: %v", e.Dataset, e.Err)
}

func (e *ErrCreateDataset) Unwrap() error {
	return e.Err
}

func convertToHdf5String(s string) [STRLEN]byte {
	var byteArray [STRLEN]byte
	copy(byteArray[:], s)
	return byteArray
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{Group: groupName, Err: err}
	}
	return g, nil
}

// chunkSize caps every dimension at limit, never returning zero.
func chunkSize(n int, limit int) uint {
	switch {
	case n <= 0:
		return 1
	case n > limit:
		return uint(limit)
	}
	return uint(n)
}

func createDataset(group *hdf5.Group, name string, dtype *hdf5.Datatype,
	dims []uint, maxDims []uint, chunks []uint, compression int) (*hdf5.Dataset, error) {
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateDataset{Dataset: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateDataset{Dataset: name, Err: err}
	}
	defer plist.Close()

	if err := plist.SetChunk(chunks); err != nil {
		return nil, &ErrCreateDataset{Dataset: name, Err: err}
	}
	if compression > 0 {
		if err := plist.SetDeflate(compression); err != nil {
			return nil, &ErrCreateDataset{Dataset: name, Err: err}
		}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateDataset{Dataset: name, Err: err}
	}
	return dset, nil
}

// createTable makes an extendable 1d dataset of the compound type of
// datatype.
func createTable(group *hdf5.Group, name string, datatype interface{}, compression int) (*hdf5.Dataset, error) {
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateDataset{Dataset: name, Err: err}
	}
	return createDataset(group, name, dtype, []uint{0}, []uint{unlimited}, []uint{32768}, compression)
}

// writeSlab grows dataset to dims and writes data into it. data must hold
// exactly the product of dims values.
func writeSlab[T any](dataset *hdf5.Dataset, data *[]T, dims []uint) error {
	if err := dataset.Resize(dims); err != nil {
		return fmt.Errorf("error resizing dataset: %w", err)
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := make([]uint, len(dims))
	if err := filespace.SelectHyperslab(start, nil, dims, nil); err != nil {
		return fmt.Errorf("error selecting hyperslab: %w", err)
	}

	dataspace, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return fmt.Errorf("error creating memory dataspace: %w", err)
	}
	defer dataspace.Close()

	if err := dataset.WriteSubset(data, dataspace, filespace); err != nil {
		return fmt.Errorf("error writing dataset: %w", err)
	}
	return nil
}

// ReadFluorescence loads a 2d [cell][frame] dataset.
func ReadFluorescence(path string, dataset string) (m *mat.Dense, err error) {
	file, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("error opening file %q: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	dset, err := file.OpenDataset(dataset)
	if err != nil {
		return nil, fmt.Errorf("error opening dataset %s in %s: %w", dataset, path, err)
	}
	defer func() {
		err = errors.Join(err, dset.Close())
	}()

	space := dset.Space()
	dims, _, err := space.SimpleExtentDims()
	space.Close()
	if err != nil {
		return nil, fmt.Errorf("error reading dimensions of %s: %w", dataset, err)
	}
	if len(dims) != 2 || dims[0] == 0 || dims[1] == 0 {
		return nil, fmt.Errorf("dataset %s has shape %v, expected a non-empty [cell][frame] matrix", dataset, dims)
	}

	data := make([]float64, dims[0]*dims[1])
	if err := dset.Read(&data); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", dataset, err)
	}
	return mat.NewDense(int(dims[0]), int(dims[1]), data), nil
}

// WriteFluorescence stores a [cell][frame] matrix, used to build inputs for
// ReadFluorescence.
func WriteFluorescence(path string, dataset string, m mat.Matrix) (err error) {
	file, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return fmt.Errorf("error creating file %q: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	rows, cols := m.Dims()
	data := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			data = append(data, m.At(r, c))
		}
	}
	dims := []uint{uint(rows), uint(cols)}
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return &ErrCreateDataset{Dataset: dataset, Err: err}
	}
	defer space.Close()

	dset, err := file.CreateDataset(dataset, hdf5.T_NATIVE_DOUBLE, space)
	if err != nil {
		return &ErrCreateDataset{Dataset: dataset, Err: err}
	}
	defer func() {
		err = errors.Join(err, dset.Close())
	}()
	return dset.Write(&data)
}
