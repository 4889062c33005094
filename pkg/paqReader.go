package paqalign

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/dustin/go-humanize"
)

// ReaderLimits guards the header parser against corrupt files, where a
// garbage float can turn into a length of billions.
type ReaderLimits struct {
	MaxFileSize   datasize.ByteSize `json:"max_file_size"`
	MaxChannels   int               `json:"max_channels"`
	MaxNameLength int               `json:"max_name_length"`
}

func DefaultReaderLimits() ReaderLimits {
	return ReaderLimits{
		MaxFileSize:   8 * datasize.GB,
		MaxChannels:   64,
		MaxNameLength: 256,
	}
}

type paqHeaderReader struct {
	r      *bufio.Reader
	offset int64
	buf    [4]byte
}

func (h *paqHeaderReader) readFloat() (float32, error) {
	n, err := io.ReadFull(h.r, h.buf[:])
	h.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, &FormatError{Offset: h.offset, Reason: "truncated header", Err: io.ErrUnexpectedEOF}
		}
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(h.buf[:])), nil
}

// readCount reads a float32 that encodes a non-negative whole number no
// larger than max.
func (h *paqHeaderReader) readCount(what string, max int) (int, error) {
	start := h.offset
	value, err := h.readFloat()
	if err != nil {
		return 0, err
	}
	v := float64(value)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &FormatError{Offset: start, Reason: fmt.Sprintf("%s is not finite", what)}
	}
	if v < 0 {
		return 0, &FormatError{Offset: start, Reason: fmt.Sprintf("negative %s %g", what, v)}
	}
	if v != math.Trunc(v) {
		return 0, &FormatError{Offset: start, Reason: fmt.Sprintf("non-integral %s %g", what, v)}
	}
	if v > float64(max) {
		return 0, &FormatError{Offset: start, Reason: fmt.Sprintf("%s %g exceeds limit %d", what, v, max)}
	}
	return int(v), nil
}

func (h *paqHeaderReader) readString(maxLength int) (string, error) {
	nChars, err := h.readCount("name length", maxLength)
	if err != nil {
		return "", err
	}
	runes := make([]rune, nChars)
	for i := range runes {
		start := h.offset
		code, err := h.readFloat()
		if err != nil {
			return "", err
		}
		c := float64(code)
		if math.IsNaN(c) || c < 0 || c > math.MaxInt32 {
			return "", &FormatError{Offset: start, Reason: fmt.Sprintf("invalid character code %g", c)}
		}
		runes[i] = rune(int32(c))
	}
	return string(runes), nil
}

func (h *paqHeaderReader) readStrings(n int, maxLength int) ([]string, error) {
	out := make([]string, n)
	for i := range out {
		s, err := h.readString(maxLength)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// ReadPaq parses a PackIO acquisition stream: big-endian float32 rate and
// channel count, then channel names, hardware lines and units as
// length-prefixed character codes, then the sample block interleaved
// sample-major (s0c0 s0c1 ... s1c0 ...).
func ReadPaq(r io.Reader, limits ReaderLimits) (*Session, error) {
	h := &paqHeaderReader{r: bufio.NewReaderSize(r, 1<<16)}

	rateStart := h.offset
	rawRate, err := h.readFloat()
	if err != nil {
		return nil, err
	}
	rate := float64(rawRate)
	if math.IsNaN(rate) || rate < 1 || rate > math.MaxInt32 {
		return nil, &FormatError{Offset: rateStart, Reason: fmt.Sprintf("invalid sample rate %g", rate)}
	}

	nChannels, err := h.readCount("channel count", limits.MaxChannels)
	if err != nil {
		return nil, err
	}
	if nChannels == 0 {
		return nil, &FormatError{Offset: h.offset - 4, Reason: "file declares zero channels"}
	}

	names, err := h.readStrings(nChannels, limits.MaxNameLength)
	if err != nil {
		return nil, err
	}
	hwLines, err := h.readStrings(nChannels, limits.MaxNameLength)
	if err != nil {
		return nil, err
	}
	units, err := h.readStrings(nChannels, limits.MaxNameLength)
	if err != nil {
		return nil, err
	}

	dataStart := h.offset
	raw, err := io.ReadAll(h.r)
	if err != nil {
		return nil, fmt.Errorf("error reading sample block: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, &FormatError{Offset: dataStart, Reason: fmt.Sprintf("sample block of %d bytes is not a whole number of float32 values", len(raw))}
	}
	nValues := len(raw) / 4
	if nValues%nChannels != 0 {
		return nil, &FormatError{Offset: dataStart, Reason: fmt.Sprintf("%d samples cannot be split across %d channels", nValues, nChannels)}
	}
	nSamples := nValues / nChannels

	session := &Session{Rate: int(rate), Channels: make([]Channel, nChannels)}
	for c := 0; c < nChannels; c++ {
		session.Channels[c] = Channel{
			Name:         names[c],
			HardwareLine: hwLines[c],
			Unit:         units[c],
			Samples:      make([]float64, nSamples),
		}
	}
	for i := 0; i < nValues; i++ {
		value := math.Float32frombits(binary.BigEndian.Uint32(raw[4*i:]))
		session.Channels[i%nChannels].Samples[i/nChannels] = float64(value)
	}

	if configuration.Verbosity > 1 {
		message := fmt.Sprintf("Parsed %d channels %v at %d Hz, %s samples per channel",
			nChannels, names, session.Rate, humanize.Comma(int64(nSamples)))
		logger.Info(message, "paqReader")
	}
	return session, nil
}

// ReadPaqFile opens, parses and closes a .paq file.
func ReadPaqFile(filename string, limits ReaderLimits) (*Session, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("error getting file info: %w", err)
	}
	if limits.MaxFileSize > 0 && uint64(fileInfo.Size()) > limits.MaxFileSize.Bytes() {
		return nil, &FormatError{Reason: fmt.Sprintf("file size %s exceeds limit %s",
			humanize.Bytes(uint64(fileInfo.Size())), limits.MaxFileSize.HumanReadable())}
	}
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reading %s (%s)", filename, humanize.Bytes(uint64(fileInfo.Size())))
		logger.Info(message, "paqReader")
	}

	session, err := ReadPaq(file, limits)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", filename, err)
	}
	session.Path = filename
	return session, nil
}

// WritePaq encodes a session in the PackIO layout. Used to produce fixtures
// and to save corrected sessions.
func WritePaq(w io.Writer, s *Session) error {
	bw := bufio.NewWriter(w)
	var buf [4]byte
	put := func(v float32) error {
		binary.BigEndian.PutUint32(buf[:], math.Float32bits(v))
		_, err := bw.Write(buf[:])
		return err
	}
	putString := func(str string) error {
		runes := []rune(str)
		if err := put(float32(len(runes))); err != nil {
			return err
		}
		for _, r := range runes {
			if err := put(float32(r)); err != nil {
				return err
			}
		}
		return nil
	}

	if err := put(float32(s.Rate)); err != nil {
		return err
	}
	if err := put(float32(len(s.Channels))); err != nil {
		return err
	}
	for _, field := range []func(Channel) string{
		func(c Channel) string { return c.Name },
		func(c Channel) string { return c.HardwareLine },
		func(c Channel) string { return c.Unit },
	} {
		for _, ch := range s.Channels {
			if err := putString(field(ch)); err != nil {
				return err
			}
		}
	}
	nSamples := s.NumSamples()
	for i := 0; i < nSamples; i++ {
		for _, ch := range s.Channels {
			if len(ch.Samples) != nSamples {
				return fmt.Errorf("channel %q has %d samples, expected %d", ch.Name, len(ch.Samples), nSamples)
			}
			if err := put(float32(ch.Samples[i])); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
