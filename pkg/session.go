package paqalign

import (
	"fmt"
	"strings"
)

// Channel is one named acquisition line of a session. Samples must not be
// modified once the session has been read.
type Channel struct {
	Name         string
	HardwareLine string
	Unit         string
	Samples      []float64
}

type Session struct {
	Path     string
	Rate     int
	Channels []Channel
}

func (s *Session) NumSamples() int {
	if len(s.Channels) == 0 {
		return 0
	}
	return len(s.Channels[0].Samples)
}

func (s *Session) ChannelNames() []string {
	names := make([]string, len(s.Channels))
	for i, ch := range s.Channels {
		names[i] = ch.Name
	}
	return names
}

// ChannelIndex matches names case-insensitively, PackIO users are not
// consistent about capitalisation between rigs.
func (s *Session) ChannelIndex(name string) (int, error) {
	for i, ch := range s.Channels {
		if ch.Name == name {
			return i, nil
		}
	}
	for i, ch := range s.Channels {
		if strings.EqualFold(ch.Name, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w %q, available: %v", ErrUnknownChannel, name, s.ChannelNames())
}

func (s *Session) Channel(name string) (*Channel, error) {
	idx, err := s.ChannelIndex(name)
	if err != nil {
		return nil, err
	}
	return &s.Channels[idx], nil
}

// Data returns the sample rows in channel order. The rows alias the session
// samples.
func (s *Session) Data() [][]float64 {
	rows := make([][]float64, len(s.Channels))
	for i, ch := range s.Channels {
		rows[i] = ch.Samples
	}
	return rows
}

// WithData returns a copy of the session metadata pointing at new sample rows.
func (s *Session) WithData(rows [][]float64) (*Session, error) {
	if len(rows) != len(s.Channels) {
		return nil, fmt.Errorf("session has %d channels, got %d rows", len(s.Channels), len(rows))
	}
	out := &Session{Path: s.Path, Rate: s.Rate, Channels: make([]Channel, len(s.Channels))}
	for i, ch := range s.Channels {
		out.Channels[i] = Channel{
			Name:         ch.Name,
			HardwareLine: ch.HardwareLine,
			Unit:         ch.Unit,
			Samples:      rows[i],
		}
	}
	return out, nil
}
