package paqalign_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	paqalign "github.com/brainbox-lab/paqalign/pkg"
)

// paqBytes encodes raw big-endian float32 values.
func paqBytes(values ...float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func newSession(rate int, names []string, rows ...[]float64) *paqalign.Session {
	s := &paqalign.Session{Rate: rate}
	for i, name := range names {
		s.Channels = append(s.Channels, paqalign.Channel{
			Name:         name,
			HardwareLine: "ai" + string(rune('0'+i)),
			Unit:         "V",
			Samples:      rows[i],
		})
	}
	return s
}

func writePaqFile(t *testing.T, s *paqalign.Session) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, paqalign.WritePaq(&buf, s))
	path := filepath.Join(t.TempDir(), "session.paq")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// pulses returns n samples that are high for width samples at every start.
func pulses(n int, level float64, width int, starts ...int) []float64 {
	out := make([]float64, n)
	for _, s := range starts {
		for k := s; k < s+width && k < n; k++ {
			out[k] = level
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }
