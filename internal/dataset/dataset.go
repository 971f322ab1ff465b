// Package dataset parses the whitespace-delimited numeric tables produced
// by the simulation stage into matrices, one per chemical-potential sample.
package dataset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/arvelk/muflow/internal/frames"
)

var (
	ErrMalformedData     = errors.New("malformed data file")
	ErrInconsistentShape = errors.New("inconsistent matrix shape")
)

// Matrix is one parsed 2D slice of eigenvalue or Berry-curvature data over
// the momentum mesh, stored row-major.
type Matrix struct {
	Rows, Cols int
	Data       []float64
	Min, Max   float64
}

func (m *Matrix) At(row, col int) float64 {
	return m.Data[row*m.Cols+col]
}

// SampleNearest returns the value nearest to the fractional grid position
// (u, v) in [0,1]^2, u along columns and v along rows.
func (m *Matrix) SampleNearest(u, v float64) float64 {
	col := clampIdx(int(u*float64(m.Cols-1)+0.5), m.Cols)
	row := clampIdx(int(v*float64(m.Rows-1)+0.5), m.Rows)
	return m.At(row, col)
}

// SampleBilinear interpolates between the four grid values surrounding the
// fractional position (u, v).
func (m *Matrix) SampleBilinear(u, v float64) float64 {
	fc := u * float64(m.Cols-1)
	fr := v * float64(m.Rows-1)
	c0 := clampIdx(int(fc), m.Cols)
	r0 := clampIdx(int(fr), m.Rows)
	c1 := clampIdx(c0+1, m.Cols)
	r1 := clampIdx(r0+1, m.Rows)
	du := fc - float64(c0)
	dv := fr - float64(r0)

	top := m.At(r0, c0)*(1-du) + m.At(r0, c1)*du
	bot := m.At(r1, c0)*(1-du) + m.At(r1, c1)*du
	return top*(1-dv) + bot*dv
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Sequence is the ordered collection of matrices for one scan. Note the
// order: highest-µ frame first (see Importer.ImportAll).
type Sequence []*Matrix

// MinMax returns the value extremes across the whole sequence.
func (s Sequence) MinMax() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, m := range s {
		if m.Min < lo {
			lo = m.Min
		}
		if m.Max > hi {
			hi = m.Max
		}
	}
	return lo, hi
}

// Importer parses sorted frame lists into sequences, memoizing per list so
// that re-renders with tweaked options never re-read the filesystem.
// ReadFile defaults to os.ReadFile and is replaceable in tests.
type Importer struct {
	ReadFile func(string) ([]byte, error)

	mu    sync.Mutex
	cache map[string]Sequence
}

func NewImporter() *Importer {
	return &Importer{
		ReadFile: os.ReadFile,
		cache:    make(map[string]Sequence),
	}
}

// ImportAll parses every file of the sorted list and returns the matrices
// with the sequence reversed: ascending µ sort order in, highest µ first
// out. The reversal matches the order the original pipeline always rendered
// in and is part of the output contract, not an artifact to fix.
func (imp *Importer) ImportAll(list frames.List) (Sequence, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: empty frame list", frames.ErrEmptyInput)
	}

	key := strings.Join(list.Paths(), "\x00")

	imp.mu.Lock()
	defer imp.mu.Unlock()
	if cached, ok := imp.cache[key]; ok {
		return cached, nil
	}

	seq := make(Sequence, len(list))
	var expected *Matrix
	for i, src := range list {
		m, err := imp.parseFile(src)
		if err != nil {
			return nil, err
		}
		if expected == nil {
			expected = m
		} else if m.Rows != expected.Rows || m.Cols != expected.Cols {
			return nil, fmt.Errorf("%w: expected %dx%d (from %s), got %dx%d in %s",
				ErrInconsistentShape, expected.Rows, expected.Cols,
				list[0].Name, m.Rows, m.Cols, src.Name)
		}
		// Reversed placement: last sorted file lands at index 0.
		seq[len(list)-1-i] = m
	}

	imp.cache[key] = seq
	return seq, nil
}

func (imp *Importer) parseFile(src frames.Source) (*Matrix, error) {
	data, err := imp.ReadFile(src.Path)
	if err != nil {
		return nil, err
	}

	m := &Matrix{Min: math.Inf(1), Max: math.Inf(-1)}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	row := 0
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if m.Cols == 0 {
			m.Cols = len(fields)
		} else if len(fields) != m.Cols {
			return nil, fmt.Errorf("%w: %s: row %d has %d values, want %d",
				ErrInconsistentShape, src.Name, row+1, len(fields), m.Cols)
		}
		for col, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: row %d, col %d: %q",
					ErrMalformedData, src.Name, row+1, col+1, tok)
			}
			m.Data = append(m.Data, v)
			if v < m.Min {
				m.Min = v
			}
			if v > m.Max {
				m.Max = v
			}
		}
		row++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedData, src.Name, err)
	}
	if row == 0 {
		return nil, fmt.Errorf("%w: %s: no rows", ErrMalformedData, src.Name)
	}
	m.Rows = row
	return m, nil
}
