package dataset

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arvelk/muflow/internal/frames"
)

// stubImporter reads from an in-memory file map and counts every read, so
// tests can verify the importer never touches the filesystem twice.
func stubImporter(files map[string]string) (*Importer, *int) {
	reads := 0
	imp := NewImporter()
	imp.ReadFile = func(path string) ([]byte, error) {
		reads++
		content, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("no such file: %s", path)
		}
		return []byte(content), nil
	}
	return imp, &reads
}

func listFor(paths ...string) frames.List {
	list := make(frames.List, len(paths))
	for i, p := range paths {
		list[i] = frames.Source{Name: p, Path: p}
	}
	return list
}

func TestImportAllReversesSortOrder(t *testing.T) {
	imp, _ := stubImporter(map[string]string{
		"mu0.txt": "1 1\n1 1\n",
		"mu1.txt": "2 2\n2 2\n",
		"mu2.txt": "3 3\n3 3\n",
	})

	seq, err := imp.ImportAll(listFor("mu0.txt", "mu1.txt", "mu2.txt"))
	require.NoError(t, err)
	require.Len(t, seq, 3)

	// Element i holds the content of sorted file N-1-i.
	require.Equal(t, 3.0, seq[0].At(0, 0))
	require.Equal(t, 2.0, seq[1].At(0, 0))
	require.Equal(t, 1.0, seq[2].At(0, 0))
}

func TestImportAllMemoized(t *testing.T) {
	imp, reads := stubImporter(map[string]string{
		"mu0.txt": "1 2\n",
		"mu1.txt": "3 4\n",
	})
	list := listFor("mu0.txt", "mu1.txt")

	first, err := imp.ImportAll(list)
	require.NoError(t, err)
	require.Equal(t, 2, *reads)

	second, err := imp.ImportAll(list)
	require.NoError(t, err)
	require.Equal(t, 2, *reads, "second import must not re-read files")
	require.Same(t, first[0], second[0])
}

func TestImportMalformedToken(t *testing.T) {
	imp, _ := stubImporter(map[string]string{
		"mu0.txt": "1 2\n3 oops\n",
	})

	_, err := imp.ImportAll(listFor("mu0.txt"))
	require.ErrorIs(t, err, ErrMalformedData)
	require.ErrorContains(t, err, "mu0.txt")
	require.ErrorContains(t, err, "row 2")
	require.ErrorContains(t, err, `"oops"`)
}

func TestImportShapeMismatchAcrossFiles(t *testing.T) {
	imp, _ := stubImporter(map[string]string{
		"mu0.txt": "1 2 3\n4 5 6\n",
		"mu1.txt": "1 2 3\n",
	})

	_, err := imp.ImportAll(listFor("mu0.txt", "mu1.txt"))
	require.ErrorIs(t, err, ErrInconsistentShape)
	require.ErrorContains(t, err, "mu1.txt")
	require.ErrorContains(t, err, "2x3")
	require.ErrorContains(t, err, "1x3")
}

func TestImportRaggedRows(t *testing.T) {
	imp, _ := stubImporter(map[string]string{
		"mu0.txt": "1 2 3\n4 5\n",
	})

	_, err := imp.ImportAll(listFor("mu0.txt"))
	require.ErrorIs(t, err, ErrInconsistentShape)
	require.ErrorContains(t, err, "row 2")
}

func TestImportEmptyFile(t *testing.T) {
	imp, _ := stubImporter(map[string]string{"mu0.txt": "\n\n"})

	_, err := imp.ImportAll(listFor("mu0.txt"))
	require.ErrorIs(t, err, ErrMalformedData)
}

func TestImportEmptyList(t *testing.T) {
	imp, _ := stubImporter(nil)
	_, err := imp.ImportAll(nil)
	require.ErrorIs(t, err, frames.ErrEmptyInput)
}

func TestImportScientificNotation(t *testing.T) {
	imp, _ := stubImporter(map[string]string{
		"mu0.txt": "1.5e-03 -2.25e+01\n",
	})

	seq, err := imp.ImportAll(listFor("mu0.txt"))
	require.NoError(t, err)
	require.Equal(t, 0.0015, seq[0].At(0, 0))
	require.Equal(t, -22.5, seq[0].At(0, 1))
	require.Equal(t, -22.5, seq[0].Min)
	require.Equal(t, 0.0015, seq[0].Max)
}

func TestSampleNearest(t *testing.T) {
	m := &Matrix{Rows: 2, Cols: 2, Data: []float64{1, 2, 3, 4}}

	require.Equal(t, 1.0, m.SampleNearest(0, 0))
	require.Equal(t, 2.0, m.SampleNearest(1, 0))
	require.Equal(t, 3.0, m.SampleNearest(0, 1))
	require.Equal(t, 4.0, m.SampleNearest(1, 1))
}

func TestSampleBilinear(t *testing.T) {
	m := &Matrix{Rows: 2, Cols: 2, Data: []float64{0, 1, 2, 3}}

	require.InDelta(t, 0.5, m.SampleBilinear(0.5, 0), 1e-12)
	require.InDelta(t, 1.5, m.SampleBilinear(0.5, 0.5), 1e-12)
	require.InDelta(t, 3.0, m.SampleBilinear(1, 1), 1e-12)
}

func TestSequenceMinMax(t *testing.T) {
	seq := Sequence{
		{Min: -1, Max: 2},
		{Min: 0, Max: 5},
	}
	lo, hi := seq.MinMax()
	require.Equal(t, -1.0, lo)
	require.Equal(t, 5.0, hi)
}
