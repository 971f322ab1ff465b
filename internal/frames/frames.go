// Package frames discovers the per-µ data files of a scan and orders them
// by the numeric tokens embedded in their filenames, so that mu10.txt comes
// after mu9.txt regardless of how the OS lists the directory.
package frames

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
)

var (
	ErrNotFound   = errors.New("data directory not found")
	ErrEmptyInput = errors.New("no data files in directory")
)

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Source is one discovered data file. Key holds the numeric tokens
// extracted from the name, in order of appearance.
type Source struct {
	Name string
	Path string
	Key  []float64
}

// List is a slice of sources in numeric sort order.
type List []Source

// Paths returns the source paths in list order.
func (l List) Paths() []string {
	paths := make([]string, len(l))
	for i, s := range l {
		paths[i] = s.Path
	}
	return paths
}

// Scan lists dir and returns its regular files sorted by the numeric tokens
// in their names. Names without any numeric content keep their listing
// order relative to each other and sort before everything else.
func Scan(dir string) (List, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, err
	}

	var list List
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		list = append(list, Source{
			Name: name,
			Path: filepath.Join(dir, name),
			Key:  extractKey(name),
		})
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInput, dir)
	}

	sort.SliceStable(list, func(i, j int) bool {
		return compareKeys(list[i].Key, list[j].Key) < 0
	})
	return list, nil
}

func extractKey(name string) []float64 {
	tokens := numberPattern.FindAllString(name, -1)
	key := make([]float64, 0, len(tokens))
	for _, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		key = append(key, v)
	}
	return key
}

// compareKeys orders token tuples element-wise, padding the shorter tuple
// with -Inf so that fewer tokens sort first.
func compareKeys(a, b []float64) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		av, bv := math.Inf(-1), math.Inf(-1)
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// Library memoizes Scan per directory for the lifetime of the process.
// Repeated calls for the same directory return the same List without
// touching the filesystem again.
type Library struct {
	mu    sync.Mutex
	cache map[string]List
}

func NewLibrary() *Library {
	return &Library{cache: make(map[string]List)}
}

func (l *Library) Scan(dir string) (List, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.cache[dir]; ok {
		return cached, nil
	}
	list, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	l.cache[dir] = list
	return list, nil
}
