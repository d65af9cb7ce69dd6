// Package spectral compares graphs by the eigenvalue spectra of their
// Laplacians.
//
// The distance between graphs A and B is
//
//	||eig(L_A) - eig(L_B)||_2 / (lambda_max * sqrt(n))
//
// with both spectra sorted in descending order, the shorter one zero-padded
// at the tail, n the larger node count and lambda_max the largest eigenvalue
// of either graph. The result lies in [0, 1]; 0 means identical spectra and
// 1 is also the value reported for empty graphs and numerical failures.
package spectral

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/terrascope/replicaplan/internal/graph"
	"github.com/terrascope/replicaplan/internal/metrics"
)

// Ceiling is the distance reported for empty graphs and failed decompositions.
const Ceiling = 1.0

// GoodMatch is the monitoring threshold below which a target is considered a
// good structural match. It is not enforced anywhere.
const GoodMatch = 0.2

const fairMatch = 0.5

var ErrDecomposition = errors.New("laplacian eigen-decomposition failed")

// Laplacian returns L = D - A of m. m must not be empty.
func Laplacian(m *graph.Model) *mat.SymDense {
	n := m.Len()
	l := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		l.SetSym(i, i, float64(m.Degree(i)))
		for _, j := range m.Neighbors(i) {
			if j > i {
				l.SetSym(i, j, -1)
			}
		}
	}
	return l
}

// Spectrum returns the Laplacian eigenvalues of m in descending order. An
// empty model has an empty spectrum.
func Spectrum(m *graph.Model) (values []float64, err error) {
	if m.Len() == 0 {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			values = nil
			err = fmt.Errorf("%w: %v", ErrDecomposition, r)
		}
	}()

	metrics.EigenDecompositions.Inc()

	var eig mat.EigenSym
	if ok := eig.Factorize(Laplacian(m), false); !ok {
		return nil, ErrDecomposition
	}

	values = eig.Values(nil)
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite eigenvalue", ErrDecomposition)
		}
		// Laplacians are positive semi-definite; drop rounding noise.
		if v < 0 {
			values[i] = 0
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	return values, nil
}

// Compare returns the normalised distance between two spectra sorted in
// descending order. Two all-zero spectra are identical.
func Compare(ea, eb []float64) float64 {
	n := max(len(ea), len(eb))
	if n == 0 {
		return Ceiling
	}

	lambdaMax := 0.0
	for _, v := range ea {
		lambdaMax = math.Max(lambdaMax, v)
	}
	for _, v := range eb {
		lambdaMax = math.Max(lambdaMax, v)
	}
	if lambdaMax == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		d := at(ea, i) - at(eb, i)
		sum += d * d
	}

	dist := math.Sqrt(sum) / (lambdaMax * math.Sqrt(float64(n)))
	return math.Min(math.Max(dist, 0), Ceiling)
}

func at(v []float64, i int) float64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// Distance is the uncached spectral distance between a and b. Failures are
// logged on the default logger and reported as Ceiling.
func Distance(a, b *graph.Model) float64 {
	return NewCalculator(0, nil).Distance(a, b)
}

// Quality buckets a distance for reporting: good, fair or poor.
func Quality(distance float64) string {
	switch {
	case distance < GoodMatch:
		return "good"
	case distance < fairMatch:
		return "fair"
	default:
		return "poor"
	}
}

// Calculator computes distances with a spectrum cache keyed by graph
// fingerprint. It is safe for concurrent use and is meant to live for a
// single planning run.
type Calculator struct {
	cache     *lru.Cache[uint64, []float64]
	logger    *slog.Logger
	decompose func(*graph.Model) ([]float64, error)
}

// NewCalculator returns a calculator caching up to cacheSize spectra.
// cacheSize <= 0 disables caching.
func NewCalculator(cacheSize int, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Calculator{
		logger:    logger.With(slog.String("component", "spectral")),
		decompose: Spectrum,
	}
	if cacheSize > 0 {
		// only fails for non-positive sizes
		c.cache, _ = lru.New[uint64, []float64](cacheSize)
	}
	return c
}

// Spectrum returns the cached spectrum of m, computing it on a miss. The
// returned slice is shared and must not be modified.
func (c *Calculator) Spectrum(m *graph.Model) ([]float64, error) {
	if c.cache == nil {
		return c.decompose(m)
	}

	key := m.Fingerprint()
	if values, ok := c.cache.Get(key); ok {
		metrics.SpectrumCacheHits.Inc()
		return values, nil
	}

	values, err := c.decompose(m)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, values)
	return values, nil
}

// Distance returns the spectral distance between a and b in [0, 1]. It never
// fails: empty graphs and numerical errors yield Ceiling, the latter with a
// warning.
func (c *Calculator) Distance(a, b *graph.Model) float64 {
	if a == nil || b == nil || a.Len() == 0 || b.Len() == 0 {
		return Ceiling
	}

	if a.Len() == b.Len() && a.Fingerprint() == b.Fingerprint() {
		metrics.IdenticalGraphShortcuts.Inc()
		return 0
	}

	ea, err := c.Spectrum(a)
	if err == nil {
		var eb []float64
		eb, err = c.Spectrum(b)
		if err == nil {
			return Compare(ea, eb)
		}
	}

	metrics.SpectralFailures.Inc()
	c.logger.Warn("spectral distance fell back to ceiling",
		slog.Int("nodes_a", a.Len()),
		slog.Int("nodes_b", b.Len()),
		slog.Any("error", err))
	return Ceiling
}
