package spectral

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/terrascope/replicaplan/internal/graph"
	"github.com/terrascope/replicaplan/internal/metrics"
	"github.com/terrascope/replicaplan/internal/models"
)

func path(ids ...string) *graph.Model {
	g := &models.Graph{}
	for i, id := range ids {
		g.Nodes = append(g.Nodes, models.Node{ID: id, Type: "t"})
		if i > 0 {
			g.Edges = append(g.Edges, models.Edge{Source: ids[i-1], Target: id})
		}
	}
	return graph.New(g)
}

func triangle() *graph.Model {
	return graph.New(&models.Graph{
		Nodes: []models.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Edges: []models.Edge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
			{Source: "c", Target: "a"},
		},
	})
}

func TestLaplacian(t *testing.T) {
	l := Laplacian(triangle())

	n, _ := l.Dims()
	require.Equal(t, 3, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, 2.0, l.At(i, i))
		assert.InDelta(t, 0, l.At(i, i)+rowOffDiagonal(l, i), 1e-12)
	}
}

func rowOffDiagonal(l *mat.SymDense, i int) float64 {
	n, _ := l.Dims()
	var sum float64
	for j := 0; j < n; j++ {
		if j != i {
			sum += l.At(i, j)
		}
	}
	return sum
}

func TestSpectrum(t *testing.T) {
	t.Run("triangle", func(t *testing.T) {
		values, err := Spectrum(triangle())

		require.NoError(t, err)
		require.Len(t, values, 3)
		assert.InDelta(t, 3, values[0], 1e-9)
		assert.InDelta(t, 3, values[1], 1e-9)
		assert.InDelta(t, 0, values[2], 1e-9)
	})

	t.Run("single edge", func(t *testing.T) {
		values, err := Spectrum(path("a", "b"))

		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{2, 0}, values, 1e-9)
	})

	t.Run("empty graph", func(t *testing.T) {
		values, err := Spectrum(graph.New(nil))

		require.NoError(t, err)
		assert.Empty(t, values)
	})
}

func TestCompare(t *testing.T) {
	t.Run("pads the shorter spectrum with zeros", func(t *testing.T) {
		assert.Equal(t, 0.0, Compare([]float64{2, 0}, []float64{2}))
	})

	t.Run("normalises by largest eigenvalue and size", func(t *testing.T) {
		got := Compare([]float64{3, 3, 0}, []float64{2, 0})

		assert.InDelta(t, math.Sqrt(10)/(3*math.Sqrt(3)), got, 1e-12)
	})

	t.Run("all zero spectra are identical", func(t *testing.T) {
		assert.Equal(t, 0.0, Compare([]float64{0, 0}, []float64{0}))
	})

	t.Run("nothing to compare", func(t *testing.T) {
		assert.Equal(t, Ceiling, Compare(nil, nil))
	})
}

func TestDistance(t *testing.T) {
	t.Run("identical graphs", func(t *testing.T) {
		assert.Equal(t, 0.0, Distance(triangle(), triangle()))
	})

	t.Run("isomorphic graphs with different ids", func(t *testing.T) {
		assert.InDelta(t, 0, Distance(path("a", "b", "c"), path("x", "y", "z")), 1e-9)
	})

	t.Run("empty graph is maximally distant", func(t *testing.T) {
		assert.Equal(t, Ceiling, Distance(graph.New(nil), triangle()))
		assert.Equal(t, Ceiling, Distance(triangle(), graph.New(nil)))
		assert.Equal(t, Ceiling, Distance(nil, triangle()))
	})

	t.Run("symmetric and bounded", func(t *testing.T) {
		graphs := []*graph.Model{
			triangle(),
			path("a", "b"),
			path("a", "b", "c", "d", "e"),
			graph.New(&models.Graph{Nodes: []models.Node{{ID: "solo"}}}),
		}
		for _, a := range graphs {
			for _, b := range graphs {
				ab := Distance(a, b)
				assert.Equal(t, ab, Distance(b, a))
				assert.GreaterOrEqual(t, ab, 0.0)
				assert.LessOrEqual(t, ab, 1.0)
			}
		}
	})

	t.Run("edgeless graphs", func(t *testing.T) {
		a := graph.New(&models.Graph{Nodes: []models.Node{{ID: "a"}, {ID: "b"}}})
		b := graph.New(&models.Graph{Nodes: []models.Node{{ID: "c"}}})

		assert.Equal(t, 0.0, Distance(a, b))
	})
}

func TestCalculator(t *testing.T) {
	t.Run("caches spectra by structure", func(t *testing.T) {
		c := NewCalculator(8, nil)

		first, err := c.Spectrum(path("a", "b", "c"))
		require.NoError(t, err)
		second, err := c.Spectrum(path("x", "y", "z"))
		require.NoError(t, err)

		assert.Equal(t, 1, c.cache.Len())
		assert.Equal(t, first, second)
	})

	t.Run("agrees with the uncached distance", func(t *testing.T) {
		c := NewCalculator(8, nil)
		a, b := triangle(), path("a", "b", "c", "d")

		assert.Equal(t, Distance(a, b), c.Distance(a, b))
		assert.Equal(t, Distance(a, b), c.Distance(a, b))
	})

	t.Run("zero size disables the cache", func(t *testing.T) {
		c := NewCalculator(0, nil)
		hits := testutil.ToFloat64(metrics.SpectrumCacheHits)
		shortcuts := testutil.ToFloat64(metrics.IdenticalGraphShortcuts)

		assert.Nil(t, c.cache)
		assert.Equal(t, 0.0, c.Distance(triangle(), triangle()))
		assert.Equal(t, hits, testutil.ToFloat64(metrics.SpectrumCacheHits))
		assert.Equal(t, shortcuts+1, testutil.ToFloat64(metrics.IdenticalGraphShortcuts))
	})
}

func TestCalculatorFailure(t *testing.T) {
	failing := map[string]func(*graph.Model) ([]float64, error){
		"decomposition error": func(*graph.Model) ([]float64, error) {
			return nil, ErrDecomposition
		},
		"non-finite eigenvalue": func(*graph.Model) ([]float64, error) {
			return nil, fmt.Errorf("%w: non-finite eigenvalue", ErrDecomposition)
		},
	}

	for name, decompose := range failing {
		for _, size := range []int{0, 8} {
			t.Run(fmt.Sprintf("%s cache %d", name, size), func(t *testing.T) {
				var buf bytes.Buffer
				c := NewCalculator(size, slog.New(slog.NewTextHandler(&buf, nil)))
				c.decompose = decompose
				before := testutil.ToFloat64(metrics.SpectralFailures)

				d := c.Distance(triangle(), path("a", "b", "c", "d"))

				assert.Equal(t, Ceiling, d)
				assert.Equal(t, before+1, testutil.ToFloat64(metrics.SpectralFailures))
				assert.Contains(t, buf.String(), "level=WARN")
				assert.Contains(t, buf.String(), "spectral distance fell back to ceiling")
				assert.Contains(t, buf.String(), "component=spectral")
				if c.cache != nil {
					assert.Zero(t, c.cache.Len(), "failed spectra must not be cached")
				}
			})
		}
	}

	t.Run("failure on the second graph only", func(t *testing.T) {
		var buf bytes.Buffer
		c := NewCalculator(8, slog.New(slog.NewTextHandler(&buf, nil)))
		c.decompose = func(m *graph.Model) ([]float64, error) {
			if m.Len() == 4 {
				return []float64{math.NaN()}, ErrDecomposition
			}
			return Spectrum(m)
		}

		assert.Equal(t, Ceiling, c.Distance(triangle(), path("a", "b", "c", "d")))
		assert.Contains(t, buf.String(), "nodes_b=4")
	})
}

func TestQuality(t *testing.T) {
	assert.Equal(t, "good", Quality(0))
	assert.Equal(t, "good", Quality(0.19))
	assert.Equal(t, "fair", Quality(0.2))
	assert.Equal(t, "fair", Quality(0.49))
	assert.Equal(t, "poor", Quality(0.5))
	assert.Equal(t, "poor", Quality(1))
}
