package nmf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const seed = 7

func testMatrices(g, k, s int) (w, x *mat.Dense) {
	w = mat.NewDense(g, k, nil)
	x = mat.NewDense(g, s, nil)
	for i := 0; i < g; i++ {
		for j := 0; j < k; j++ {
			w.Set(i, j, float64((i*k+j)%5)/5+0.1)
		}
		for j := 0; j < s; j++ {
			x.Set(i, j, float64((i*s+j)%7)/7+0.2)
		}
	}
	return w, x
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxIters = 20
	cfg.Seed = seed
	return cfg
}

func TestFitShape(t *testing.T) {
	w, x := testMatrices(6, 3, 4)
	h, err := Fit(w, x, testConfig())
	require.NoError(t, err)

	k, s := h.Dims()
	assert.Equal(t, 3, k)
	assert.Equal(t, 4, s)
}

func TestFitBounds(t *testing.T) {
	w, x := testMatrices(5, 2, 3)
	cfg := testConfig()
	cfg.MaxIters = 50

	h, err := Fit(w, x, cfg)
	require.NoError(t, err)

	k, s := h.Dims()
	for i := 0; i < k; i++ {
		for j := 0; j < s; j++ {
			v := h.At(i, j)
			assert.GreaterOrEqual(t, v, cfg.Lb, "H[%v,%v]", i, j)
			assert.LessOrEqual(t, v, cfg.Ub, "H[%v,%v]", i, j)
		}
	}
}

func TestFitDeterminism(t *testing.T) {
	w, x := testMatrices(6, 2, 5)
	cfg := testConfig()

	h1, err := Fit(w, x, cfg)
	require.NoError(t, err)
	h2, err := Fit(w, x, cfg)
	require.NoError(t, err)

	assert.True(t, mat.Equal(h1, h2), "same seed must reproduce H bitwise")

	cfg.Seed = seed + 1
	h3, err := Fit(w, x, cfg)
	require.NoError(t, err)
	assert.False(t, mat.Equal(h1, h3), "different seeds should explore differently")
}

func TestFitValidation(t *testing.T) {
	w, _ := testMatrices(4, 2, 3)
	_, x := testMatrices(5, 2, 3)

	_, err := Fit(w, x, testConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRowMismatch)

	_, err = Fit(nil, x, testConfig())
	assert.ErrorIs(t, err, ErrBadMatrix)
	_, err = Fit(w, nil, testConfig())
	assert.ErrorIs(t, err, ErrBadMatrix)
}

func TestFitPopulationFloor(t *testing.T) {
	w, x := testMatrices(4, 2, 2)

	cfg := testConfig()
	cfg.Population = 2
	want, err := Fit(w, x, cfg)
	require.NoError(t, err)

	for _, n := range []int{0, 1, -3} {
		cfg.Population = n
		h, err := Fit(w, x, cfg)
		require.NoError(t, err, "population %v must not error", n)
		assert.True(t, mat.Equal(want, h), "population %v must behave as 2", n)
	}
}

func TestFitZeroIters(t *testing.T) {
	w, x := testMatrices(4, 2, 2)
	cfg := testConfig()
	cfg.MaxIters = 0

	h, err := Fit(w, x, cfg)
	require.NoError(t, err)

	k, s := h.Dims()
	assert.Equal(t, 2, k)
	assert.Equal(t, 2, s)

	// the untouched initial best can never beat a further-optimized run
	// sharing its seed and therefore its initial swarm
	obj := NewObjective(w, x, cfg.Lb)
	c0, err := obj.Objective(Flatten(h))
	require.NoError(t, err)

	cfg.MaxIters = 50
	h50, err := Fit(w, x, cfg)
	require.NoError(t, err)
	c50, err := obj.Objective(Flatten(h50))
	require.NoError(t, err)
	assert.LessOrEqual(t, c50, c0)
}

func TestFitMonotonicProgress(t *testing.T) {
	w, x := testMatrices(8, 3, 4)
	cfg := testConfig()
	cfg.MaxIters = 151
	cfg.Verbose = true

	var iters []int
	var costs []float64
	cfg.Progress = func(iter int, bestCost float64) {
		iters = append(iters, iter)
		costs = append(costs, bestCost)
	}

	_, err := Fit(w, x, cfg)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 50, 100, 150}, iters)
	for i := 1; i < len(costs); i++ {
		assert.LessOrEqual(t, costs[i], costs[i-1], "global best cost must never increase")
	}
}

func TestFitProgressSilent(t *testing.T) {
	w, x := testMatrices(4, 2, 2)

	calls := 0
	cfg := testConfig()
	cfg.Progress = func(int, float64) { calls++ }
	// Verbose unset - notifications must not fire
	_, err := Fit(w, x, cfg)
	require.NoError(t, err)
	assert.Zero(t, calls)

	// MaxIters = 0 - the loop body never runs, so nothing fires either
	cfg.Verbose = true
	cfg.MaxIters = 0
	_, err = Fit(w, x, cfg)
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestFitConvergence(t *testing.T) {
	w := mat.NewDense(2, 1, []float64{1, 1})
	x := mat.NewDense(2, 1, []float64{2, 2})

	cfg := DefaultConfig()
	cfg.Population = 30
	cfg.MaxIters = 300
	cfg.Lb, cfg.Ub = 0, 10
	cfg.Seed = seed

	h, err := Fit(w, x, cfg)
	require.NoError(t, err)

	cost, err := NewObjective(w, x, cfg.Lb).Objective(Flatten(h))
	require.NoError(t, err)
	assert.LessOrEqual(t, cost, 1e-2, "reconstruction cost")
	assert.InDelta(t, 2.0, h.At(0, 0), 0.1)
}

func TestFlattenRoundTrip(t *testing.T) {
	for _, dims := range [][2]int{{1, 1}, {1, 7}, {5, 1}, {3, 4}, {7, 2}} {
		k, s := dims[0], dims[1]
		m := mat.NewDense(k, s, nil)
		for i := 0; i < k; i++ {
			for j := 0; j < s; j++ {
				m.Set(i, j, float64(i*100+j)+0.25)
			}
		}

		v := Flatten(m)
		require.Len(t, v, k*s)
		// column-major: all k rows of column 0 first
		assert.Equal(t, m.At(0, 0), v[0])
		if k > 1 {
			assert.Equal(t, m.At(1, 0), v[1])
		}
		if s > 1 {
			assert.Equal(t, m.At(0, 1), v[k])
		}

		back := Unflatten(v, k, s)
		assert.True(t, mat.Equal(m, back), "%vx%v round trip", k, s)
	}
}

func TestObjectiveClampsLowerOnly(t *testing.T) {
	w := mat.NewDense(2, 1, []float64{1, 1})
	x := mat.NewDense(2, 1, []float64{2, 2})
	obj := NewObjective(w, x, 0)

	// -3 is clamped up to 0 for evaluation: cost = 2*(2-0)^2 = 8
	cost, err := obj.Objective([]float64{-3})
	require.NoError(t, err)
	assert.Equal(t, 8.0, cost)

	// 100 is far above any reasonable box but is NOT clamped down
	cost, err = obj.Objective([]float64{100})
	require.NoError(t, err)
	assert.Equal(t, 2*math.Pow(2-100, 2), cost)
}
