// Package nmf solves the H-update step of non-negative matrix factorization
// with a particle swarm: given a fixed basis W (g x k) and observations X
// (g x s), Fit searches for a non-negative k x s matrix H minimizing the
// squared Frobenius norm of X - W*H.  W is never updated and there is no
// convergence test - the swarm runs for a fixed iteration budget.
package nmf

import (
	"database/sql"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	psonmf "github.com/Anirban95/PSO-BADINIT"
	"github.com/Anirban95/PSO-BADINIT/swarm"
)

var (
	// ErrBadMatrix is returned when W or X is nil or has a zero dimension.
	ErrBadMatrix = errors.New("nmf: W and X must be non-empty 2-D matrices")
	// ErrRowMismatch is returned when W and X disagree on the number of
	// feature rows.
	ErrRowMismatch = errors.New("nmf: W and X must have the same number of rows")
)

// ProgressInterval is the iteration cadence between progress notifications.
const ProgressInterval = 50

// ProgressFunc receives the iteration index and the swarm's best
// reconstruction cost so far.  It must not mutate optimizer state; the
// solver itself never writes any output.
type ProgressFunc func(iter int, bestCost float64)

// Config holds the hyperparameters for one Fit call.  It is plain data -
// build one, optionally tweak fields, and pass it by value.  A Config never
// changes behind a running Fit.
type Config struct {
	// Population is the swarm size.  Values below 2 are raised to 2 rather
	// than rejected - a one-particle swarm has no social term.
	Population int
	// MaxIters is the exact number of update rounds.  0 returns the best of
	// the initial random swarm unchanged.
	MaxIters int
	// Inertia, C1 and C2 are the velocity update coefficients: how much
	// prior velocity persists, and the pull toward the personal and global
	// bests respectively.
	Inertia float64
	C1, C2  float64
	// Lb and Ub bound every particle position.  Lb doubles as the
	// non-negativity floor applied when a candidate is reshaped into H for
	// cost evaluation; Ub is deliberately not applied there.
	Lb, Ub float64
	// Verbose enables progress notifications at iteration 0, every
	// ProgressInterval-th iteration, and the final iteration.
	Verbose bool
	// Progress is the notification sink used when Verbose is set.  Nil
	// drops the notifications.
	Progress ProgressFunc
	// Seed seeds the run's random stream.  0 derives a seed from the wall
	// clock, making the run non-reproducible.
	Seed int64
	// Trace, when non-nil, records every particle's position and the swarm
	// best per iteration into sqlite tables (see package swarm).
	Trace *sql.DB
}

// DefaultConfig returns the stock hyperparameters: a 30-particle swarm, 500
// iterations, constriction-style coefficients, and the [0, 10] search box.
func DefaultConfig() Config {
	return Config{
		Population: 30,
		MaxIters:   500,
		Inertia:    0.729,
		C1:         1.49445,
		C2:         1.49445,
		Lb:         0,
		Ub:         10,
	}
}

// Flatten maps a k x s matrix to a vector of length k*s with element (i, j)
// at flat index j*k+i - all k rows of column 0, then column 1, and so on.
// Unflatten inverts it exactly.
func Flatten(h mat.Matrix) []float64 {
	k, s := h.Dims()
	v := make([]float64, k*s)
	for j := 0; j < s; j++ {
		for i := 0; i < k; i++ {
			v[j*k+i] = h.At(i, j)
		}
	}
	return v
}

// Unflatten rebuilds a k x s matrix from a vector laid out by Flatten.
func Unflatten(v []float64, k, s int) *mat.Dense {
	if len(v) != k*s {
		panic(fmt.Sprintf("nmf: cannot unflatten %v values into a %vx%v matrix", len(v), k, s))
	}
	h := mat.NewDense(k, s, nil)
	for j := 0; j < s; j++ {
		for i := 0; i < k; i++ {
			h.Set(i, j, v[j*k+i])
		}
	}
	return h
}

// Objective is the reconstruction cost for candidate flattened H vectors.
// Rebuilding H clamps entries up to Lb only; the upper bound is enforced
// solely by the swarm's position projection.  The two policies are
// intentionally asymmetric - downstream numerical behavior depends on it.
type Objective struct {
	W, X *mat.Dense
	Lb   float64
	k, s int
}

func NewObjective(W, X *mat.Dense, lb float64) *Objective {
	_, k := W.Dims()
	_, s := X.Dims()
	return &Objective{W: W, X: X, Lb: lb, k: k, s: s}
}

// Objective returns ||X - W*H||_F^2 for the candidate v.  Pure and
// deterministic; lower is better.
func (o *Objective) Objective(v []float64) (float64, error) {
	h := mat.NewDense(o.k, o.s, nil)
	for j := 0; j < o.s; j++ {
		for i := 0; i < o.k; i++ {
			val := v[j*o.k+i]
			if val < o.Lb {
				val = o.Lb
			}
			h.Set(i, j, val)
		}
	}

	var r mat.Dense
	r.Mul(o.W, h)
	r.Sub(o.X, &r)
	raw := r.RawMatrix().Data
	return floats.Dot(raw, raw), nil
}

// Fit returns the k x s matrix H minimizing ||X - W*H||_F^2 over the box
// [cfg.Lb, cfg.Ub], found by a particle swarm run for exactly cfg.MaxIters
// rounds.  W must be g x k and X g x s with matching g; on a dimension error
// no swarm work is performed.  Two calls with the same nonzero seed, config,
// and inputs produce bitwise-identical results.
func Fit(W, X *mat.Dense, cfg Config) (*mat.Dense, error) {
	if W == nil || X == nil {
		return nil, ErrBadMatrix
	}
	g, k := W.Dims()
	gx, s := X.Dims()
	if g == 0 || k == 0 || gx == 0 || s == 0 {
		return nil, ErrBadMatrix
	}
	if g != gx {
		return nil, fmt.Errorf("%w: W is %vx%v, X is %vx%v", ErrRowMismatch, g, k, gx, s)
	}

	n := cfg.Population
	if n < 2 {
		n = 2
	}

	rng := psonmf.NewRng(cfg.Seed)
	obj := NewObjective(W, X, cfg.Lb)
	ev := psonmf.SerialEvaler{}

	pop := swarm.NewPopulation(n, k*s, cfg.Lb, cfg.Ub, rng)
	if _, err := pop.Init(ev, obj); err != nil {
		return nil, err
	}

	it := swarm.NewIterator(rng, pop, cfg.Lb, cfg.Ub,
		swarm.Eval(ev),
		swarm.LearnFactors(cfg.C1, cfg.C2),
		swarm.FixedInertia(cfg.Inertia),
		swarm.DB(cfg.Trace),
	)

	for iter := 0; iter < cfg.MaxIters; iter++ {
		best, _, err := it.Iterate(obj)
		if err != nil {
			return nil, err
		}
		if cfg.Verbose && cfg.Progress != nil &&
			(iter%ProgressInterval == 0 || iter == cfg.MaxIters-1) {
			cfg.Progress(iter, best.Val)
		}
	}

	return Unflatten(it.Best().Pos(), k, s), nil
}
