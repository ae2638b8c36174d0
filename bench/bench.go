// Package bench provides tools for testing the swarm against benchmark
// optimization functions from
// http://en.wikipedia.org/wiki/Test_functions_for_optimization.
//
// Bounds are scalar per function because the swarm searches a scalar box -
// every dimension shares the same [low, up] interval.
package bench

import (
	"fmt"
	"math"

	psonmf "github.com/Anirban95/PSO-BADINIT"
	"github.com/Anirban95/PSO-BADINIT/swarm"
)

var (
	sin  = math.Sin
	cos  = math.Cos
	abs  = math.Abs
	exp  = math.Exp
	sqrt = math.Sqrt
)

var AllFuncs = []Func{
	Sphere{NDim: 2},
	Sphere{NDim: 20},
	Ackley{},
	Eggholder{},
	HolderTable{},
	Styblinski{NDim: 1},
	Styblinski{NDim: 10},
	Rosenbrock{NDim: 2},
	Rosenbrock{NDim: 10},
}

type Func interface {
	Eval(v []float64) float64
	Bounds() (low, up float64)
	NDims() int
	Optimum() float64
	Name() string
}

type Sphere struct {
	NDim int
}

func (fn Sphere) Name() string { return fmt.Sprintf("Sphere_%vD", fn.NDim) }

func (fn Sphere) NDims() int { return fn.NDim }

func (fn Sphere) Eval(v []float64) float64 {
	tot := 0.0
	for _, x := range v {
		tot += x * x
	}
	return tot
}

func (fn Sphere) Bounds() (low, up float64) { return -10, 10 }

func (fn Sphere) Optimum() float64 { return 0 }

type Ackley struct{}

func (fn Ackley) Name() string { return "Ackley" }

func (fn Ackley) NDims() int { return 2 }

func (fn Ackley) Eval(v []float64) float64 {
	if !InsideBounds(v, fn) {
		return math.Inf(1)
	}

	x := v[0]
	y := v[1]
	return -20*math.Exp(-0.2*math.Sqrt(0.5*(x*x+y*y))) -
		math.Exp(0.5*(math.Cos(2*math.Pi*x)+math.Cos(2*math.Pi*y))) +
		20 + math.E
}

func (fn Ackley) Bounds() (low, up float64) { return -5, 5 }

func (fn Ackley) Optimum() float64 { return 0 }

type Eggholder struct{}

func (fn Eggholder) Name() string { return "Eggholder" }

func (fn Eggholder) NDims() int { return 2 }

func (fn Eggholder) Eval(v []float64) float64 {
	if !InsideBounds(v, fn) {
		return math.Inf(1)
	}

	x := v[0]
	y := v[1]
	return -(y+47)*sin(sqrt(abs(y+x/2+47))) - x*sin(sqrt(abs(x-(y+47))))
}

func (fn Eggholder) Bounds() (low, up float64) { return -512, 512 }

func (fn Eggholder) Optimum() float64 { return -959.6407 }

type HolderTable struct{}

func (fn HolderTable) Name() string { return "HolderTable" }

func (fn HolderTable) NDims() int { return 2 }

func (fn HolderTable) Eval(v []float64) float64 {
	if !InsideBounds(v, fn) {
		return math.Inf(1)
	}

	x := v[0]
	y := v[1]
	return -abs(sin(x) * cos(y) * exp(abs(1-sqrt(x*x+y*y)/math.Pi)))
}

func (fn HolderTable) Bounds() (low, up float64) { return -10, 10 }

func (fn HolderTable) Optimum() float64 { return -19.2085 }

type Styblinski struct {
	NDim int
}

func (fn Styblinski) Name() string { return fmt.Sprintf("Styblinski_%vD", fn.NDim) }

func (fn Styblinski) NDims() int { return fn.NDim }

func (fn Styblinski) Eval(x []float64) float64 {
	if !InsideBounds(x, fn) {
		return math.Inf(1)
	}

	tot := 0.0
	for _, v := range x {
		tot += math.Pow(v, 4) - 16*math.Pow(v, 2) + 5*v
	}
	return tot / 2
}

func (fn Styblinski) Bounds() (low, up float64) { return -5, 5 }

func (fn Styblinski) Optimum() float64 { return -39.16599 * float64(fn.NDim) }

type Rosenbrock struct {
	NDim int
}

func (fn Rosenbrock) Name() string { return fmt.Sprintf("Rosenbrock_%vD", fn.NDim) }

func (fn Rosenbrock) NDims() int { return fn.NDim }

func (fn Rosenbrock) Eval(x []float64) float64 {
	if !InsideBounds(x, fn) {
		return math.Inf(1)
	}

	tot := 0.0
	for i := 0; i < fn.NDim-1; i++ {
		tot += 100*math.Pow(x[i+1]-x[i]*x[i], 2) + math.Pow(x[i]-1, 2)
	}
	return tot
}

func (fn Rosenbrock) Bounds() (low, up float64) { return -30, 30 }

func (fn Rosenbrock) Optimum() float64 { return 0 }

// Benchmark iterates it against fn until the best value is within tol of the
// known optimum or the evaluation/iteration budget runs out.
func Benchmark(it *swarm.Iterator, fn Func, tol float64, maxeval, maxiter int) (best psonmf.Point, niter, neval int, err error) {
	obj := psonmf.SimpleObjectiver(fn.Eval)
	optimum := fn.Optimum()
	thresh := tol * abs(optimum)
	if thresh < 0.001 {
		thresh = 0.001
	}

	for neval < maxeval && niter < maxiter {
		var n int
		best, n, err = it.Iterate(obj)
		neval += n
		niter++
		if err != nil {
			return best, niter, neval, err
		} else if abs(optimum-best.Val) < thresh {
			return best, niter, neval, nil
		}
	}
	return best, niter, neval, nil
}

func InsideBounds(p []float64, fn Func) bool {
	low, up := fn.Bounds()
	for i := range p {
		if p[i] < low || p[i] > up {
			return false
		}
	}
	return true
}
