// Package swarm implements the particle swarm core: random population
// initialization inside a box, the inertia/cognition/social velocity update
// with box projection, and personal/global best tracking with the global
// best visible to later particles within the same iteration.
package swarm

import (
	"database/sql"
	"fmt"
	"math"
	"math/rand"

	psonmf "github.com/Anirban95/PSO-BADINIT"
)

// These params are calculated using a constriction factor originally
// described in:
//
//	Clerc and M.  "The swarm and the queen: towards a deterministic and
//	adaptive particle swarm optimization" Proc. 1999 Congress on
//	Evolutionary Computation, pp. 1951-1957
//
// The cognition and social parameters correspond to c1 and c2 values of 2.05
// that have been multiplied by their constriction coeffient - i.e.
// DefaultSocial = Constriction(2.05, 2.05)*2.05.  DefaultInertia is set equal
// to the constriction coefficient.
const (
	DefaultCognition = 1.496179765663133
	DefaultSocial    = 1.496179765663133
	DefaultInertia   = 0.7298437881283576
)

// VelScale scales the difference of two uniform box draws used as a
// particle's initial velocity.  The resulting velocities are centered near
// zero with magnitude roughly proportional to the box width.
const VelScale = 0.1

const (
	// TblParticles is the name of the sql database table that contains
	// positions and values for particles for each iteration.
	TblParticles = "swarmparticles"
	// TblParticlesBest is the name of the sql database table that contains
	// each particle's personal best position at each iteration.
	TblParticlesBest = "swarmparticlesbest"
	// TblBest is the name of the sql database table that contains
	// the best position for the entire swarm at each iteration.
	TblBest = "swarmbest"
)

// Constriction calculates the constriction coefficient for the given c1 and
// c2 for the particle velocity equation:
//
//	v_next = k(v_curr + c1*rand*(p_personal-x) + c2*rand*(p_glob-x))
//
// c1+c2 should usually be greater than (but close to) 4.  'w = k' is often
// referred to as the inertia in the traditional swarm equation.
func Constriction(c1, c2 float64) float64 {
	phi := c1 + c2
	return 2 / math.Abs(2-phi-math.Sqrt(phi*phi-4*phi))
}

type Particle struct {
	Id int
	psonmf.Point
	Vel  []float64
	Best psonmf.Point
}

// Move updates the particle's velocity and position, pulling it toward its
// personal best and gbest and projecting the result back into [lb, ub].
func (p *Particle) Move(gbest psonmf.Point, rng *rand.Rand, inertia, cognition, social, lb, ub, vmax float64) {
	// update velocity
	for i, currv := range p.Vel {
		// random numbers r1 and r2 MUST go inside this loop and be generated
		// uniquely for each dimension of p's velocity.
		r1 := rng.Float64()
		r2 := rng.Float64()
		p.Vel[i] = inertia*currv +
			cognition*r1*(p.Best.At(i)-p.At(i)) +
			social*r2*(gbest.At(i)-p.At(i))
		if math.Abs(p.Vel[i]) > vmax {
			p.Vel[i] = math.Copysign(vmax, p.Vel[i])
		}
	}

	// update position, projecting onto the box bounds
	pos := make([]float64, p.Len())
	for i := range pos {
		pos[i] = p.At(i) + p.Vel[i]
		if pos[i] < lb {
			pos[i] = lb
		} else if pos[i] > ub {
			pos[i] = ub
		}
	}
	p.Point = psonmf.NewPoint(pos, math.Inf(1))
}

func (p *Particle) Update(newval float64) {
	p.Val = newval
	if p.Val < p.Best.Val {
		p.Best = psonmf.NewPoint(p.Pos(), p.Val)
	}
}

type Population []*Particle

// NewPopulation creates a population of n particles with ndim-dimensional
// positions drawn uniformly from [lb, ub] and initial velocities set to the
// difference of two more uniform box draws scaled by VelScale.  Draw order
// is fixed per particle per dimension (position, then the two velocity
// draws), so populations are reproducible for a given rng.
func NewPopulation(n, ndim int, lb, ub float64, rng *rand.Rand) Population {
	pop := make(Population, n)
	for i := 0; i < n; i++ {
		pos := make([]float64, ndim)
		vel := make([]float64, ndim)
		for j := 0; j < ndim; j++ {
			pos[j] = lb + rng.Float64()*(ub-lb)
			va := lb + rng.Float64()*(ub-lb)
			vb := lb + rng.Float64()*(ub-lb)
			vel[j] = (va - vb) * VelScale
		}
		pop[i] = &Particle{
			Id:    i,
			Point: psonmf.NewPoint(pos, math.Inf(1)),
			Best:  psonmf.NewPoint(pos, math.Inf(1)),
			Vel:   vel,
		}
	}
	return pop
}

// Init evaluates every particle's starting position, seeding personal bests.
// It must run once before the first Iterate call.
func (pop Population) Init(ev psonmf.Evaler, obj psonmf.Objectiver) (neval int, err error) {
	for _, p := range pop {
		results, n, everr := ev.Eval(obj, p.Point)
		neval += n
		if everr != nil {
			return neval, everr
		}
		p.Update(results[0].Val)
	}
	return neval, nil
}

func (pop Population) Points() []psonmf.Point {
	points := make([]psonmf.Point, 0, len(pop))
	for _, p := range pop {
		points = append(points, p.Point)
	}
	return points
}

func (pop Population) Best() *Particle {
	if len(pop) == 0 {
		return nil
	}

	best := pop[0]
	for _, p := range pop[1:] {
		if p.Best.Val < best.Best.Val {
			best = p
		}
	}
	return best
}

type Option func(*Iterator)

// VmaxAll caps the per-dimension particle speed at vmax.  The default is
// +Inf - no cap.
func VmaxAll(vmax float64) Option {
	return func(it *Iterator) {
		it.Vmax = vmax
	}
}

func DB(db *sql.DB) Option {
	return func(it *Iterator) {
		it.Db = db
	}
}

func Eval(ev psonmf.Evaler) Option {
	return func(it *Iterator) {
		it.Evaler = ev
	}
}

func LearnFactors(cognition, social float64) Option {
	return func(it *Iterator) {
		it.Cognition = cognition
		it.Social = social
	}
}

// LinInertia sets particle inertia for velocity updates to vary linearly
// from the start (high) to end (low) values from 0 to maxiter.  Common values
// are start = 0.9 and end = 0.4 - for details see:
//
//	Eberhart, R.C.; Yuhui Shi, "Particle swarm optimization: developments,
//	applications and resources," Evolutionary Computation, 2001. Proceedings of
//	the 2001 Congress on , vol.1, no., pp.81,86 vol. 1, 2001 doi:
//	10.1109/CEC.2001.934374
func LinInertia(start, end float64, maxiter int) Option {
	return func(it *Iterator) {
		it.InertiaFn = func(iter int) float64 {
			return start - (start-end)*float64(iter)/float64(maxiter)
		}
	}
}

func FixedInertia(v float64) Option {
	return func(it *Iterator) {
		it.InertiaFn = func(iter int) float64 { return v }
	}
}

type Iterator struct {
	Pop Population
	// Rng is the random stream the iterator owns for velocity draws.
	Rng *rand.Rand
	psonmf.Evaler
	Cognition float64
	Social    float64
	InertiaFn func(iter int) float64
	// Lb and Ub are the box bounds positions are projected onto after
	// every move.
	Lb, Ub float64
	// Vmax is the speed limit per dimension for particles.  If unset,
	// infinity is used.
	Vmax  float64
	Db    *sql.DB
	count int
	best  psonmf.Point
}

// NewIterator creates a swarm iterator over pop bounded by [lb, ub].  The
// global best is seeded from pop's personal bests, so pop should already
// have been evaluated via Population.Init.
func NewIterator(rng *rand.Rand, pop Population, lb, ub float64, opts ...Option) *Iterator {
	it := &Iterator{
		Pop:       pop,
		Rng:       rng,
		Evaler:    psonmf.SerialEvaler{},
		Cognition: DefaultCognition,
		Social:    DefaultSocial,
		InertiaFn: func(iter int) float64 { return DefaultInertia },
		Lb:        lb,
		Ub:        ub,
		Vmax:      math.Inf(1),
		best:      psonmf.NewPoint(pop.Best().Best.Pos(), pop.Best().Best.Val),
	}

	for _, opt := range opts {
		opt(it)
	}

	it.initdb()
	return it
}

// Best returns the best point the swarm has observed so far.
func (it *Iterator) Best() psonmf.Point { return it.best }

// Iterate runs one full round: each particle in scan order moves, is
// re-evaluated, and updates its personal best and the swarm's global best.
// A global best improvement is visible to the particles that follow in the
// same round - do not reorder the scan.
func (it *Iterator) Iterate(obj psonmf.Objectiver) (best psonmf.Point, neval int, err error) {
	it.count++

	for _, p := range it.Pop {
		p.Move(it.best, it.Rng, it.InertiaFn(it.count), it.Cognition, it.Social, it.Lb, it.Ub, it.Vmax)

		results, n, everr := it.Evaler.Eval(obj, p.Point)
		neval += n
		if everr != nil {
			return psonmf.Point{Val: math.Inf(1)}, neval, everr
		}
		p.Update(results[0].Val)

		if p.Best.Val < it.best.Val {
			it.best = psonmf.NewPoint(p.Best.Pos(), p.Best.Val)
		}
	}

	it.updateDb()
	return it.best, neval, nil
}

func (it *Iterator) initdb() {
	if it.Db == nil {
		return
	}

	s := "CREATE TABLE IF NOT EXISTS " + TblParticles + " (particle INTEGER, iter INTEGER, val REAL"
	s += it.xdbsql("define")
	s += ");"

	_, err := it.Db.Exec(s)
	panicif(err)

	s = "CREATE TABLE IF NOT EXISTS " + TblParticlesBest + " (particle INTEGER, iter INTEGER, best REAL"
	s += it.xdbsql("define")
	s += ");"

	_, err = it.Db.Exec(s)
	panicif(err)

	s = "CREATE TABLE IF NOT EXISTS " + TblBest + " (iter INTEGER, val REAL"
	s += it.xdbsql("define")
	s += ");"
	_, err = it.Db.Exec(s)
	panicif(err)
}

func (it *Iterator) xdbsql(op string) string {
	s := ""
	for i := 0; i < it.Pop[0].Len(); i++ {
		if op == "?" {
			s += ",?"
		} else if op == "define" {
			s += fmt.Sprintf(",x%v REAL", i)
		} else if op == "x" {
			s += fmt.Sprintf(",x%v", i)
		} else {
			panic("invalid db op " + op)
		}
	}
	return s
}

func pos2iface(pos []float64) []interface{} {
	iface := []interface{}{}
	for _, v := range pos {
		iface = append(iface, v)
	}
	return iface
}

func (it *Iterator) updateDb() {
	if it.Db == nil {
		return
	}

	tx, err := it.Db.Begin()
	if err != nil {
		panic(err.Error())
	}

	s0 := "INSERT INTO " + TblParticles + " (particle,iter,val" + it.xdbsql("x") + ") VALUES (?,?,?" + it.xdbsql("?") + ");"
	s1 := "INSERT INTO " + TblParticlesBest + " (particle,iter,best" + it.xdbsql("x") + ") VALUES (?,?,?" + it.xdbsql("?") + ");"
	for _, p := range it.Pop {
		args := []interface{}{p.Id, it.count, p.Val}
		args = append(args, pos2iface(p.Pos())...)
		_, err := tx.Exec(s0, args...)
		panicif(err)

		args = []interface{}{p.Id, it.count, p.Best.Val}
		args = append(args, pos2iface(p.Best.Pos())...)
		_, err = tx.Exec(s1, args...)
		panicif(err)
	}

	s2 := "INSERT INTO " + TblBest + " (iter,val" + it.xdbsql("x") + ") VALUES (?,?" + it.xdbsql("?") + ");"
	args := []interface{}{it.count, it.best.Val}
	args = append(args, pos2iface(it.best.Pos())...)
	_, err = tx.Exec(s2, args...)
	panicif(err)

	panicif(tx.Commit())
}

func panicif(err error) {
	if err != nil {
		panic(err.Error())
	}
}
