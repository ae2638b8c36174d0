// Command psonmf runs the particle swarm H solver from the command line:
// it loads the basis W and observations X from CSV files, searches for H,
// and writes the result as CSV.
package main

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/Anirban95/PSO-BADINIT/nmf"
)

var (
	flagPopulation int
	flagIters      int
	flagInertia    float64
	flagC1         float64
	flagC2         float64
	flagLb         float64
	flagUb         float64
	flagSeed       int64
	flagVerbose    bool
	flagTrace      string
	flagOut        string
)

func main() {
	cfg := nmf.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "psonmf W.csv X.csv",
		Short: "Optimize the H factor of X ~ W*H with a particle swarm",
		Args:  cobra.ExactArgs(2),
		RunE:  run,
	}

	cmd.Flags().IntVar(&flagPopulation, "population", cfg.Population, "swarm size (values below 2 are raised to 2)")
	cmd.Flags().IntVar(&flagIters, "iters", cfg.MaxIters, "number of swarm update rounds")
	cmd.Flags().Float64Var(&flagInertia, "inertia", cfg.Inertia, "velocity inertia weight")
	cmd.Flags().Float64Var(&flagC1, "c1", cfg.C1, "cognitive (personal best) coefficient")
	cmd.Flags().Float64Var(&flagC2, "c2", cfg.C2, "social (global best) coefficient")
	cmd.Flags().Float64Var(&flagLb, "lb", cfg.Lb, "lower bound of the search box and non-negativity floor")
	cmd.Flags().Float64Var(&flagUb, "ub", cfg.Ub, "upper bound of the search box")
	cmd.Flags().Int64Var(&flagSeed, "seed", 0, "RNG seed; 0 seeds from the clock (non-reproducible)")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log swarm progress")
	cmd.Flags().StringVar(&flagTrace, "trace", "", "sqlite file recording per-iteration swarm state")
	cmd.Flags().StringVar(&flagOut, "out", "", "output CSV for H (default stdout)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !flagVerbose {
		log = log.Level(zerolog.WarnLevel)
	}

	w, err := loadCSV(args[0])
	if err != nil {
		return fmt.Errorf("loading W: %w", err)
	}
	x, err := loadCSV(args[1])
	if err != nil {
		return fmt.Errorf("loading X: %w", err)
	}

	cfg := nmf.Config{
		Population: flagPopulation,
		MaxIters:   flagIters,
		Inertia:    flagInertia,
		C1:         flagC1,
		C2:         flagC2,
		Lb:         flagLb,
		Ub:         flagUb,
		Seed:       flagSeed,
		Verbose:    flagVerbose,
		Progress: func(iter int, bestCost float64) {
			log.Info().Int("iter", iter).Float64("best_cost", bestCost).Msg("swarm progress")
		},
	}

	if flagTrace != "" {
		db, err := sql.Open("sqlite3", flagTrace)
		if err != nil {
			return fmt.Errorf("opening trace db: %w", err)
		}
		defer db.Close()
		cfg.Trace = db
	}

	h, err := nmf.Fit(w, x, cfg)
	if err != nil {
		return err
	}

	var recon mat.Dense
	recon.Mul(w, h)
	recon.Sub(x, &recon)
	log.Info().Float64("frobenius_error", mat.Norm(&recon, 2)).Msg("reconstruction")

	out := io.Writer(os.Stdout)
	if flagOut != "" {
		f, err := os.Create(flagOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return writeCSV(out, h)
}

func loadCSV(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fmt.Errorf("%v: empty matrix", path)
	}

	rows, cols := len(records), len(records[0])
	data := make([]float64, 0, rows*cols)
	for i, rec := range records {
		if len(rec) != cols {
			return nil, fmt.Errorf("%v: row %v has %v fields, expected %v", path, i, len(rec), cols)
		}
		for _, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", path, err)
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(rows, cols, data), nil
}

func writeCSV(out io.Writer, m mat.Matrix) error {
	w := csv.NewWriter(out)
	rows, cols := m.Dims()
	rec := make([]string, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			rec[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
