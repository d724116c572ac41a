package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/satlab/cubisat/cubify"
	"github.com/satlab/cubisat/solver"
)

func main() {
	debug.SetGCPercent(300)
	opts := cubify.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "cubisat file.cnf",
		Short: "A cubifying SAT solver",
		Long: "cubisat solves CNF problems with a CDCL engine whose search is\n" +
			"interleaved with cubification and cube-biased search.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], opts)
		},
	}
	addSolverFlags(cmd.Flags(), &opts)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func addSolverFlags(flags *pflag.FlagSet, opts *cubify.Options) {
	flags.Float64Var(&opts.KC, "k-c", opts.KC, "cubification propagation budget, as a multiple of the search phase's propagations")
	flags.Float64Var(&opts.KT, "k-t", opts.KT, "density threshold: search a cube only if its score is at least k-t times the mean")
	flags.IntVar(&opts.MaxCubifiableSize, "max-cubify-size", opts.MaxCubifiableSize, "skip cubification of clauses whose root cube is bigger than this")
	flags.BoolVar(&opts.AlwaysSearchCube, "always-search-cube", opts.AlwaysSearchCube, "run cube-biased search even while clauses await cubification")
	flags.IntVar(&opts.CubeBudget, "cube-budget", opts.CubeBudget, "capacity of the cube queue")
	flags.Int64Var(&opts.Seed, "seed", opts.Seed, "random seed, for reproducible runs")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", opts.Verbose, "log solving progress")
}

func run(path string, opts cubify.Options) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "could not open %q", path)
	}
	defer f.Close()
	pb, err := solver.ParseCNF(f)
	if err != nil {
		return errors.Wrapf(err, "could not parse DIMACS file %q", path)
	}
	cs := cubify.New(pb, opts)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		cs.Interrupt()
	}()

	res := cs.Solve()
	output(res)
	return nil
}

func output(res cubify.Result) {
	fmt.Printf("c cubifications: %d\n", res.Stats.Cubifications)
	fmt.Printf("c cube refutations: %d\n", res.Stats.CubeRefutations)
	fmt.Printf("c mean score: %f\n", res.MeanScore)
	fmt.Printf("c time search: %v cubify: %v search(cube): %v simplify: %v\n",
		res.Stats.TimeSearch, res.Stats.TimeCubify, res.Stats.TimeSearchCube, res.Stats.TimeSimplify)
	switch res.Status {
	case solver.Sat:
		fmt.Println("s SATISFIABLE")
		fmt.Print("v ")
		for i, val := range res.Model {
			if val {
				fmt.Printf("%d ", i+1)
			} else {
				fmt.Printf("%d ", -i-1)
			}
		}
		fmt.Println("0")
	case solver.Unsat:
		fmt.Println("s UNSATISFIABLE")
	default:
		fmt.Println("s INDETERMINATE")
	}
}
