package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/assuncao-lucas/kernel-pump/src/kernelpump"
	"github.com/assuncao-lucas/kernel-pump/src/kplog"
)

func main() {
	cfg := kernelpump.DefaultConfig()

	var methodStr, solverStr string
	var timeLimitSecs float64
	var seed int64

	flag.StringVar(&methodStr, "method", cfg.Method.String(), "one of SOLVER, FEASPUMP, KERNELPUMP")
	flag.StringVar(&solverStr, "solver", "highs", "backend identifier (highs, glpk)")
	flag.Float64Var(&timeLimitSecs, "timeLimit", cfg.TimeLimit.Seconds(), "global wall-clock limit, seconds")
	flag.Int64Var(&seed, "seed", cfg.Seed, "PRNG seed for rounder randomization")
	flag.BoolVar(&cfg.MIPPresolve, "mipPresolve", cfg.MIPPresolve, "enable backend presolve")
	flag.BoolVar(&cfg.MIPFeasEmphasis, "mipFeasEmphasis", cfg.MIPFeasEmphasis, "backend emphasis on feasibility")
	flag.BoolVar(&cfg.MultiThreading, "multiThreading", cfg.MultiThreading, "allow backend multithreading")

	flag.IntVar(&cfg.KP.MaxSizeBuckets, "kp.maxBucketSize", cfg.KP.MaxSizeBuckets, "maximum number of variables per bucket")
	flag.IntVar(&cfg.KP.NumBucketLayers, "kp.numBucketLayers", cfg.KP.NumBucketLayers, "number of relaxation-value layers when layered bucketing is on")
	flag.BoolVar(&cfg.KP.BucketsByRelaxationLayers, "kp.buildBucketsByRelaxationLayers", cfg.KP.BucketsByRelaxationLayers, "select layered bucketing over fixed-size bucketing")
	flag.BoolVar(&cfg.KP.SortByFractionalPart, "kp.sortByFractionalPart", cfg.KP.SortByFractionalPart, "order candidates by fractional distance instead of relaxation value")
	flag.BoolVar(&cfg.KP.AlwaysForceBucketVarsIntoKernel, "kp.forceBucketVarsIntoKernel", cfg.KP.AlwaysForceBucketVarsIntoKernel, "always grow the kernel with every visited bucket's variables")
	flag.BoolVar(&cfg.KP.ResetFPBasisAtNewLoop, "kp.resetFPBasisAtNewPump", cfg.KP.ResetFPBasisAtNewLoop, "disable FP warm start between sub-runs")
	flag.BoolVar(&cfg.KP.TryEnforceFeasibilityInitialKernel, "kp.tryEnforceFeasibilityInitialKernel", cfg.KP.TryEnforceFeasibilityInitialKernel, "enable conflict-driven initial kernel expansion")
	flag.BoolVar(&cfg.KP.BucketsByVariableDependency, "kp.buildBucketsConsideringVariableDependency", cfg.KP.BucketsByVariableDependency, "add dependent variables alongside every placed variable")
	flag.BoolVar(&cfg.KP.BuildKernelBasedOnNullObj, "kp.buildKernelBasedOnNullObjective", cfg.KP.BuildKernelBasedOnNullObj, "build the initial kernel/buckets ordering from a null objective")
	flag.BoolVar(&cfg.KP.BuildKernelBasedOnSumVarsObj, "kp.buildKernelBasedOnSumVarsObjective", cfg.KP.BuildKernelBasedOnSumVarsObj, "build the initial kernel/buckets ordering from a sum-of-binaries objective")
	flag.BoolVar(&cfg.KP.ReverseObjFunc, "kp.reverseObjectiveFunction", cfg.KP.ReverseObjFunc, "reverse the objective sense when building the kernel/buckets ordering")

	flag.Float64Var(&cfg.FP.IntegralityEps, "fp.integralityEps", cfg.FP.IntegralityEps, "tolerance below which a relaxed value is treated as integer")
	var rankerStr string
	flag.StringVar(&rankerStr, "fp.ranker", "frac", "rounder ranking strategy (frac, reducedcost, blend)")
	flag.BoolVar(&cfg.FP.FilterConstraints, "fp.filterConstraints", cfg.FP.FilterConstraints, "filter ill-conditioned rows out of propagation")
	flag.BoolVar(&cfg.FP.RandomizedRounding, "fp.randomizedRounding", cfg.FP.RandomizedRounding, "randomize the simple rounder's threshold per apply")
	flag.IntVar(&cfg.FP.MaxIterStage2, "fp.maxIterStage2", cfg.FP.MaxIterStage2, "stage-2 iteration cap")
	flag.Float64Var(&cfg.FP.AlphaDecay, "fp.alphaDecay", cfg.FP.AlphaDecay, "stage-2 alpha decay rate")

	flag.StringVar(&cfg.SolutionFolder, "solutionFolder", cfg.SolutionFolder, "directory the solution file is written to")
	flag.StringVar(&cfg.RunName, "runName", cfg.RunName, "run/config name used in the solution file name")
	flag.StringVar(&cfg.InstanceName, "instanceName", "", "instance name used in the solution file name (defaults to the problem file's base name)")
	flag.BoolVar(&cfg.PrintSol, "printSol", false, "also echo the solution record to stdout")

	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Must specify exactly one problem file path")
		os.Exit(1)
	}
	problemPath := args[0]

	method, ok := kernelpump.ParseMethod(strings.ToUpper(methodStr))
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown method %q\n", methodStr)
		os.Exit(1)
	}
	cfg.Method = method

	backend, ok := kernelpump.ParseBackend(strings.ToLower(solverStr))
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown solver %q\n", solverStr)
		os.Exit(1)
	}
	cfg.Solver = backend

	if r, ok := parseRanker(rankerStr); ok {
		cfg.FP.RankerStrategy = r
	} else {
		fmt.Fprintf(os.Stderr, "Unknown ranker %q\n", rankerStr)
		os.Exit(1)
	}

	cfg.TimeLimit = time.Duration(timeLimitSecs * float64(time.Second))
	cfg.Seed = seed
	cfg.KP.MIPPresolve = cfg.MIPPresolve
	if cfg.InstanceName == "" {
		cfg.InstanceName = strings.TrimSuffix(filepath.Base(problemPath), filepath.Ext(problemPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sol, err := run(ctx, cfg, problemPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running %v: %v\n", problemPath, err)
		os.Exit(1)
	}

	if err := sol.WriteToFile(cfg.SolutionFolder, cfg.RunName, cfg.InstanceName, cfg.Seed); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing solution file: %v\n", err)
		os.Exit(1)
	}

	if cfg.PrintSol {
		fmt.Printf("%+v\n", sol)
	}
}

func parseRanker(s string) (kernelpump.RankerStrategy, bool) {
	switch strings.ToLower(s) {
	case "frac":
		return kernelpump.StrategyFrac, true
	case "reducedcost":
		return kernelpump.StrategyReducedCost, true
	case "blend":
		return kernelpump.StrategyBlend, true
	default:
		return 0, false
	}
}

// run reads the problem file, dispatches the configured method, and returns
// the resulting Solution record.
func run(ctx context.Context, cfg kernelpump.Config, problemPath string) (kernelpump.Solution, error) {
	log := kplog.For("cli")

	var model kernelpump.Model
	var err error
	switch cfg.Solver {
	case kernelpump.BackendGLPK:
		model, err = kernelpump.ReadModelGLPK(problemPath)
	default:
		model, err = kernelpump.ReadModel(problemPath)
	}
	if err != nil {
		return kernelpump.Solution{}, err
	}
	log.Info().Str("file", problemPath).Int("rows", model.NumRows()).Int("cols", model.NumCols()).Msg("model loaded")

	ctx, cancel := context.WithTimeout(ctx, cfg.TimeLimit)
	defer cancel()

	rng := rand.New(rand.NewSource(cfg.Seed))

	switch cfg.Method {
	case kernelpump.MethodSolver:
		ok, err := model.MIPOpt(ctx)
		if err != nil {
			return kernelpump.Solution{}, err
		}
		sol := kernelpump.Solution{IsFeasible: ok && model.IsPrimalFeasible()}
		if sol.IsFeasible {
			sol.Value = model.ObjVal()
			sol.ReoptValue = sol.Value
			sol.RealIntegralityGap, sol.NumFrac = model.ComputeIntegralityGap(model.Sol(), cfg.FP.IntegralityEps)
		}
		return sol, nil

	case kernelpump.MethodFeasPump:
		fp := kernelpump.NewFeasibilityPump(cfg.FP, rng)
		binaries, gintegers, _ := kernelpump.ClassifyColumns(model)
		fp.Init(model, binaries, gintegers)
		foundInt, _, _, _ := fp.Pump(ctx, cfg.TimeLimit, false, true, nil, 0)
		sol := kernelpump.Solution{IsFeasible: foundInt}
		if foundInt {
			x := fp.Solution()
			sol.Value = fp.ObjVal(x)
			sol.ReoptValue = sol.Value
			sol.RealIntegralityGap, sol.NumFrac = model.ComputeIntegralityGap(x, cfg.FP.IntegralityEps)
		}
		sol.NumIterations = fp.Iterations()
		return sol, nil

	default: // MethodKernelPump
		kp := kernelpump.NewKernelPump(cfg.KP, cfg.FP, rng)
		ok, err := kp.Init(model)
		if err != nil {
			return kernelpump.Solution{}, err
		}
		if !ok {
			return kernelpump.Solution{IsFeasible: false}, nil
		}
		if _, err := kp.Run(ctx, cfg.TimeLimit); err != nil {
			return kernelpump.Solution{}, err
		}
		return kernelpump.FromKernelPump(kp, model, cfg.FP.IntegralityEps), nil
	}
}

