package kernelpump

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/assuncao-lucas/kernel-pump/src/kplog"
	"github.com/assuncao-lucas/kernel-pump/src/varset"
)

const (
	defaultNumBucketLayers = 10
	defaultMaxSizeBuckets  = 100
)

// KPConfig mirrors the Kernel Search tunables read from the command driver's
// configuration (see SPEC_FULL.md §6's "kp.*" options).
type KPConfig struct {
	TryEnforceFeasibilityInitialKernel   bool
	BuildKernelBasedOnNullObj            bool
	BuildKernelBasedOnSumVarsObj         bool
	ReverseObjFunc                       bool
	BuildKernelBasedOnSumVarsObjMaxSense bool
	ResetFPBasisAtNewLoop                bool
	SortByFractionalPart                 bool
	AlwaysForceBucketVarsIntoKernel      bool
	BucketsByRelaxationLayers            bool
	BucketsByVariableDependency          bool
	NumBucketLayers                      int
	MaxSizeBuckets                       int
	MIPPresolve                          bool
}

// DefaultKPConfig returns the documented Kernel Search defaults.
func DefaultKPConfig() KPConfig {
	return KPConfig{
		NumBucketLayers: defaultNumBucketLayers,
		MaxSizeBuckets:  defaultMaxSizeBuckets,
		MIPPresolve:     true,
	}
}

// KernelPump drives the Kernel Search / Feasibility Pump combination of
// §4.6: it partitions the binary variables into a kernel and an ordered set
// of buckets from the root LP relaxation, then iterates buckets, growing the
// kernel and handing each sub-model to a FeasibilityPump.
type KernelPump struct {
	cfg KPConfig
	fp  *FeasibilityPump
	rng *rand.Rand
	log zerolog.Logger

	originalModel Model
	model         Model
	hasPresolve   bool

	binaries, gintegers, continuous *varset.Set
	colsDependency                  []*varset.Set

	currKernel *varset.Set
	buckets    []*varset.Set

	closestFrac []float64
	closestDist float64

	foundIntFeasible bool
	primalBound      float64
	solution         []float64

	firstBucketToIterPump int
	lastBucketVisited     int

	timeSpentBuildingKernelBuckets time.Duration
	totalTimeSpent                time.Duration
}

// NewKernelPump builds a KernelPump with the given configuration and a
// shared seeded generator threaded down into its FeasibilityPump.
func NewKernelPump(cfg KPConfig, fpCfg FPConfig, rng *rand.Rand) *KernelPump {
	return &KernelPump{
		cfg: cfg,
		fp:  NewFeasibilityPump(fpCfg, rng),
		rng: rng,
		log: kplog.For("kp"),
	}
}

func (kp *KernelPump) reset() {
	kp.closestDist = math.Inf(1)
	kp.timeSpentBuildingKernelBuckets = 0
	kp.totalTimeSpent = 0
	kp.foundIntFeasible = false
	kp.hasPresolve = false
	kp.solution = nil
	kp.colsDependency = nil
	kp.firstBucketToIterPump = -1
	kp.lastBucketVisited = -1
	kp.closestFrac = nil
	kp.currKernel = nil
	kp.buckets = nil
}

// Init presolves model (unless disabled), classifies its columns and stores
// the working copy KP operates on. original is kept so solutions/closest
// points can be postsolved back to the caller's column space.
func (kp *KernelPump) Init(model Model) (bool, error) {
	kp.reset()
	kp.originalModel = model
	kp.log.Info().Int("rows", model.NumRows()).Int("cols", model.NumCols()).Msg("kernel pump init")

	premodel := model
	if kp.cfg.MIPPresolve {
		ok, err := model.Presolve()
		if err != nil {
			return false, err
		}
		if !ok {
			kp.log.Warn().Msg("presolved problem infeasible")
			return false, nil
		}
		if p, reduced := model.PresolvedModel(); reduced {
			premodel = p
			kp.hasPresolve = true
		} else {
			premodel = model.Clone()
		}
	} else {
		premodel = model.Clone()
	}

	kp.model = premodel
	if premodel.ObjSense() == Minimize {
		kp.primalBound = math.Inf(1)
	} else {
		kp.primalBound = math.Inf(-1)
	}

	kp.binaries, kp.gintegers, kp.continuous = ClassifyColumns(premodel)
	return true, nil
}

// varRC pairs a binary column with its ordering value and reduced cost, the
// Go analogue of the original's VarValueReducedCost struct.
type varRC struct {
	col   int
	value float64
	rc    float64
}

// addVarToBucket adds j to bucket unless already placed in some bucket; when
// dependency-aware bucketing is on, also sweeps in any not-yet-placed binary
// dependent of j with a strictly positive relaxation value. Returns the
// number of columns actually added (j plus any dependents).
func (kp *KernelPump) addVarToBucket(j int, varValues []float64, bucket, totalAdded *varset.Set) int {
	if totalAdded.Test(j) {
		return 0
	}
	bucket.Set(j)
	totalAdded.Set(j)
	added := 1
	if kp.cfg.BucketsByVariableDependency && kp.colsDependency != nil {
		kp.colsDependency[j].Each(func(dep int) bool {
			if !totalAdded.Test(dep) && kp.binaries.Test(dep) && varValues[dep] > 1e-9 {
				bucket.Set(dep)
				totalAdded.Set(dep)
				added++
			}
			return true
		})
	}
	return added
}

// buildKernelAndBuckets solves the root LP relaxation (optionally under a
// surrogate objective per the kp.buildKernelBasedOn* options), orders binary
// columns by relaxation value (or fractional distance) breaking ties by
// reduced cost, and partitions them into an initial kernel plus a sequence
// of buckets — either fixed-size slices of the ordering or layers of the LP
// value range, per cfg.BucketsByRelaxationLayers.
func (kp *KernelPump) buildKernelAndBuckets(ctx context.Context, timeLimit time.Duration) (bool, error) {
	kp.log.Info().Msg("build kernel/buckets")
	if kp.model == nil {
		return false, nil
	}

	n := kp.model.NumCols()
	numBinary := kp.binaries.Count()
	kp.currKernel = varset.New(n)
	if numBinary == 0 {
		return true, nil
	}

	if kp.cfg.BucketsByVariableDependency {
		kp.colsDependency = kp.model.ColsDependency()
	}

	clonedLP := kp.model.Clone()

	switch {
	case kp.cfg.BuildKernelBasedOnNullObj:
		clonedLP.SetObjective(make([]float64, n), 0, clonedLP.ObjSense())
	case kp.cfg.BuildKernelBasedOnSumVarsObj:
		coeffs := make([]float64, n)
		kp.binaries.Each(func(j int) bool { coeffs[j] = 1; return true })
		sense := Minimize
		if kp.cfg.BuildKernelBasedOnSumVarsObjMaxSense {
			sense = Maximize
		}
		clonedLP.SetObjective(coeffs, 0, sense)
	}
	if kp.cfg.ReverseObjFunc {
		sense := Minimize
		if clonedLP.ObjSense() == Minimize {
			sense = Maximize
		}
		clonedLP.SetObjective(clonedLP.ObjCoefs(), clonedLP.ObjOffset(), sense)
	}

	ok, err := clonedLP.LPOpt(ctx, Dual, false, true)
	if err != nil {
		return false, err
	}
	if clonedLP.Aborted() {
		kp.log.Warn().Msg("kernel build aborted")
		return false, nil
	}
	if !ok || clonedLP.IsInfeasibleOrTimeReached() || !clonedLP.IsPrimalFeasible() {
		kp.log.Warn().Msg("kernel build: relaxation infeasible, failed, or time exceeded")
		return false, nil
	}

	varValues := clonedLP.Sol()
	reducedCosts := clonedLP.ReducedCosts()

	invertValues := !kp.cfg.SortByFractionalPart
	invertRC := kp.model.ObjSense() != Minimize

	var ordered []varRC
	kp.binaries.Each(func(j int) bool {
		v := varValues[j]
		if kp.cfg.SortByFractionalPart {
			v = math.Abs(math.Round(v) - v)
		}
		ordered = append(ordered, varRC{col: j, value: v, rc: reducedCosts[j]})
		return true
	})
	sort.SliceStable(ordered, func(a, b int) bool {
		va, vb := ordered[a].value, ordered[b].value
		if invertValues {
			va, vb = -va, -vb
		}
		if va != vb {
			return va < vb
		}
		ra, rb := ordered[a].rc, ordered[b].rc
		if invertRC {
			ra, rb = -ra, -rb
		}
		return ra < rb
	})

	totalAdded := varset.New(n)

	if !kp.cfg.BucketsByRelaxationLayers {
		kp.buildFixedSizeBuckets(ordered, varValues, totalAdded)
	} else {
		kp.buildLayeredBuckets(ordered, varValues, totalAdded)
	}

	if kp.cfg.TryEnforceFeasibilityInitialKernel {
		if err := kp.enforceInitialKernelFeasibility(ctx, timeLimit, varValues); err != nil {
			return false, err
		}
	}

	return true, nil
}

// buildFixedSizeBuckets implements the default (non-layered) partition:
// the first min(numBinary, maxSizeBuckets) columns of the ordering form the
// kernel, the rest are sliced into fixed-size buckets.
func (kp *KernelPump) buildFixedSizeBuckets(ordered []varRC, varValues []float64, totalAdded *varset.Set) {
	n := kp.model.NumCols()
	numBinary := len(ordered)
	sizeKernel := kp.cfg.MaxSizeBuckets
	if sizeKernel > numBinary {
		sizeKernel = numBinary
	}

	for i := 0; i < sizeKernel; i++ {
		kp.addVarToBucket(ordered[i].col, varValues, kp.currKernel, totalAdded)
	}
	kp.log.Info().Int("kernel_size", kp.currKernel.Count()).Int("num_binary", numBinary).Msg("kernel built")

	remaining := numBinary - sizeKernel
	numBuckets := 0
	if remaining > 0 {
		numBuckets = (remaining + kp.cfg.MaxSizeBuckets - 1) / kp.cfg.MaxSizeBuckets
	}
	kp.buckets = make([]*varset.Set, numBuckets)

	added := sizeKernel
	for b := 0; b < numBuckets; b++ {
		kp.buckets[b] = varset.New(n)
		count := kp.cfg.MaxSizeBuckets
		if remaining := numBinary - added; count > remaining {
			count = remaining
		}
		for k := 0; k < count; k++ {
			kp.addVarToBucket(ordered[added].col, varValues, kp.buckets[b], totalAdded)
			added++
		}
		kp.log.Info().Int("bucket", b).Int("size", kp.buckets[b].Count()).Msg("bucket built")
	}
}

// buildLayeredBuckets implements the relaxation-layer partition: the
// ordering's value range is split into numBucketLayers equal-width layers
// (or, when every value is equal, grouped by reduced-cost sign); the first
// non-empty layer becomes the kernel, the rest become buckets in order.
func (kp *KernelPump) buildLayeredBuckets(ordered []varRC, varValues []float64, totalAdded *varset.Set) {
	n := kp.model.NumCols()
	numBinary := len(ordered)
	firstValue, lastValue := ordered[0].value, ordered[numBinary-1].value

	appendGroup := func(group *varset.Set) {
		if group.Count() == 0 {
			return
		}
		if kp.currKernel.Count() == 0 && len(kp.buckets) == 0 {
			kp.currKernel = group
			kp.log.Info().Int("kernel_size", group.Count()).Msg("kernel built")
			return
		}
		kp.buckets = append(kp.buckets, group)
		kp.log.Info().Int("bucket", len(kp.buckets)-1).Int("size", group.Count()).Msg("bucket built")
	}

	if firstValue == lastValue {
		i := 0
		for i < numBinary {
			rcSign := sign(ordered[i].rc)
			group := varset.New(n)
			for i < numBinary && sign(ordered[i].rc) == rcSign {
				kp.addVarToBucket(ordered[i].col, varValues, group, totalAdded)
				i++
			}
			appendGroup(group)
		}
		return
	}

	delta := (lastValue - firstValue) / float64(kp.cfg.NumBucketLayers)
	deltaSign := sign(delta)

	i := 0
	for start := firstValue; deltaSign*start <= deltaSign*lastValue+1e-9; start += delta {
		end := start + delta
		group := varset.New(n)
		for i < numBinary && deltaSign*ordered[i].value >= deltaSign*start-1e-9 && deltaSign*ordered[i].value < deltaSign*end-1e-9 {
			rcSign := sign(ordered[i].rc)
			for i < numBinary && deltaSign*ordered[i].value >= deltaSign*start-1e-9 && deltaSign*ordered[i].value < deltaSign*end-1e-9 && sign(ordered[i].rc) == rcSign {
				kp.addVarToBucket(ordered[i].col, varValues, group, totalAdded)
				i++
			}
		}
		appendGroup(group)
		if i >= numBinary {
			break
		}
	}
}

func sign(v float64) int {
	switch {
	case v > 1e-9:
		return 1
	case v < -1e-9:
		return -1
	default:
		return 0
	}
}

// enforceInitialKernelFeasibility grows the initial kernel until the LP
// relaxation restricted to it (every other binary fixed at zero) is primal
// feasible, using conflict refinement to decide which inactive binaries to
// activate next. It gives up once every binary with a non-zero relaxation
// value has been tried.
func (kp *KernelPump) enforceInitialKernelFeasibility(ctx context.Context, timeLimit time.Duration, varValues []float64) error {
	kp.log.Info().Msg("enforce LP feasibility of initial kernel")
	n := kp.model.NumCols()

	nonZeroBinaries := varset.New(n)
	kp.binaries.Each(func(j int) bool {
		if varValues[j] > 1e-9 {
			nonZeroBinaries.Set(j)
		}
		return true
	})

	totalAdded := varset.New(n)
	kp.currKernel.Each(func(j int) bool { totalAdded.Set(j); return true })

	kp.model.UpdateModelVarBounds(nil, kp.binaries)
	prevKernel := varset.New(n)
	deadline := time.Now().Add(timeLimit)

	for {
		entering := kp.currKernel.Difference(prevKernel)
		kp.model.UpdateModelVarBounds(entering, nil)
		prevKernel = kp.currKernel.Clone()

		left := time.Until(deadline)
		if left <= 0 {
			kp.log.Warn().Msg("time exhausted enforcing initial kernel feasibility")
			return nil
		}
		ctx2, cancel := context.WithTimeout(ctx, left)
		ok, err := kp.model.LPOpt(ctx2, Dual, false, true)
		cancel()
		if err != nil {
			return err
		}
		if kp.model.Aborted() {
			return nil
		}

		feasible := ok && kp.model.IsPrimalFeasible() && kp.model.IsSolutionFeasible(kp.model.Sol(), 1e-6)
		if feasible {
			kp.log.Info().Msg("found LP-feasible initial kernel")
			return nil
		}

		left = time.Until(deadline)
		if left <= 0 {
			return nil
		}
		candidates := nonZeroBinaries.Difference(kp.currKernel)
		conflicting, err := kp.model.FindSetOfConflictingVariables(ctx, candidates, true, left)
		if err != nil {
			return err
		}

		added := 0
		conflicting.Each(func(j int) bool {
			if kp.binaries.Test(j) && !totalAdded.Test(j) {
				added += kp.addVarToBucket(j, varValues, kp.currKernel, totalAdded)
			}
			return true
		})
		if added > 0 {
			kp.log.Info().Int("added", added).Msg("activated more vars to enforce feasibility")
		}
		if added == 0 || kp.currKernel.Equal(prevKernel) || kp.currKernel.Count() >= kp.binaries.Count() {
			kp.log.Warn().Msg("found LP-infeasible initial kernel")
			return nil
		}
	}
}

// Run executes the full Kernel Search loop: build the kernel/buckets, then
// iterate from the kernel (bucket index -1) through every bucket, handing
// each growing sub-model to the FeasibilityPump and updating the kernel per
// §4.6's bucket-outcome rules.
func (kp *KernelPump) Run(ctx context.Context, timeLimit time.Duration) (bool, error) {
	if kp.model == nil {
		return false, nil
	}
	start := time.Now()
	n := kp.model.NumCols()

	built, err := kp.buildKernelAndBuckets(ctx, timeLimit)
	kp.timeSpentBuildingKernelBuckets = time.Since(start)
	if err != nil || !built {
		return false, err
	}

	kp.model.UpdateModelVarBounds(nil, kp.binaries)

	totalBuckets := len(kp.buckets)
	elapsed := time.Since(start)
	timeLeft := timeLimit - elapsed
	if timeLeft < 0 {
		timeLeft = 0
	}
	minTimePerBucket := timeLeft / time.Duration(totalBuckets+1)

	currReferenceKernel := kp.currKernel.Clone()
	currEntering := kp.currKernel.Clone()
	currLeaving := varset.New(n)

	lastBucket := -1
	for bucketIdx := -1; bucketIdx < totalBuckets; bucketIdx++ {
		var iterLimit time.Duration
		if bucketIdx == totalBuckets-1 {
			iterLimit = timeLimit - time.Since(start)
		} else {
			iterLimit = minTimePerBucket
		}
		if kp.model.Aborted() || iterLimit <= 0 {
			break
		}

		if bucketIdx >= 0 {
			currReferenceKernel = kp.currKernel.Union(kp.buckets[bucketIdx])
			currEntering = kp.buckets[bucketIdx]
		}

		kp.model.UpdateModelVarBounds(currEntering, currLeaving)

		if bucketIdx == -1 {
			kp.log.Info().Msg("kp initial kernel")
		} else {
			kp.log.Info().Int("bucket", bucketIdx+1).Int("total", totalBuckets).Msg("kp bucket")
		}
		kp.log.Debug().Int("active_bin_vars", currReferenceKernel.Count()).Int("total_bin_vars", kp.binaries.Count()).Msg("")

		kp.fp.Init(kp.model, kp.binaries, kp.gintegers)

		stopWithNoImprLimit := bucketIdx != totalBuckets-1
		var xStartFrac []float64
		xStartDist := math.Inf(1)
		if !kp.cfg.ResetFPBasisAtNewLoop && kp.closestFrac != nil {
			xStartFrac = kp.closestFrac
			xStartDist = kp.closestDist
		}

		foundInt, feasibleFP, _, _ := kp.fp.Pump(ctx, iterLimit, stopWithNoImprLimit, currReferenceKernel.Equal(kp.binaries), xStartFrac, xStartDist)

		if feasibleFP && kp.firstBucketToIterPump == -1 {
			kp.firstBucketToIterPump = bucketIdx + 1
		}

		if foundInt {
			kp.foundIntFeasible = true
			kp.solution = kp.fp.Solution()
			kp.primalBound = kp.fp.ObjVal(kp.solution)
			kp.closestDist = kp.fp.ClosestDist()
			kp.currKernel = currReferenceKernel
			lastBucket = bucketIdx + 1
			break
		}

		lastBucket = bucketIdx + 1
		if !feasibleFP {
			kp.currKernel = currReferenceKernel
			currLeaving = varset.New(n)
			continue
		}

		foundNewClosest := false
		if kp.fp.ClosestDist() < kp.closestDist {
			kp.closestDist = kp.fp.ClosestDist()
			kp.closestFrac = kp.fp.ClosestFrac()
			foundNewClosest = true
		}

		switch {
		case kp.cfg.AlwaysForceBucketVarsIntoKernel:
			kp.currKernel = currReferenceKernel
			currLeaving = varset.New(n)
		case foundNewClosest:
			closestBitset := varset.New(n)
			kp.binaries.Each(func(j int) bool {
				if kp.closestFrac[j] > 1e-9 {
					closestBitset.Set(j)
				}
				return true
			})
			kp.currKernel.UnionInPlace(closestBitset)
			currLeaving = currReferenceKernel.Difference(kp.currKernel)
		default:
			currLeaving = currReferenceKernel.Difference(kp.currKernel)
		}
	}

	kp.lastBucketVisited = lastBucket
	kp.totalTimeSpent = time.Since(start)

	kp.log.Info().
		Float64("primal_bound", kp.primalBound).
		Bool("found_int_feasible", kp.foundIntFeasible).
		Int("last_bucket_visited", kp.lastBucketVisited).
		Int("total_buckets", totalBuckets).
		Int("first_bucket_to_iter_pump", kp.firstBucketToIterPump).
		Dur("build_time", kp.timeSpentBuildingKernelBuckets).
		Dur("total_time", kp.totalTimeSpent).
		Msg("kernel pump results")

	return true, nil
}

// FoundIntFeasible reports whether Run found an integer-feasible solution.
func (kp *KernelPump) FoundIntFeasible() bool { return kp.foundIntFeasible }

// Solution returns the solution found, uncrushed to the original model's
// column space when presolve reduced the problem.
func (kp *KernelPump) Solution() []float64 {
	if kp.solution == nil {
		return nil
	}
	if kp.hasPresolve {
		return kp.originalModel.PostsolveSolution(kp.solution)
	}
	return kp.solution
}

// PrimalBound returns the objective value of the solution found (±infinity
// when none was found, per the model's sense).
func (kp *KernelPump) PrimalBound() float64 { return kp.primalBound }

// ClosestDist returns the best normalized integrality gap seen across every
// bucket's FeasibilityPump run.
func (kp *KernelPump) ClosestDist() float64 { return kp.closestDist }

// LastBucketVisited returns the position of the last sub-run iterated,
// counting the initial kernel as 0 and bucket i as i+1 (-1 means no sub-run
// ran).
func (kp *KernelPump) LastBucketVisited() int { return kp.lastBucketVisited }

// FirstBucketToIterPump returns the index of the first bucket whose
// sub-problem's FeasibilityPump was LP-feasible, or -1 if none was.
func (kp *KernelPump) FirstBucketToIterPump() int { return kp.firstBucketToIterPump }

// TimeSpentBuildingKernelBuckets returns the wall time buildKernelAndBuckets
// took.
func (kp *KernelPump) TimeSpentBuildingKernelBuckets() time.Duration {
	return kp.timeSpentBuildingKernelBuckets
}

// TotalTimeSpent returns Run's total wall time.
func (kp *KernelPump) TotalTimeSpent() time.Duration { return kp.totalTimeSpent }
