package kernelpump

import (
	"context"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/assuncao-lucas/kernel-pump/src/kplog"
	"github.com/assuncao-lucas/kernel-pump/src/varset"
)

const (
	alphaDecayDefault       = 0.9
	alphaDecrementPrecision = 5e-3
	maxIterStage2Default    = 200
	cycleFIFOCapacity       = 20
	noImprovementCap        = 50
)

// FPConfig holds the tunables the Feasibility Pump reads at Init time.
type FPConfig struct {
	IntegralityEps     float64
	MaxIterStage2      int
	AlphaDecay         float64
	RandomizedRounding bool
	IgnoreGeneralInt   bool
	FilterConstraints  bool
	RankerStrategy     RankerStrategy
}

// DefaultFPConfig returns the FP's documented defaults.
func DefaultFPConfig() FPConfig {
	return FPConfig{
		IntegralityEps:    1e-6,
		MaxIterStage2:     maxIterStage2Default,
		AlphaDecay:        alphaDecayDefault,
		FilterConstraints: true,
		RankerStrategy:    StrategyFrac,
	}
}

// FPOutcome is the terminal state of a FeasibilityPump.Pump call.
type FPOutcome byte

const (
	DoneFeasible FPOutcome = iota
	DoneFailLP
	DoneTime
	DoneInfeasible
	DoneIterCap
)

func (o FPOutcome) String() string {
	switch o {
	case DoneFeasible:
		return "DONE_FEASIBLE"
	case DoneFailLP:
		return "DONE_FAIL_LP"
	case DoneTime:
		return "DONE_TIME"
	case DoneInfeasible:
		return "DONE_INFEASIBLE"
	case DoneIterCap:
		return "DONE_ITER_CAP"
	default:
		return "DONE_UNKNOWN"
	}
}

// FeasibilityPump is the iterative projection/rounding loop of §4.5. KP owns
// exactly one instance per sub-run; the Rounder/Propagator it drives are
// owned by the FP in turn.
type FeasibilityPump struct {
	cfg FPConfig
	rng *rand.Rand
	log zerolog.Logger

	model          Model
	activeBinaries *varset.Set
	activeGenInt   *varset.Set

	objCoef   []float64
	objOffset float64
	objNorm   float64
	objSense  ObjSense

	alpha     float64
	iteration int

	closestFrac []float64
	closestDist float64
	solution    []float64

	prevIntBasis []float64
	prevAlpha    float64
	lastRelaxed  []float64

	cycleFIFO     []string
	restarts      int
	perturbations int
	itersSinceImprovement int

	rounder    Rounder
	propagator *Propagator
	ranker     *Ranker
}

// NewFeasibilityPump builds a FeasibilityPump with the given configuration
// and shared seeded generator (see SPEC_FULL.md §3 on PRNG threading).
func NewFeasibilityPump(cfg FPConfig, rng *rand.Rand) *FeasibilityPump {
	return &FeasibilityPump{cfg: cfg, rng: rng, log: kplog.For("fp")}
}

// Init resets the FP's per-sub-run state and attaches it to model, whose
// active binaries/general integers are derived from the model's current
// bounds (columns with ub=1 are active; the deactivated ones were zeroed by
// KP's updateModelVarBounds before this call).
func (fp *FeasibilityPump) Init(model Model, binaries, gintegers *varset.Set) {
	fp.model = model
	fp.activeBinaries = varset.New(model.NumCols())
	binaries.Each(func(j int) bool {
		if model.ColUB(j) > 0.5 {
			fp.activeBinaries.Set(j)
		}
		return true
	})
	if fp.cfg.IgnoreGeneralInt || gintegers == nil || gintegers.IsEmpty() {
		fp.activeGenInt = nil
	} else {
		fp.activeGenInt = gintegers
	}

	fp.objCoef = append([]float64(nil), model.ObjCoefs()...)
	fp.objOffset = model.ObjOffset()
	fp.objSense = model.ObjSense()
	norm := 0.0
	for _, c := range fp.objCoef {
		norm += c * c
	}
	fp.objNorm = math.Sqrt(norm)
	if fp.objNorm == 0 {
		fp.objNorm = 1
	}

	fp.alpha = 0.0
	fp.iteration = 0
	fp.closestFrac = nil
	fp.closestDist = math.Inf(1)
	fp.solution = nil
	fp.prevIntBasis = nil
	fp.prevAlpha = 0
	fp.lastRelaxed = nil
	fp.cycleFIFO = nil
	fp.restarts = 0
	fp.perturbations = 0
	fp.itersSinceImprovement = 0

	if fp.cfg.RandomizedRounding {
		fp.ranker = nil
		fp.propagator = nil
		fp.rounder = NewSimpleRounder(true, fp.rng)
	} else {
		ranker := NewRanker(fp.cfg.RankerStrategy)
		propagator := NewPropagator(model, fp.cfg.FilterConstraints)
		fp.ranker = ranker
		fp.propagator = propagator
		fp.rounder = NewPropagatorRounder(propagator, ranker)
	}
	fp.rounder.Init(model, fp.cfg.IgnoreGeneralInt)
}

// Iterations returns the total number of stage-2 iterations run.
func (fp *FeasibilityPump) Iterations() int { return fp.iteration }

// Restarts returns the number of cycle-triggered restarts.
func (fp *FeasibilityPump) Restarts() int { return fp.restarts }

// Perturbations returns the number of stall-triggered perturbations.
func (fp *FeasibilityPump) Perturbations() int { return fp.perturbations }

// ClosestFrac returns the best fractional point seen so far.
func (fp *FeasibilityPump) ClosestFrac() []float64 { return fp.closestFrac }

// ClosestDist returns the normalized basis gap of ClosestFrac.
func (fp *FeasibilityPump) ClosestDist() float64 { return fp.closestDist }

// Solution returns the integer-feasible point found by the most recent Pump
// call, or nil if it did not find one.
func (fp *FeasibilityPump) Solution() []float64 { return fp.solution }

// ObjVal evaluates x against the model's original objective (the one Init
// captured before Pump started overwriting it with the alpha-blended
// distance objective), since the model's live objective no longer reflects
// it once Pump has run.
func (fp *FeasibilityPump) ObjVal(x []float64) float64 {
	v := 0.0
	for j, c := range fp.objCoef {
		v += c * x[j]
	}
	return v + fp.objOffset
}

// Pump runs the FP state machine on the current model until an integer
// point is found, the iteration cap or time_limit is hit, or the LP proves
// infeasible. isOriginalAllActive marks whether this sub-run is on the
// fully-active original model (stage 0's infeasibility rule cares about
// this). xStart/distStart, when xStart is non-nil, seed closestFrac and
// closestDist; stage 0 then solves the LP under the blended distance
// objective (Minimize) instead of the original objective. The stage-0 solve
// always runs.
//
// Returns (foundIntFeasible, lpFeasible): lpFeasible is false only when the
// very first LP solve of this sub-run failed or proved infeasible — callers
// use this to distinguish "no integer found, but LP is fine" from "this
// sub-model itself could not even be relaxed."
func (fp *FeasibilityPump) Pump(ctx context.Context, timeLimit time.Duration, stopWithNoImprLimit bool, isOriginalAllActive bool, xStart []float64, distStart float64) (foundIntFeasible, lpFeasible bool, isInfeasible bool, outcome FPOutcome) {
	deadline := time.Now().Add(timeLimit)

	if xStart != nil {
		fp.closestFrac = append([]float64(nil), xStart...)
		fp.closestDist = distStart
	}

	haveReference := fp.closestFrac != nil

	if haveReference {
		fp.setNewObjStage()
	} else {
		fp.model.SetObjective(fp.objCoef, fp.objOffset, fp.objSense)
	}

	fp.log.Debug().Bool("have_reference", haveReference).Msg("stage 0 solve")

	ok, err := fp.model.LPOpt(ctx, Dual, false, true)
	if err != nil || !ok || !fp.model.IsPrimalFeasible() {
		if isOriginalAllActive && fp.model.IsInfeasibleOrTimeReached() {
			return false, false, true, DoneInfeasible
		}
		return false, false, false, DoneFailLP
	}

	x := fp.model.Sol()
	fp.lastRelaxed = x
	xhat, gap, foundInt := fp.retrieveAndRoundBinaryVars(x)
	fp.updateBestBasis(x, xhat, gap)
	if foundInt {
		fp.solution = xhat
		return true, true, false, DoneFeasible
	}

	fp.prevIntBasis = xhat
	fp.prevAlpha = fp.alpha

	for {
		if time.Now().After(deadline) {
			return false, true, false, DoneTime
		}
		if fp.iteration >= fp.cfg.MaxIterStage2 {
			return false, true, false, DoneIterCap
		}

		fp.alpha *= fp.cfg.AlphaDecay
		fp.setNewObjStage()

		decreaseTol := fp.iteration > 0
		ok, err := fp.model.LPOpt(ctx, Dual, decreaseTol, false)
		fp.iteration++
		if err != nil || !ok || !fp.model.IsPrimalFeasible() {
			return false, true, false, DoneFailLP
		}

		x = fp.model.Sol()
		fp.lastRelaxed = x
		xhat, gap, foundInt = fp.retrieveAndRoundBinaryVars(x)
		fp.updateBestBasis(x, xhat, gap)
		if foundInt {
			fp.solution = xhat
			return true, true, false, DoneFeasible
		}

		if fp.isStalled(xhat) {
			fp.perturb(xhat)
		} else if fp.isCycling(xhat) {
			fp.restart()
		}

		fp.prevIntBasis = xhat
		fp.prevAlpha = fp.alpha

		if stopWithNoImprLimit && fp.itersSinceImprovement >= noImprovementCap {
			return false, true, false, DoneIterCap
		}
	}
}

// retrieveAndRoundBinaryVars implements the rounding-and-integrality test of
// §4.5: fp.rounder turns x̃ into a candidate x̂ (propagation-driven by
// default, or simple threshold rounding under RandomizedRounding), then for
// each active binary/general-integer column this accumulates the ℓ1 gap
// between x̃ and x̂; a basis is "integer" iff every such gap is below eps.
func (fp *FeasibilityPump) retrieveAndRoundBinaryVars(x []float64) (xhat []float64, gap float64, foundInt bool) {
	xhat = make([]float64, len(x))
	fp.rounder.Apply(x, xhat)
	foundInt = true
	activeCount := 0

	accumulate := func(j int) {
		activeCount++
		xj := x[j]
		if math.Abs(xj) < fp.cfg.IntegralityEps {
			xj = 0
		}
		g := math.Abs(xj - xhat[j])
		gap += g
		if g >= fp.cfg.IntegralityEps {
			foundInt = false
		}
	}

	fp.activeBinaries.Each(func(j int) bool {
		accumulate(j)
		return true
	})
	if fp.activeGenInt != nil {
		fp.activeGenInt.Each(func(j int) bool {
			accumulate(j)
			return true
		})
	}

	if activeCount == 0 {
		return xhat, 0, foundInt
	}
	return xhat, gap / math.Sqrt(float64(activeCount)), foundInt
}

// updateBestBasis retains x̃ as closestFrac when its normalized gap improves
// on the best seen so far.
func (fp *FeasibilityPump) updateBestBasis(x, xhat []float64, normalizedGap float64) {
	if normalizedGap < fp.closestDist-1e-9 {
		fp.closestDist = normalizedGap
		fp.closestFrac = append([]float64(nil), x...)
		fp.itersSinceImprovement = 0
	} else {
		fp.itersSinceImprovement++
	}
}

// setNewObjStage builds the alpha-blended objective of §3:
// (1-α)/√|A| · Σ_{j∈A} (x_j if x̂_j=0 else 1-x_j)  −  α/‖c‖ · ⟨c,x⟩
func (fp *FeasibilityPump) setNewObjStage() {
	n := fp.model.NumCols()
	coeffs := make([]float64, n)
	activeCount := fp.activeBinaries.Count()
	if fp.activeGenInt != nil {
		activeCount += fp.activeGenInt.Count()
	}
	if activeCount == 0 {
		activeCount = 1
	}
	distWeight := (1 - fp.alpha) / math.Sqrt(float64(activeCount))
	objWeight := fp.alpha / fp.objNorm

	fp.activeBinaries.Each(func(j int) bool {
		xhatJ := 0.0
		if fp.prevIntBasis != nil {
			xhatJ = fp.prevIntBasis[j]
		}
		if xhatJ == 0 {
			coeffs[j] += distWeight
		} else {
			coeffs[j] -= distWeight
		}
		return true
	})
	if fp.activeGenInt != nil {
		fp.activeGenInt.Each(func(j int) bool {
			xhatJ := 0.0
			if fp.prevIntBasis != nil {
				xhatJ = fp.prevIntBasis[j]
			}
			// Push x_j away from its previous relaxed value toward xhatJ,
			// the Fischetti-Salvagnin general-integer extension of the
			// binary distance term above.
			prevRelaxed := xhatJ
			if fp.lastRelaxed != nil {
				prevRelaxed = fp.lastRelaxed[j]
			}
			if prevRelaxed >= xhatJ {
				coeffs[j] += distWeight
			} else {
				coeffs[j] -= distWeight
			}
			return true
		})
	}
	for j, c := range fp.objCoef {
		coeffs[j] -= objWeight * c
	}

	fp.model.SetObjective(coeffs, 0, Minimize)
}

// isStalled implements the stall test: iteration > 1 (we've already done
// one stage-2 LP solve before this one), |α-α_prev| < decrement precision,
// and x̂ unchanged from the previous iteration.
func (fp *FeasibilityPump) isStalled(xhat []float64) bool {
	if fp.iteration <= 1 || fp.prevIntBasis == nil {
		return false
	}
	if math.Abs(fp.alpha-fp.prevAlpha) >= alphaDecrementPrecision {
		return false
	}
	return sameActiveBinaryBasis(xhat, fp.prevIntBasis, fp.activeBinaries)
}

func sameActiveBinaryBasis(a, b []float64, active *varset.Set) bool {
	same := true
	active.Each(func(j int) bool {
		if a[j] != b[j] {
			same = false
			return false
		}
		return true
	})
	return same
}

// perturb flips every active binary's rounded value with probability 1/2,
// drawn from the shared seeded generator.
func (fp *FeasibilityPump) perturb(xhat []float64) {
	fp.perturbations++
	fp.activeBinaries.Each(func(j int) bool {
		if fp.rng != nil && fp.rng.Intn(2) == 1 {
			xhat[j] = 1 - xhat[j]
		}
		return true
	})
}

// isCycling checks xhat against the recent-fingerprint FIFO, pushing the new
// fingerprint regardless of the outcome.
func (fp *FeasibilityPump) isCycling(xhat []float64) bool {
	fingerprint := fingerprintOf(xhat, fp.activeBinaries)
	cycling := false
	for _, f := range fp.cycleFIFO {
		if f == fingerprint {
			cycling = true
			break
		}
	}
	fp.cycleFIFO = append(fp.cycleFIFO, fingerprint)
	if len(fp.cycleFIFO) > cycleFIFOCapacity {
		fp.cycleFIFO = fp.cycleFIFO[1:]
	}
	return cycling
}

func fingerprintOf(xhat []float64, active *varset.Set) string {
	var b strings.Builder
	active.Each(func(j int) bool {
		if xhat[j] != 0 {
			b.WriteString(strconv.Itoa(j))
			b.WriteByte(',')
		}
		return true
	})
	return b.String()
}

// restart re-randomizes alpha and clears the cycle FIFO; the next stage-2
// iteration re-solves the LP fresh under the new objective.
func (fp *FeasibilityPump) restart() {
	fp.restarts++
	if fp.rng != nil {
		fp.alpha = fp.rng.Float64()
	} else {
		fp.alpha = 0
	}
	fp.cycleFIFO = nil
	fp.log.Debug().Int("restarts", fp.restarts).Msg("restart")
}
