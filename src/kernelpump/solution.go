package kernelpump

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Solution is the value object a run of SOLVER/FEASPUMP/KERNELPUMP fills
// exactly once and the command driver serializes to disk.
type Solution struct {
	IsFeasible bool
	Value      float64
	ReoptValue float64

	RealIntegralityGap       float64
	ProjectionIntegralityGap float64
	NumFrac                  int

	NumIterations          int
	NumBuckets             int
	LastBucketVisited      int
	FirstBucketToIterPump  int
	NumBinaryVarsAdded     int
	NumBinaryVarsWithValueOne int

	TimeSpentBuildingKernelBuckets time.Duration
	TotalTimeSpent                time.Duration
}

// FromKernelPump fills a Solution from a finished KernelPump run, evaluating
// its own postsolved solution vector against m to compute the gap fields.
// ReoptValue is set equal to Value; no residual LP is re-solved.
func FromKernelPump(kp *KernelPump, m Model, eps float64) Solution {
	s := Solution{
		IsFeasible:                     kp.FoundIntFeasible(),
		NumIterations:                  kp.fp.Iterations(),
		NumBuckets:                     len(kp.buckets),
		LastBucketVisited:              kp.LastBucketVisited(),
		FirstBucketToIterPump:          kp.FirstBucketToIterPump(),
		TimeSpentBuildingKernelBuckets: kp.TimeSpentBuildingKernelBuckets(),
		TotalTimeSpent:                 kp.TotalTimeSpent(),
	}

	if !s.IsFeasible {
		s.Value = math.NaN()
		s.ReoptValue = math.NaN()
		return s
	}

	x := kp.Solution()
	s.Value = kp.PrimalBound()
	s.RealIntegralityGap, s.NumFrac = m.ComputeIntegralityGap(x, eps)
	s.ProjectionIntegralityGap = kp.ClosestDist()
	s.ReoptValue = s.Value

	kp.binaries.Each(func(j int) bool {
		if x[j] > 0.5 {
			s.NumBinaryVarsWithValueOne++
		}
		return true
	})
	if kp.currKernel != nil {
		s.NumBinaryVarsAdded = kp.currKernel.Count()
	}
	return s
}

// WriteToFile formats every floating-point field to six decimal digits (counts
// as plain integers) and writes
// the key-value solution file at
// <folder>/<configName>_<instanceName>_<seed>.sol, per the solution-file
// contract.
func (s Solution) WriteToFile(folder, configName, instanceName string, seed int64) error {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return err
	}
	path := filepath.Join(folder, fmt.Sprintf("%s_%s_%d.sol", configName, instanceName, seed))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	status := "FAILED TO FIND AN INTEGER FEASIBLE SOLUTION"
	if s.IsFeasible {
		status = "FOUND INTEGER FEASIBLE"
	}

	w := func(format string, args ...interface{}) {
		fmt.Fprintf(f, format, args...)
	}

	w("status: %s\n", status)
	w("buildKernelBucketsTime: %.6f\n", s.TimeSpentBuildingKernelBuckets.Seconds())
	w("totalTime: %.6f\n", s.TotalTimeSpent.Seconds())
	w("numIterations: %d\n", s.NumIterations)
	w("numBuckets: %d\n", s.NumBuckets)
	w("lastBucketVisited: %d\n", s.LastBucketVisited)
	w("firstBucketToIterPump: %d\n", s.FirstBucketToIterPump)

	if s.IsFeasible {
		w("value: %.6f\n", s.Value)
		w("reoptValue: %.6f\n", s.ReoptValue)
		w("realIntegralityGap: %.6f\n", s.RealIntegralityGap)
		w("projectionIntegralityGap: %.6f\n", s.ProjectionIntegralityGap)
		w("numFrac: %d\n", s.NumFrac)
		w("numBinVarsAdded: %d\n", s.NumBinaryVarsAdded)
		w("numBinVarsWithValue1: %d\n", s.NumBinaryVarsWithValueOne)
	}

	return nil
}
