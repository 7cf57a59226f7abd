package kernelpump

import "testing"

func TestParseMethodRoundTrip(t *testing.T) {
	for _, m := range []Method{MethodSolver, MethodFeasPump, MethodKernelPump} {
		parsed, ok := ParseMethod(m.String())
		if !ok || parsed != m {
			t.Errorf("ParseMethod(%q) = (%v, %v), want (%v, true)", m.String(), parsed, ok, m)
		}
	}
	if _, ok := ParseMethod("BOGUS"); ok {
		t.Errorf("expected ParseMethod to reject an unknown method name")
	}
}

func TestParseBackendRoundTrip(t *testing.T) {
	if b, ok := ParseBackend("highs"); !ok || b != BackendHighs {
		t.Errorf("ParseBackend(highs) = (%v, %v), want (BackendHighs, true)", b, ok)
	}
	if b, ok := ParseBackend("glpk"); !ok || b != BackendGLPK {
		t.Errorf("ParseBackend(glpk) = (%v, %v), want (BackendGLPK, true)", b, ok)
	}
	if _, ok := ParseBackend("cplex"); ok {
		t.Errorf("expected ParseBackend to reject an unsupported backend")
	}
}

func TestDefaultConfigIsKernelPumpWithHighs(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Method != MethodKernelPump {
		t.Errorf("expected default method KERNELPUMP, got %v", cfg.Method)
	}
	if cfg.Solver != BackendHighs {
		t.Errorf("expected default solver highs, got %v", cfg.Solver)
	}
	if !cfg.MIPPresolve {
		t.Errorf("expected presolve enabled by default")
	}
	if cfg.KP.MaxSizeBuckets != defaultMaxSizeBuckets {
		t.Errorf("expected KP defaults threaded through, got %v", cfg.KP.MaxSizeBuckets)
	}
	if cfg.FP.MaxIterStage2 != maxIterStage2Default {
		t.Errorf("expected FP defaults threaded through, got %v", cfg.FP.MaxIterStage2)
	}
}
