package kplog

import "testing"

func TestForTagsComponent(t *testing.T) {
	// Exercise the sub-logger path; mainly a smoke test that For does not
	// panic and returns a usable logger under the test-mode Nop() root.
	l := For("fp")
	l.Debug().Msg("should be a no-op under go test")
}

func TestDisableIsIdempotent(t *testing.T) {
	Disable()
	Disable()
	For("kp").Info().Msg("still should not panic")
}
