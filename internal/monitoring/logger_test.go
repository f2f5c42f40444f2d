package monitoring

import (
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var captured []string
	SetLogger(func(format string, v ...interface{}) {
		captured = append(captured, format)
	})
	Logf("region %s dropped", "VISp")
	if len(captured) != 1 || !strings.Contains(captured[0], "dropped") {
		t.Errorf("custom logger not invoked, captured=%v", captured)
	}

	// nil installs a no-op, not a panic
	SetLogger(nil)
	Logf("should go nowhere")
	if len(captured) != 1 {
		t.Errorf("no-op logger still captured output: %v", captured)
	}
}

func TestLogfDefaultNotNil(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
}
