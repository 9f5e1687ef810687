package testutil

import (
	"os"
	"testing"
)

// LabTopologyPath returns the descriptor of a live lab, set via the
// DUOPATH_LAB environment variable, or "" when none is running.
func LabTopologyPath() string {
	return os.Getenv("DUOPATH_LAB")
}

// SkipIfNoLab skips tests that need a live container lab.
func SkipIfNoLab(t *testing.T) {
	t.Helper()
	if LabTopologyPath() == "" {
		t.Skip("no lab running: set DUOPATH_LAB to the topology file of a started lab")
	}
}
