package testutil

import (
	"fmt"
	"testing"

	"gameinsights-backend/lib/telemetry"
)

// Setup boots logging and telemetry for a test. Without a telemetry.json5
// in scope the providers are local no-export ones, so tests never need a
// collector endpoint. The returned cleanup flushes whatever was set up.
func Setup(t testing.TB, name string) func() {
	telemetry.InitSlog(true)
	return telemetry.SetupForTesting(t, fmt.Sprintf("test:%s", name))
}
