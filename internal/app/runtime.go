package app

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// TestModeEnv disables network side effects in the binaries when set to a
// true value. The testing package sets it for any test that imports it.
const TestModeEnv = "HRMS_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

// InTestMode reports whether binaries should return before dialling
// Postgres or Redis.
func InTestMode() bool {
	testModeOnce.Do(RefreshTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads TestModeEnv.
func RefreshTestMode() {
	enabled, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	testMode.Store(enabled)
}
