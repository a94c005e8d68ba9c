package app

import (
	"os"
	"strconv"
)

// TestModeEnv makes both binaries exit before dialing Redis or the ERP.
// Test binaries set it through internal/testing/guard.
const TestModeEnv = "HEADOFFICE_TEST_MODE"

// InTestMode reports whether TestModeEnv holds a true value.
func InTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	return on
}
