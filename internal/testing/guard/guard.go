// Package guard is blank-imported by tests that load packages with binary
// entry points, so nothing dials Redis or the ERP during go test.
package guard

import "os"

func init() {
	if _, ok := os.LookupEnv("HEADOFFICE_TEST_MODE"); !ok {
		_ = os.Setenv("HEADOFFICE_TEST_MODE", "1")
	}
	if os.Getenv("UPSTREAM_BASE_URL") == "" {
		_ = os.Setenv("UPSTREAM_BASE_URL", "http://127.0.0.1:0")
	}
}
