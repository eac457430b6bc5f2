// Package testing puts the binaries into test mode. Blank-import it from a
// main package test so main returns before dialling any backend.
package testing

import (
	"os"

	"github.com/odyssey-erp/odyssey-hrms/internal/app"
)

func init() {
	if _, set := os.LookupEnv(app.TestModeEnv); set {
		return
	}
	if err := os.Setenv(app.TestModeEnv, "true"); err != nil {
		panic(err)
	}
}
