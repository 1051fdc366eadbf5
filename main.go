/*
Skirmish drives the engine package: it loads the configuration, builds the
testbed game and runs it until the window closes, a signal arrives or the
frame limit is reached.
*/
package main

import (
	"os"

	"github.com/spaghettifunk/skirmish/engine/core"
)

func main() {
	if err := Execute(); err != nil {
		core.LogError("%v", err)
		os.Exit(1)
	}
}
