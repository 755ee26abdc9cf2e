// clicker - Adaptive input capture and replay
// Records clicks relative to a target window and replays them with humanized timing
package main

import (
	"fmt"
	"os"

	"clicker/internal/app"
	"clicker/internal/output"
)

func main() {
	if err := app.Execute(); err != nil {
		fmt.Fprint(os.Stderr, output.RenderError(err))
		os.Exit(1)
	}
}
