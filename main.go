// Idiomatic entrypoint for the Cobra CLI; actual command wiring lives in
// cmd/root.go and cmd/run.go.
package main

import (
	"github.com/modelnet-sim/modelnet/cmd"
)

func main() {
	cmd.Execute()
}
