// Package main is the entry point for the matchtel CLI, which tracks live
// match telemetry and stores finished matches for later review.
package main

import "github.com/pable/go-match-telemetry/cmd"

func main() {
	cmd.Execute()
}
