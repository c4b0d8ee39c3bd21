// Command hodeictl is the operator CLI for the orchestrator: login, job
// submission and observation, pool/template management, and worker
// listing, built the way the teacher composes its cobra command trees
// (src/cmd package in the pack's LLMrecon reference).
package main

import (
	"fmt"
	"os"

	"github.com/rubentxu/hodei-pipelines/cmd/hodeictl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
