// This example demonstrates sizing a server pool from a YAML study:
// it loads workload rates and a cost model, searches the bounded range
// for the cheapest SLA-compliant server count, and compares the named
// cost scenarios.
//
// Usage: go run ./docs/examples/sizing
// Expected output: the analytic baseline, the search audit with
// infeasible candidates marked, the chosen pool size, then one line
// per cost scenario.

package main

import (
	"errors"
	"fmt"
	"os"

	"poolsizer/internal/logger"
	"poolsizer/pkg/mmc"
	"poolsizer/pkg/optimizer"
	"poolsizer/pkg/scenario"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sizing example failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	log, err := logger.ForComponent("sizing-example")
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	studyFile := "docs/examples/sizing/scenario.yaml"
	if _, err := os.Stat(studyFile); err != nil {
		return fmt.Errorf("study file %s is missing: %w", studyFile, err)
	}

	fmt.Printf("Loading %s...\n", studyFile)
	doc, err := scenario.Load(studyFile)
	if err != nil {
		return fmt.Errorf("loading study: %w", err)
	}

	lambda, mu := doc.Rates()
	floor := mmc.MinStableServers(lambda, mu)
	fmt.Printf("Offered load a=%.2f Erlangs, stability floor c=%d\n",
		mmc.OfferedLoad(lambda, mu), floor)

	baseline, err := mmc.Compute(lambda, mu, floor)
	if err != nil {
		return fmt.Errorf("analytic baseline: %w", err)
	}
	fmt.Printf("Baseline %s\n", baseline)

	opts := doc.SearchOptions()
	opts.Logger = log

	fmt.Printf("Searching [auto..%d] under MaxWait=%g...\n", opts.MaxServers, opts.MaxWait)
	res, err := optimizer.Optimize(lambda, mu, doc.CostModel(), opts)

	var bounds *optimizer.BoundsError
	switch {
	case errors.As(err, &bounds):
		// The audit list still explains the whole range.
		fmt.Printf("No feasible pool size: %s\n", res.Diagnostic)
	case err != nil:
		return fmt.Errorf("search: %w", err)
	}

	fmt.Println("Search audit:")
	for _, e := range res.Evaluations {
		if !e.Feasible {
			fmt.Printf("  c=%2d %-10s\n", e.Servers, e.Reason)
			continue
		}
		fmt.Printf("  c=%2d cost=%8.2f (servers %.2f + waiting %.2f) Wq=%.6f\n",
			e.Servers, e.Cost, e.ServerCost, e.WaitingCost, e.Metrics.Wq)
	}
	if res.Feasible {
		fmt.Printf("Chosen pool size: %d servers at cost %.2f per hour\n", res.Servers, res.Cost)
	}

	if len(doc.Scenarios) == 0 {
		return nil
	}

	fmt.Println("Comparing cost scenarios...")
	comparisons, err := optimizer.CompareScenarios(lambda, mu, doc.CostScenarios(), opts)
	if err != nil {
		return fmt.Errorf("compare scenarios: %w", err)
	}
	for _, sr := range comparisons {
		if sr.Err != nil {
			fmt.Printf("  %-12s blocked: %s\n", sr.Name, sr.Result.Diagnostic)
			continue
		}
		fmt.Printf("  %-12s -> %d servers at cost %.2f per hour\n",
			sr.Name, sr.Result.Servers, sr.Result.Cost)
	}

	fmt.Println("Sizing study complete")
	return nil
}
