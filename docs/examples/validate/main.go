// This example demonstrates validating the analytical engine against
// discrete-event simulation: one seeded run compared metric by metric,
// then ten replications with 95% confidence intervals around each
// estimate.
//
// Usage: go run ./docs/examples/validate
// Expected output: a comparison table where every divergence sits
// within a few percent, then a replication summary whose intervals
// cover the analytical values.

package main

import (
	"fmt"
	"os"

	"poolsizer/pkg/mmc"
	"poolsizer/pkg/sim"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "validate example failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := sim.DefaultConfig()

	analytic, err := mmc.Compute(cfg.Lambda, cfg.Mu, cfg.Servers)
	if err != nil {
		return fmt.Errorf("analytic metrics: %w", err)
	}
	fmt.Printf("Analytic %s\n", analytic)

	fmt.Printf("Simulating %d customers (seed %d, warm-up %g)...\n",
		cfg.Customers, cfg.Seed, cfg.Warmup)
	res, err := sim.Run(cfg)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	div := res.RelativeError(analytic)
	fmt.Println("Metric        analytic   simulated  divergence")
	fmt.Printf("Wq          %10.6f  %10.6f  %9.2f%%\n", analytic.Wq, res.Wq, div.Wq*100)
	fmt.Printf("Lq          %10.4f  %10.4f  %9.2f%%\n", analytic.Lq, res.Lq, div.Lq*100)
	fmt.Printf("L           %10.4f  %10.4f  %9.2f%%\n", analytic.L, res.L, div.L*100)
	fmt.Printf("Rho         %10.4f  %10.4f  %9.2f%%\n", analytic.Rho, res.Rho, div.Rho*100)
	fmt.Printf("Wait percentiles: p50=%.6f p95=%.6f p99=%.6f\n",
		res.WaitP50, res.WaitP95, res.WaitP99)
	if !div.Within(0.10) {
		return fmt.Errorf("simulation diverged %.1f%% from the analytical model", div.Max()*100)
	}
	fmt.Println("Single run agrees with the analytical model.")

	const runs = 10
	fmt.Printf("Running %d replications...\n", runs)
	summary, err := sim.RunReplications(cfg, runs, 0)
	if err != nil {
		return fmt.Errorf("replications: %w", err)
	}

	fmt.Println("Metric        mean        95% interval        analytic")
	printEstimate := func(name string, e sim.Estimate, want float64) {
		fmt.Printf("%-10s %10.6f  [%9.6f, %9.6f]  %10.6f\n", name, e.Mean, e.Lo, e.Hi, want)
	}
	printEstimate("Wq", summary.Wq, analytic.Wq)
	printEstimate("Lq", summary.Lq, analytic.Lq)
	printEstimate("L", summary.L, analytic.L)
	printEstimate("Rho", summary.Rho, analytic.Rho)

	fmt.Println("Validation complete")
	return nil
}
