package optimizer

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"poolsizer/pkg/mmc"
)

// Scenario names a cost model for a side-by-side study.
type Scenario struct {
	Name string
	Cost CostModel
}

// ScenarioResult pairs a scenario name with its search outcome. Err is
// non-nil when that scenario's range held no feasible candidate; the
// Result still carries the audit list in that case.
type ScenarioResult struct {
	Name   string
	Result Result
	Err    error
}

type duplicateScenarioError struct {
	name string
}

func (e *duplicateScenarioError) Error() string {
	return fmt.Sprintf("duplicate scenario name %q: scenario names must be unique", e.name)
}

// CompareScenarios reruns the same search under each named cost model,
// answering "what if waiting were priced differently" in one call.
// Output order matches input order. A scenario whose range turns out
// infeasible lands in its Err slot without aborting the rest;
// malformed parameters abort the whole comparison.
func CompareScenarios(lambda, mu float64, scenarios []Scenario, opts Options) ([]ScenarioResult, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("%w: scenarios must be a non-empty list", mmc.ErrInvalidParameter)
	}
	seen := make(map[string]struct{}, len(scenarios))
	for i, sc := range scenarios {
		if sc.Name == "" {
			return nil, fmt.Errorf("%w: scenario %d has no name", mmc.ErrInvalidParameter, i)
		}
		if _, dup := seen[sc.Name]; dup {
			return nil, &duplicateScenarioError{name: sc.Name}
		}
		seen[sc.Name] = struct{}{}
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	out := make([]ScenarioResult, 0, len(scenarios))
	for _, sc := range scenarios {
		res, err := Optimize(lambda, mu, sc.Cost, opts)
		if err != nil && !errors.Is(err, ErrSearchBoundsExceeded) {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		out = append(out, ScenarioResult{Name: sc.Name, Result: res, Err: err})
		log.Info("scenario compared",
			zap.String("scenario", sc.Name),
			zap.Bool("feasible", res.Feasible),
			zap.Int("servers", res.Servers),
			zap.Float64("cost", res.Cost))
	}
	return out, nil
}
