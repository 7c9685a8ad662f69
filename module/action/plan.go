package action

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/onflow/evm-fleet/model/fleet"
	"github.com/onflow/evm-fleet/model/wallet"
	"github.com/onflow/evm-fleet/module/util"
)

// Plan is an Action made of one or more contract calls run in order. All calls
// share one amount sampled when the plan starts, and the plan pauses between two
// calls. A failed call skips the remaining ones.
type Plan struct {
	name     string
	executor *Executor
	pacer    util.Pacer
	amount   *AmountRange
	steps    []CallSpec
}

var _ Action = (*Plan)(nil)

// NewPlan creates a plan. amount is nil for plans that do not move tokens.
func NewPlan(name string, executor *Executor, pacer util.Pacer, amount *AmountRange, steps ...CallSpec) *Plan {
	return &Plan{
		name:     name,
		executor: executor,
		pacer:    pacer,
		amount:   amount,
		steps:    steps,
	}
}

func (p *Plan) Name() string {
	return p.name
}

// Steps returns the calls of the plan in execution order.
func (p *Plan) Steps() []CallSpec {
	return p.steps
}

// Run executes the plan. The result carries the hash of the last successful call,
// or the error of the first failed one.
func (p *Plan) Run(ctx context.Context, w *wallet.Wallet) fleet.ActionResult {
	start := time.Now()

	var amount *big.Int
	if p.amount != nil {
		amount = p.amount.Sample(p.executor.Rand())
	}

	var last fleet.ActionResult
	for i, step := range p.steps {
		if i > 0 {
			if err := p.pacer.Pause(ctx); err != nil {
				return p.failed(start, last, fmt.Errorf("canceled before %s: %w", step.Name, err))
			}
		}

		last = p.executor.Execute(ctx, w, step, amount)
		if !last.Succeeded() {
			if len(p.steps) == 1 {
				return p.failed(start, last, last.Err)
			}
			return p.failed(start, last, fmt.Errorf("%s: %w", step.Name, last.Err))
		}
	}

	result := fleet.Success(p.name, last.Hash)
	result.Duration = time.Since(start)
	return result
}

func (p *Plan) failed(start time.Time, last fleet.ActionResult, err error) fleet.ActionResult {
	result := fleet.Failed(p.name, err)
	result.Hash = last.Hash
	result.Duration = time.Since(start)
	return result
}
