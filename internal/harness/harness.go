package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/marketplace/internal/audit"
	"github.com/roach88/marketplace/internal/ir"
	"github.com/roach88/marketplace/internal/market"
)

// watchTimeout bounds how long a step waits for its watched entry.
const watchTimeout = 2 * time.Second

// Harness is the test execution engine.
// It runs one scenario against one marketplace with deterministic tx ids.
type Harness struct {
	market   *market.Marketplace
	accounts map[string]ir.Identity
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory marketplace for isolation.
// An error is returned only when the scenario cannot run at all; step and
// assertion mismatches are reported through Result.Errors.
//
// Execution flow:
// 1. Resolve accounts and deploy the marketplace
// 2. Execute steps, checking outcome, watch and per-step assertions
// 3. Evaluate final assertions
// 4. Return result with pass/fail, trace, rejections and errors
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	accounts := make(map[string]ir.Identity, len(scenario.Accounts))
	for name, addr := range scenario.Accounts {
		id, err := ir.ParseIdentity(addr)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", name, err)
		}
		accounts[name] = id
	}

	prefix := scenario.TxPrefix
	if prefix == "" {
		prefix = "tx"
	}

	h := &Harness{
		accounts: accounts,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	deployer, err := h.resolve(scenario.Deployer)
	if err != nil {
		return nil, err
	}
	m, err := market.New(ctx, deployer,
		market.WithTxGenerator(market.NewFixedGenerator(prefix)),
		market.WithLogger(h.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("deploy marketplace: %w", err)
	}
	h.market = m

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for _, msg := range h.evaluate("assertions", scenario.Assertions) {
		result.AddError(msg)
	}

	for _, e := range m.Entries() {
		result.AddEntryTrace(e)
	}
	return result, nil
}

// Market returns the marketplace the harness ran against.
func (h *Harness) Market() *market.Marketplace {
	return h.market
}

// resolve maps an account name, or a literal 0x identity, to an identity.
func (h *Harness) resolve(ref string) (ir.Identity, error) {
	if id, ok := h.accounts[ref]; ok {
		return id, nil
	}
	id, err := ir.ParseIdentity(ref)
	if err != nil {
		return ir.Identity{}, fmt.Errorf("unknown account %q", ref)
	}
	return id, nil
}

// executeStep runs one step. Returned errors abort the scenario; outcome
// mismatches are recorded on result.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	from, err := h.resolve(step.From)
	if err != nil {
		return err
	}

	var w *audit.Watch
	if step.Watch != "" {
		kind, err := ir.ParseKind(step.Watch)
		if err != nil {
			return err
		}
		w = h.market.Watch(kind)
		defer w.Cancel()
	}

	var target ir.Identity
	if step.Op != OpCreateStore {
		if target, err = h.resolve(step.Target); err != nil {
			return err
		}
	}

	subject, callErr := h.invoke(ctx, step, from, target)

	label := fmt.Sprintf("steps[%d] %s", index, step.Op)
	switch {
	case step.Expect != nil:
		if callErr == nil {
			result.AddError(fmt.Sprintf("%s: expected %s, got success", label, step.Expect.Error))
			break
		}
		code := ir.CodeOf(callErr)
		if string(code) != step.Expect.Error {
			result.AddError(fmt.Sprintf("%s: expected %s, got %v", label, step.Expect.Error, callErr))
			break
		}
		result.AddRejection(index, step.Op, code)
		if w != nil {
			select {
			case e, ok := <-w.C():
				if ok {
					result.AddError(fmt.Sprintf("%s: rejected call delivered %s", label, e.Kind))
				}
			default:
			}
		}

	case callErr != nil:
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", label, callErr))

	case w != nil:
		wctx, cancel := context.WithTimeout(ctx, watchTimeout)
		e, err := w.Wait(wctx)
		cancel()
		if err != nil {
			result.AddError(fmt.Sprintf("%s: watch %s: %v", label, step.Watch, err))
			break
		}
		if e.Requester != from {
			result.AddError(fmt.Sprintf("%s: watched %s has _req %s, want %s",
				label, e.Kind.EventName(), e.Requester.Hex(), from.Hex()))
		}
		if e.Subject != subject {
			result.AddError(fmt.Sprintf("%s: watched %s has %s %s, want %s",
				label, e.Kind.EventName(), e.Kind.SubjectField(), e.Subject.Hex(), subject.Hex()))
		}
	}

	for _, msg := range h.evaluate(label, step.Assert) {
		result.AddError(msg)
	}
	return nil
}

// invoke calls the step's operation and returns the subject its entry should
// carry: the target for role operations, the new store for createStore.
func (h *Harness) invoke(ctx context.Context, step Step, from, target ir.Identity) (ir.Identity, error) {
	var err error
	switch step.Op {
	case OpCreateStore:
		s, err := h.market.CreateStore(ctx, from, step.Name)
		return s.Address, err
	case OpAddAdmin:
		_, err = h.market.AddAdmin(ctx, from, target)
	case OpDeleteAdmin:
		_, err = h.market.DeleteAdmin(ctx, from, target)
	case OpAddApprovedStoreOwner:
		_, err = h.market.AddApprovedStoreOwner(ctx, from, target)
	case OpDeleteApprovedStoreOwner:
		_, err = h.market.DeleteApprovedStoreOwner(ctx, from, target)
	default:
		return ir.Identity{}, fmt.Errorf("unknown op %q", step.Op)
	}
	return target, err
}
