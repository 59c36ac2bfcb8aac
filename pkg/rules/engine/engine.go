package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Engine is the automation rule engine surface exposed to the host
// application and to event sources.
type Engine interface {
	// Dispatch runs one end-to-end pass of matching, evaluating, and
	// executing rules for one trigger occurrence. It never fails visibly:
	// all internal errors are absorbed and logged.
	Dispatch(ctx context.Context, trigger TriggerType, ectx Context)

	// AddRule inserts or replaces a rule by id.
	AddRule(rule Rule) error

	// RemoveRule deletes a rule; unknown ids are a no-op.
	RemoveRule(id string)

	// EnableRule and DisableRule toggle an existing rule's enabled flag;
	// unknown ids are a no-op.
	EnableRule(id string)
	DisableRule(id string)

	// GetRule retrieves a rule by id.
	GetRule(id string) (Rule, bool)

	// ListRules returns a snapshot of all registered rules.
	ListRules() []Rule

	// SetEnabled toggles the whole engine. While disabled, Dispatch is a
	// no-op regardless of rule state.
	SetEnabled(enabled bool)

	// Enabled reports whether the engine is globally enabled.
	Enabled() bool
}

// RunStatus is the outcome of one rule run within a dispatch.
type RunStatus string

const (
	// RunSuccess means all conditions passed and every action succeeded.
	RunSuccess RunStatus = "success"

	// RunSkipped means a condition evaluated false and no action ran.
	RunSkipped RunStatus = "skipped"

	// RunFailed means the conditions passed but at least one action failed.
	RunFailed RunStatus = "failed"
)

// RunRecord describes one rule run for the history recorder.
type RunRecord struct {
	DispatchID string
	RuleID     string
	Trigger    TriggerType
	Status     RunStatus
	Message    string
	Time       time.Time
}

// RunRecorder persists rule run outcomes for audit and debugging. Recording
// is best-effort: a recorder failure is logged and otherwise ignored.
type RunRecorder interface {
	Record(ctx context.Context, record RunRecord) error
}

// Config configures a RuleEngine. Executor is required; everything else
// has a working default or is optional.
type Config struct {
	// Executor performs rule actions. Required.
	Executor ActionExecutor

	// Matcher evaluates conditions. Default: DefaultMatcher.
	Matcher ConditionMatcher

	// Logger for structured logging. Default: slog.Default().
	Logger *slog.Logger

	// Metrics for engine observability. Optional.
	Metrics *Metrics

	// Recorder for rule run history. Optional.
	Recorder RunRecorder
}

// RuleEngine is the default Engine implementation: a registry-backed
// trigger dispatcher with per-rule failure isolation.
//
// Concurrency: Dispatch may be invoked concurrently by independent event
// sources. Each dispatch operates on one consistent registry snapshot taken
// at its start. Actions within one rule run sequentially, and a per-rule
// lock guarantees that two concurrent dispatches never interleave the
// conditions-then-actions sequence of a single rule. Disabling a rule takes
// effect for dispatches that start afterwards; in-flight dispatches that
// already captured the rule complete normally.
type RuleEngine struct {
	registry *Registry
	matcher  ConditionMatcher
	executor ActionExecutor
	logger   *slog.Logger
	metrics  *Metrics
	recorder RunRecorder

	enabled atomic.Bool

	// ruleLocks serializes runs of the same rule across dispatches.
	ruleLocks sync.Map // rule id -> *sync.Mutex
}

var _ Engine = (*RuleEngine)(nil)

// NewRuleEngine creates a rule engine with an empty registry. The engine
// starts globally enabled.
func NewRuleEngine(cfg *Config) (*RuleEngine, error) {
	if cfg == nil || cfg.Executor == nil {
		return nil, ErrExecutorRequired
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	matcher := cfg.Matcher
	if matcher == nil {
		matcher = NewDefaultMatcher(logger)
	}

	e := &RuleEngine{
		registry: NewRegistry(),
		matcher:  matcher,
		executor: cfg.Executor,
		logger:   logger.With("component", "rules.engine"),
		metrics:  cfg.Metrics,
		recorder: cfg.Recorder,
	}
	e.enabled.Store(true)

	return e, nil
}

// Dispatch matches the trigger against the enabled rule set and runs every
// matching rule. Nothing above this boundary ever receives an error: the
// worst-case observable effect of an internal failure is an action that
// silently did not happen, discoverable via logs and the run history.
func (e *RuleEngine) Dispatch(ctx context.Context, trigger TriggerType, ectx Context) {
	if !e.enabled.Load() {
		e.logger.Debug("engine disabled, ignoring trigger", "trigger", string(trigger))
		return
	}

	dispatchID := uuid.NewString()
	rules := e.registry.Snapshot(trigger)
	e.metrics.observeDispatch(trigger)

	e.logger.Debug("dispatching trigger",
		"dispatch_id", dispatchID,
		"trigger", string(trigger),
		"matched_rules", len(rules),
	)

	for _, rule := range rules {
		e.runRule(ctx, dispatchID, trigger, rule, ectx)
	}
}

// runRule evaluates one rule's conditions and, when they all pass, executes
// its actions in declared order. A failing action is logged and skipped;
// the remaining actions still run.
func (e *RuleEngine) runRule(ctx context.Context, dispatchID string, trigger TriggerType, rule Rule, ectx Context) {
	mu := e.lockFor(rule.ID)
	mu.Lock()
	defer mu.Unlock()

	if !e.evaluateConditions(rule, ectx) {
		e.record(ctx, RunRecord{
			DispatchID: dispatchID,
			RuleID:     rule.ID,
			Trigger:    trigger,
			Status:     RunSkipped,
			Message:    "conditions not met",
			Time:       time.Now(),
		})
		return
	}

	e.metrics.observeMatch(rule.ID)
	e.logger.Info("rule matched",
		"dispatch_id", dispatchID,
		"rule_id", rule.ID,
		"rule_name", rule.Name,
		"trigger", string(trigger),
	)

	status := RunSuccess
	message := ""
	for i, action := range rule.Actions {
		err := e.executeAction(ctx, action, ectx)
		e.metrics.observeAction(action.Type, err)
		if err != nil {
			actionErr := &ActionError{
				RuleID:     rule.ID,
				ActionType: action.Type,
				Index:      i,
				Cause:      err,
			}
			e.logger.Error("action failed",
				"dispatch_id", dispatchID,
				"rule_id", rule.ID,
				"action_type", string(action.Type),
				"action_index", i,
				"error", actionErr,
			)
			status = RunFailed
			message = actionErr.Error()
		}
	}

	e.record(ctx, RunRecord{
		DispatchID: dispatchID,
		RuleID:     rule.ID,
		Trigger:    trigger,
		Status:     status,
		Message:    message,
		Time:       time.Now(),
	})
	e.metrics.observeRun(rule.ID, status)
}

// evaluateConditions applies the rule's AND-combined condition list with
// short-circuiting. An empty list is vacuously true. Any evaluation panic
// degrades to false rather than escaping the dispatch.
func (e *RuleEngine) evaluateConditions(rule Rule, ectx Context) (passed bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("condition evaluation panicked, treating as false",
				"rule_id", rule.ID,
				"panic", fmt.Sprint(r),
			)
			passed = false
		}
	}()

	for _, condition := range rule.Conditions {
		if !e.matcher.Match(condition, ectx) {
			return false
		}
	}
	return true
}

// executeAction runs one action, converting panics into errors so a
// misbehaving collaborator cannot abort the dispatch.
func (e *RuleEngine) executeAction(ctx context.Context, action Action, ectx Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()

	return e.executor.Execute(ctx, action, ectx)
}

func (e *RuleEngine) record(ctx context.Context, record RunRecord) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(ctx, record); err != nil {
		e.logger.Warn("failed to record rule run",
			"rule_id", record.RuleID,
			"error", err,
		)
	}
}

func (e *RuleEngine) lockFor(ruleID string) *sync.Mutex {
	if mu, ok := e.ruleLocks.Load(ruleID); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := e.ruleLocks.LoadOrStore(ruleID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// AddRule inserts or replaces a rule by id.
func (e *RuleEngine) AddRule(rule Rule) error {
	if err := e.registry.Add(rule); err != nil {
		return err
	}
	e.logger.Debug("rule added", "rule_id", rule.ID, "enabled", rule.Enabled)
	return nil
}

// RemoveRule deletes a rule by id.
func (e *RuleEngine) RemoveRule(id string) {
	e.registry.Remove(id)
	e.logger.Debug("rule removed", "rule_id", id)
}

// EnableRule enables an existing rule.
func (e *RuleEngine) EnableRule(id string) {
	e.registry.Enable(id)
}

// DisableRule disables an existing rule.
func (e *RuleEngine) DisableRule(id string) {
	e.registry.Disable(id)
}

// GetRule retrieves a rule by id.
func (e *RuleEngine) GetRule(id string) (Rule, bool) {
	return e.registry.Get(id)
}

// ListRules returns a snapshot of all registered rules.
func (e *RuleEngine) ListRules() []Rule {
	return e.registry.List()
}

// SetEnabled toggles the engine globally.
func (e *RuleEngine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
	e.logger.Info("engine enabled state changed", "enabled", enabled)
}

// Enabled reports whether the engine is globally enabled.
func (e *RuleEngine) Enabled() bool {
	return e.enabled.Load()
}
