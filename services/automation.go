package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/db"
	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/metrics"
	"github.com/2HgO/aura-go/models"
	"github.com/2HgO/aura-go/types/requests"
	"github.com/2HgO/aura-go/types/responses"
)

const automationTaskID = "automation-tick"

// defaultRuleTimeout covers a live swap waiting on both its approval and swap receipts.
const defaultRuleTimeout = 10 * time.Minute

type AutomationService interface {
	CreateRule(ctx context.Context, req *requests.CreateAutomationRuleRequest) (*models.AutomationRule, error)
	GetRule(ctx context.Context, req *requests.AutomationRuleRequest) (*models.AutomationRule, error)
	ListRules(ctx context.Context, req *requests.ListAutomationRulesRequest) (*responses.AutomationStatus, error)
	UpdateRule(ctx context.Context, req *requests.UpdateAutomationRuleRequest) (*models.AutomationRule, error)
	DeleteRule(ctx context.Context, req *requests.AutomationRuleRequest) error

	// Start schedules Tick on the configured interval. Stop removes it.
	Start() error
	Stop()
	Running() bool
	// Tick evaluates every active rule once, sequentially. A call made while another tick runs does nothing.
	Tick(ctx context.Context) (*responses.TickReport, error)
}

type AutomationOption func(*automationService)

func WithAutomationClock(now func() time.Time) AutomationOption {
	return func(a *automationService) {
		a.now = now
	}
}

// WithRuleTimeout bounds how long one triggered rule may spend executing its strategy.
func WithRuleTimeout(timeout time.Duration) AutomationOption {
	return func(a *automationService) {
		a.ruleTimeout = timeout
	}
}

func NewAutomationService(
	rules db.RuleRepository,
	strategies StrategyService,
	feed PriceFeed,
	notifier Notifier,
	scheduler SchedulerService,
	interval time.Duration,
	recorder metrics.Recorder,
	log *zap.Logger,
	opts ...AutomationOption,
) AutomationService {
	a := &automationService{
		service:     newService(recorder, log),
		rules:       rules,
		strategies:  strategies,
		feed:        feed,
		notifier:    notifier,
		scheduler:   scheduler,
		interval:    interval,
		ruleTimeout: defaultRuleTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type automationService struct {
	service
	rules      db.RuleRepository
	strategies StrategyService
	feed       PriceFeed
	notifier   Notifier
	scheduler  SchedulerService
	interval   time.Duration

	ruleTimeout time.Duration
	ticking     sync.Mutex
}

func (a *automationService) CreateRule(ctx context.Context, req *requests.CreateAutomationRuleRequest) (*models.AutomationRule, error) {
	conditions, err := models.DecodeConditions(req.Type, req.Conditions)
	if err != nil {
		return nil, errors.HandleBindError(err)
	}
	if err := conditions.Validate(); err != nil {
		return nil, err
	}

	now := a.now()
	rule := &models.AutomationRule{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		StrategyID:      req.StrategyID,
		Type:            req.Type,
		Conditions:      conditions,
		Actions:         req.Actions,
		Status:          models.RuleActive,
		MaxExecutions:   req.MaxExecutions,
		CooldownMinutes: req.CooldownMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := a.rules.Create(ctx, rule); err != nil {
		return nil, err
	}
	a.log.Info("automation rule created", zap.String("rule_id", rule.ID), zap.String("type", string(rule.Type)))
	return rule, nil
}

func (a *automationService) GetRule(ctx context.Context, req *requests.AutomationRuleRequest) (*models.AutomationRule, error) {
	return a.rules.Get(ctx, req.RuleID)
}

func (a *automationService) ListRules(ctx context.Context, req *requests.ListAutomationRulesRequest) (*responses.AutomationStatus, error) {
	rules, err := a.rules.List(ctx, db.RuleFilter{UserID: req.UserID, Status: models.RuleStatus(req.Status)})
	if err != nil {
		return nil, err
	}
	status := &responses.AutomationStatus{Running: a.Running(), Total: len(rules), Rules: rules}
	for _, rule := range rules {
		switch rule.Status {
		case models.RuleActive:
			status.Active++
		case models.RulePaused:
			status.Paused++
		case models.RuleCompleted:
			status.Completed++
		}
	}
	return status, nil
}

func (a *automationService) UpdateRule(ctx context.Context, req *requests.UpdateAutomationRuleRequest) (*models.AutomationRule, error) {
	rule, err := a.rules.Get(ctx, req.RuleID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case "pause":
		if rule.Status == models.RuleCompleted {
			return nil, errors.NewValidationError("completed rules cannot be paused")
		}
		rule.Status = models.RulePaused
	case "resume":
		if rule.Status == models.RuleCompleted {
			return nil, errors.NewValidationError("completed rules cannot be resumed")
		}
		rule.Status = models.RuleActive
	}
	if req.StrategyID != nil {
		rule.StrategyID = *req.StrategyID
	}
	if len(req.Conditions) > 0 {
		conditions, err := models.DecodeConditions(rule.Type, req.Conditions)
		if err != nil {
			return nil, errors.HandleBindError(err)
		}
		if err := conditions.Validate(); err != nil {
			return nil, err
		}
		rule.Conditions = conditions
	}
	if req.Actions != nil {
		rule.Actions = *req.Actions
	}
	if req.MaxExecutions != nil {
		rule.MaxExecutions = *req.MaxExecutions
	}
	if req.CooldownMinutes != nil {
		rule.CooldownMinutes = *req.CooldownMinutes
	}
	rule.UpdatedAt = a.now()

	if err := a.rules.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (a *automationService) DeleteRule(ctx context.Context, req *requests.AutomationRuleRequest) error {
	return a.rules.Delete(ctx, req.RuleID)
}

func (a *automationService) Start() error {
	a.log.Info("starting automation engine", zap.Duration("interval", a.interval))
	return a.scheduler.ScheduleEvery(automationTaskID, a.interval, func(ctx context.Context) error {
		_, err := a.Tick(ctx)
		return err
	})
}

func (a *automationService) Stop() {
	a.log.Info("stopping automation engine")
	a.scheduler.DropTask(automationTaskID)
}

func (a *automationService) Running() bool {
	return a.scheduler != nil && a.scheduler.Scheduled(automationTaskID)
}

func (a *automationService) Tick(ctx context.Context) (*responses.TickReport, error) {
	if !a.ticking.TryLock() {
		a.log.Warn("previous automation tick still running, skipping")
		return &responses.TickReport{Skipped: true}, nil
	}
	defer a.ticking.Unlock()

	rules, err := a.rules.List(ctx, db.RuleFilter{Status: models.RuleActive})
	if err != nil {
		return nil, err
	}

	report := &responses.TickReport{}
	for _, rule := range rules {
		if ctx.Err() != nil {
			a.log.Warn("automation tick cancelled", zap.Int("remaining", len(rules)-report.Evaluated))
			break
		}
		report.Evaluated++
		now := a.now()

		if rule.Exhausted() {
			a.complete(ctx, rule, now, report)
			continue
		}
		if rule.CoolingDown(now) {
			continue
		}

		triggered, err := a.evaluate(ctx, rule, now)
		if err != nil {
			a.log.Warn("evaluating automation rule", zap.String("rule_id", rule.ID), zap.Error(err))
			continue
		}
		if !triggered {
			continue
		}
		a.trigger(ctx, rule, now, report)
	}
	a.metrics.IncCounter("automation_tick", map[string]string{"outcome": "ok"})
	return report, nil
}

func (a *automationService) trigger(ctx context.Context, rule *models.AutomationRule, now time.Time, report *responses.TickReport) {
	report.Triggered++
	log := a.log.With(zap.String("rule_id", rule.ID), zap.String("strategy_id", rule.StrategyID))
	log.Info("automation rule triggered")
	a.notify(ctx, models.AutomationTriggered_WebhookEvent, rule, nil)

	execCtx, cancel := context.WithTimeout(ctx, a.ruleTimeout)
	defer cancel()
	result, err := a.strategies.ExecuteStrategy(execCtx, StrategyParams{
		Address:       rule.UserID,
		StrategyID:    rule.StrategyID,
		RiskTolerance: rule.Actions.RiskTolerance,
		MaxSlippage:   models.Double(rule.Actions.MaxSlippage).Decimal(),
		MaxGasPrice:   models.Double(rule.Actions.MaxGasPrice).Decimal(),
	})
	switch {
	case err != nil:
		report.Failed++
		log.Error("executing automated strategy", zap.Error(err))
		a.notify(ctx, models.AutomationFailed_WebhookEvent, rule, map[string]any{"error": err.Error()})
	case !result.Success:
		report.Failed++
		log.Warn("automated strategy did not succeed", zap.String("reason", result.Error))
		a.notify(ctx, models.AutomationFailed_WebhookEvent, rule, result)
	}
	a.metrics.IncCounter("automation_trigger", outcome(err))

	rule.ExecutionCount++
	rule.LastExecuted = &now
	rule.UpdatedAt = now
	if rule.Exhausted() {
		a.complete(ctx, rule, now, report)
		return
	}
	if err := a.rules.Update(ctx, rule); err != nil {
		log.Error("saving automation rule", zap.Error(err))
	}
}

func (a *automationService) complete(ctx context.Context, rule *models.AutomationRule, now time.Time, report *responses.TickReport) {
	report.Completed++
	rule.Status = models.RuleCompleted
	rule.UpdatedAt = now
	if err := a.rules.Update(ctx, rule); err != nil {
		a.log.Error("saving automation rule", zap.String("rule_id", rule.ID), zap.Error(err))
		return
	}
	a.log.Info("automation rule completed", zap.String("rule_id", rule.ID), zap.Int("executions", rule.ExecutionCount))
	a.notify(ctx, models.AutomationCompleted_WebhookEvent, rule, nil)
}

func (a *automationService) notify(ctx context.Context, event models.WebhookEvent, rule *models.AutomationRule, detail any) {
	if a.notifier == nil || !rule.Actions.Notify {
		return
	}
	payload := map[string]any{"rule": rule}
	if detail != nil {
		payload["detail"] = detail
	}
	if err := a.notifier.Notify(ctx, event, rule.UserID, payload); err != nil {
		a.log.Warn("sending automation event", zap.String("event", event.String()), zap.Error(err))
	}
}

func (a *automationService) evaluate(ctx context.Context, rule *models.AutomationRule, now time.Time) (bool, error) {
	switch c := rule.Conditions.(type) {
	case models.PriceTrigger:
		price, err := a.feed.Price(ctx, rule.UserID, c.Token)
		if err != nil {
			return false, err
		}
		target := models.Double(c.TargetPrice).Decimal()
		if c.Direction == models.PriceAbove {
			return price.GreaterThanOrEqual(target), nil
		}
		return price.LessThanOrEqual(target), nil
	case models.TimeBased:
		return timeDue(c, rule, now), nil
	case models.Rebalance:
		volatility, err := a.feed.Volatility(ctx, rule.UserID, c.Token)
		if err != nil {
			return false, err
		}
		return volatility >= c.VolatilityThreshold, nil
	case models.YieldOptimization:
		apy, err := a.feed.BestAPY(ctx, rule.UserID)
		if err != nil {
			return false, err
		}
		return apy >= c.MinAPY, nil
	}
	return false, fmt.Errorf("rule %s has no conditions for type %s", rule.ID, rule.Type)
}

func timeDue(c models.TimeBased, rule *models.AutomationRule, now time.Time) bool {
	if c.IntervalMinutes > 0 {
		since := rule.CreatedAt
		if rule.LastExecuted != nil {
			since = *rule.LastExecuted
		}
		return now.Sub(since) >= time.Duration(c.IntervalMinutes)*time.Minute
	}
	if now.Minute() != *c.Minute {
		return false
	}
	return rule.LastExecuted == nil || now.Sub(*rule.LastExecuted) >= time.Minute
}
