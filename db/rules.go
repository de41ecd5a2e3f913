package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"

	sq "github.com/Masterminds/squirrel"

	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/models"
)

type RuleFilter struct {
	UserID string
	Status models.RuleStatus
}

type RuleRepository interface {
	Create(ctx context.Context, rule *models.AutomationRule) error
	Get(ctx context.Context, id string) (*models.AutomationRule, error)
	Update(ctx context.Context, rule *models.AutomationRule) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter RuleFilter) ([]*models.AutomationRule, error)
}

func NewRuleRepository(dataDB *sql.DB) RuleRepository {
	if dataDB == nil {
		return NewMemoryRuleRepository()
	}
	return &sqlRuleRepository{dataDB: dataDB}
}

type memoryRuleRepository struct {
	mu    sync.RWMutex
	rules map[string]models.AutomationRule
}

func NewMemoryRuleRepository() RuleRepository {
	return &memoryRuleRepository{rules: map[string]models.AutomationRule{}}
}

func (m *memoryRuleRepository) Create(_ context.Context, rule *models.AutomationRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[rule.ID]; ok {
		return errors.NewValidationError("rule already exists")
	}
	m.rules[rule.ID] = *rule
	return nil
}

func (m *memoryRuleRepository) Get(_ context.Context, id string) (*models.AutomationRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rule, ok := m.rules[id]
	if !ok {
		return nil, errors.NewNotFoundError("automation rule not found")
	}
	return &rule, nil
}

func (m *memoryRuleRepository) Update(_ context.Context, rule *models.AutomationRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[rule.ID]; !ok {
		return errors.NewNotFoundError("automation rule not found")
	}
	m.rules[rule.ID] = *rule
	return nil
}

func (m *memoryRuleRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return errors.NewNotFoundError("automation rule not found")
	}
	delete(m.rules, id)
	return nil
}

func (m *memoryRuleRepository) List(_ context.Context, filter RuleFilter) ([]*models.AutomationRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rules := []*models.AutomationRule{}
	for _, rule := range m.rules {
		if filter.UserID != "" && rule.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && rule.Status != filter.Status {
			continue
		}
		r := rule
		rules = append(rules, &r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].CreatedAt.Before(rules[j].CreatedAt) })
	return rules, nil
}

type sqlRuleRepository struct {
	dataDB *sql.DB
}

var ruleColumns = []string{
	"id", "user_id", "strategy_id", "type", "conditions", "actions", "status",
	"execution_count", "max_executions", "cooldown_minutes", "last_executed", "created_at", "updated_at",
}

func selectRules(filter RuleFilter) sq.SelectBuilder {
	stmt := sq.Select(ruleColumns...).From("automation_rules")
	if filter.UserID != "" {
		stmt = stmt.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.Status != "" {
		stmt = stmt.Where(sq.Eq{"status": filter.Status})
	}
	return stmt.OrderBy("created_at ASC")
}

func (s *sqlRuleRepository) Create(ctx context.Context, rule *models.AutomationRule) error {
	conditions, actions, err := encodeRule(rule)
	if err != nil {
		return err
	}
	_, err = sq.
		Insert("automation_rules").
		Columns(ruleColumns...).
		Values(rule.ID, rule.UserID, rule.StrategyID, rule.Type, conditions, actions, rule.Status,
			rule.ExecutionCount, rule.MaxExecutions, rule.CooldownMinutes, nullTime(rule.LastExecuted), rule.CreatedAt, rule.UpdatedAt).
		RunWith(s.dataDB).
		ExecContext(ctx)
	if err != nil {
		return errors.HandleDataDBError(err)
	}
	return nil
}

func (s *sqlRuleRepository) Get(ctx context.Context, id string) (*models.AutomationRule, error) {
	row := sq.Select(ruleColumns...).
		From("automation_rules").
		Where(sq.Eq{"id": id}).
		Limit(1).
		RunWith(s.dataDB).
		QueryRowContext(ctx)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("automation rule not found")
	}
	if err != nil {
		return nil, errors.HandleDataDBError(err)
	}
	return rule, nil
}

func (s *sqlRuleRepository) Update(ctx context.Context, rule *models.AutomationRule) error {
	conditions, actions, err := encodeRule(rule)
	if err != nil {
		return err
	}
	res, err := sq.
		Update("automation_rules").
		SetMap(map[string]any{
			"strategy_id":      rule.StrategyID,
			"type":             rule.Type,
			"conditions":       conditions,
			"actions":          actions,
			"status":           rule.Status,
			"execution_count":  rule.ExecutionCount,
			"max_executions":   rule.MaxExecutions,
			"cooldown_minutes": rule.CooldownMinutes,
			"last_executed":    nullTime(rule.LastExecuted),
			"updated_at":       rule.UpdatedAt,
		}).
		Where(sq.Eq{"id": rule.ID}).
		RunWith(s.dataDB).
		ExecContext(ctx)
	if err != nil {
		return errors.HandleDataDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("automation rule not found")
	}
	return nil
}

func (s *sqlRuleRepository) Delete(ctx context.Context, id string) error {
	res, err := sq.
		Delete("automation_rules").
		Where(sq.Eq{"id": id}).
		RunWith(s.dataDB).
		ExecContext(ctx)
	if err != nil {
		return errors.HandleDataDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("automation rule not found")
	}
	return nil
}

func (s *sqlRuleRepository) List(ctx context.Context, filter RuleFilter) ([]*models.AutomationRule, error) {
	rows, err := selectRules(filter).
		RunWith(s.dataDB).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.HandleDataDBError(err)
	}
	defer rows.Close()

	rules := []*models.AutomationRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, errors.HandleDataDBError(err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.HandleDataDBError(err)
	}
	return rules, nil
}

func encodeRule(rule *models.AutomationRule) (conditions, actions []byte, err error) {
	if conditions, err = json.Marshal(rule.Conditions); err != nil {
		return nil, nil, errors.NewFatalError(err)
	}
	if actions, err = json.Marshal(rule.Actions); err != nil {
		return nil, nil, errors.NewFatalError(err)
	}
	return conditions, actions, nil
}

// scanRule returns raw driver errors so callers can tell a missing row apart.
func scanRule(row sq.RowScanner) (*models.AutomationRule, error) {
	var (
		rule         = &models.AutomationRule{}
		conditions   []byte
		actions      []byte
		lastExecuted sql.NullTime
	)
	err := row.Scan(&rule.ID, &rule.UserID, &rule.StrategyID, &rule.Type, &conditions, &actions, &rule.Status,
		&rule.ExecutionCount, &rule.MaxExecutions, &rule.CooldownMinutes, &lastExecuted, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if rule.Conditions, err = models.DecodeConditions(rule.Type, conditions); err != nil {
		return nil, err
	}
	if err = json.Unmarshal(actions, &rule.Actions); err != nil {
		return nil, err
	}
	if lastExecuted.Valid {
		rule.LastExecuted = &lastExecuted.Time
	}
	return rule, nil
}
