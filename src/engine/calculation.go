package engine

import (
	"fmt"
	"time"

	"tabledit/src/config"
	"tabledit/src/helpers"
	"tabledit/src/models"
	"tabledit/src/settings"

	"go.uber.org/zap"
)

// CalculationEngine recomputes dependent fields and column totals for one
// table part. It runs synchronously on the host's single execution context;
// every public method returns a result object and never panics outward.
type CalculationEngine struct {
	rules      []*models.CalculationRule
	totalRules []*models.TotalCalculationRule
	columns    map[string]models.TableColumn
	holder     *config.Holder
	metrics    *metricsTracker
	logger     *zap.SugaredLogger
}

// NewCalculationEngine validates the rule set and wires it to the
// configuration holder. A non-CUSTOM rule whose target appears among its own
// sources is rejected here, before it can ever loop.
func NewCalculationEngine(rules []*models.CalculationRule, totalRules []*models.TotalCalculationRule,
	columns []models.TableColumn, holder *config.Holder,
	logger *zap.SugaredLogger) (*CalculationEngine, error) {

	colByID := make(map[string]models.TableColumn, len(columns))
	for _, col := range columns {
		colByID[col.ColumnID] = col
	}

	for _, rule := range rules {
		if rule.TargetColumn == "" {
			return nil, fmt.Errorf("calculation rule '%s' has no target column", rule.RuleID)
		}
		if rule.CalculationType == models.CalculationCustom {
			if rule.CustomFunc == nil {
				return nil, fmt.Errorf("calculation rule '%s' is CUSTOM but has no function", rule.RuleID)
			}
			continue
		}
		if rule.HasSource(rule.TargetColumn) {
			return nil, fmt.Errorf("calculation rule '%s' targets its own source column '%s'",
				rule.RuleID, rule.TargetColumn)
		}
	}

	for _, rule := range totalRules {
		if rule.CalculationType == models.TotalCustom && rule.CustomFunc == nil {
			return nil, fmt.Errorf("total rule '%s' is CUSTOM but has no function", rule.RuleID)
		}
	}

	return &CalculationEngine{
		rules:      rules,
		totalRules: totalRules,
		columns:    colByID,
		holder:     holder,
		metrics:    newMetricsTracker(),
		logger:     logger,
	}, nil
}

// CalculateField runs every enabled on-change rule whose sources contain the
// changed column, in registration order, cascading into rules that source a
// freshly written target within the same pass. A column already written in
// the pass is never written again; the cascade is cycle-broken, not
// cycle-checked. The configured timeout is a soft budget: breaching it bumps
// a counter but the result stays successful.
func (e *CalculationEngine) CalculateField(row *models.Row, changedColumnID string) models.CalculationResult {
	args := settings.GetSettings()
	start := time.Now()

	result := models.CalculationResult{Success: true}
	written := make(map[string]bool)
	pending := []string{changedColumnID}

	for len(pending) > 0 {
		column := pending[0]
		pending = pending[1:]

		for _, rule := range e.rules {
			if !rule.Enabled || !rule.TriggerOnChange || !rule.HasSource(column) {
				continue
			}
			if written[rule.TargetColumn] {
				// Already produced this pass; skipping breaks the cascade loop.
				continue
			}

			value, err := e.applyRule(rule, row)
			if err != nil {
				// Rule boundary: the target keeps its previous value and the
				// failure travels in the result, never as a panic.
				e.metrics.recordError()
				result.Success = false
				if result.Message == "" {
					result.Message = fmt.Sprintf("rule '%s' failed: %v", rule.RuleID, err)
				}
				if args.Debug {
					e.logger.Warnf("Calculation rule '%s' failed on row '%s': %v", rule.RuleID, row.RowID, err)
				}
				continue
			}

			row.SetField(rule.TargetColumn, helpers.RoundTo(value, rule.Precision))
			written[rule.TargetColumn] = true
			result.ChangedColumns = append(result.ChangedColumns, rule.TargetColumn)
			pending = append(pending, rule.TargetColumn)
		}
	}

	elapsed := time.Since(start)
	e.metrics.recordField(elapsed)
	result.ExecutionTimeMs = float64(elapsed.Microseconds()) / 1000.0

	budget := e.holder.Current().CalculationTimeoutMs
	if result.ExecutionTimeMs > float64(budget) {
		e.metrics.recordBreach()
		if args.Debug {
			e.logger.Warnf("Field calculation took %.2fms, budget is %dms", result.ExecutionTimeMs, budget)
		}
	}
	return result
}

// applyRule computes the rule's value for the row. CUSTOM functions run
// behind a recover so a misbehaving formula can never take the engine down.
func (e *CalculationEngine) applyRule(rule *models.CalculationRule, row *models.Row) (value float64, err error) {
	switch rule.CalculationType {
	case models.CalculationMultiply:
		value = 1
		for _, src := range rule.SourceColumns {
			value *= helpers.ToNumber(row.Field(src))
		}
		return value, nil

	case models.CalculationSum:
		for _, src := range rule.SourceColumns {
			value += helpers.ToNumber(row.Field(src))
		}
		return value, nil

	case models.CalculationCustom:
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("custom function panicked: %v", r)
			}
		}()
		return rule.CustomFunc(row)

	default:
		return 0, fmt.Errorf("unknown calculation type %q", rule.CalculationType)
	}
}

// Metrics returns a snapshot of the rolling counters.
func (e *CalculationEngine) Metrics() models.CalculationMetrics {
	return e.metrics.snapshot()
}

// Rules returns the field rules in registration order.
func (e *CalculationEngine) Rules() []*models.CalculationRule {
	return e.rules
}

// Column returns the column definition for formatting decisions.
func (e *CalculationEngine) Column(columnID string) (models.TableColumn, bool) {
	col, ok := e.columns[columnID]
	return col, ok
}
