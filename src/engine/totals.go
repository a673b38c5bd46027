package engine

import (
	"time"

	"tabledit/src/helpers"
	"tabledit/src/models"
	"tabledit/src/settings"
)

// CalculateTotals applies every enabled total rule independently across the
// row set, skipping group/header rows. SUM, AVERAGE, MIN and MAX are pure
// reductions and do not depend on row order. The totals budget is soft, the
// same way the field budget is.
func (e *CalculationEngine) CalculateTotals(rows []*models.Row) map[string]models.TotalResult {
	args := settings.GetSettings()
	start := time.Now()

	totals := make(map[string]models.TotalResult, len(e.totalRules))
	for _, rule := range e.totalRules {
		if !rule.Enabled {
			continue
		}

		values := collectColumnValues(rows, rule.Column)
		value, ok := e.reduceTotal(rule, values)
		if !ok {
			continue
		}

		rounded := helpers.RoundTo(value, rule.Precision)
		totals[rule.Column] = models.TotalResult{
			Value:     rounded,
			Formatted: e.formatTotal(rule.Column, rounded, rule.Precision),
			RuleID:    rule.RuleID,
		}
	}

	elapsed := time.Since(start)
	e.metrics.recordTotals(elapsed)

	budget := e.holder.Current().TotalCalculationTimeoutMs
	elapsedMs := float64(elapsed.Microseconds()) / 1000.0
	if elapsedMs > float64(budget) {
		e.metrics.recordBreach()
		if args.Debug {
			e.logger.Warnf("Totals over %d rows took %.2fms, budget is %dms", len(rows), elapsedMs, budget)
		}
	}
	return totals
}

// collectColumnValues gathers the column's values from data rows. Group rows
// never contribute; rows that carry the field but hold something non-numeric
// contribute 0, matching the cell coercion rule.
func collectColumnValues(rows []*models.Row, columnID string) []float64 {
	var values []float64
	for _, row := range rows {
		if row.IsGroup || !row.HasField(columnID) {
			continue
		}
		values = append(values, helpers.ToNumber(row.Field(columnID)))
	}
	return values
}

func (e *CalculationEngine) reduceTotal(rule *models.TotalCalculationRule, values []float64) (value float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	defer func() {
		if r := recover(); r != nil {
			e.metrics.recordError()
			e.logger.Warnf("Custom total rule '%s' panicked: %v", rule.RuleID, r)
			value, ok = 0, false
		}
	}()
	switch rule.CalculationType {
	case models.TotalSum:
		total := 0.0
		for _, v := range values {
			total += v
		}
		return total, true
	case models.TotalAverage:
		total := 0.0
		for _, v := range values {
			total += v
		}
		return total / float64(len(values)), true
	case models.TotalMin:
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m, true
	case models.TotalMax:
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m, true
	case models.TotalCustom:
		return rule.CustomFunc(values), true
	default:
		return 0, false
	}
}

func (e *CalculationEngine) formatTotal(columnID string, value float64, precision int) string {
	formatted := helpers.FormatNumber(value, precision)
	if col, ok := e.columns[columnID]; ok && col.Type == models.ColumnCurrency {
		return "$" + formatted
	}
	return formatted
}
