package engine

import (
	"testing"

	"tabledit/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func totalsEngine(t *testing.T, rules ...*models.TotalCalculationRule) *CalculationEngine {
	t.Helper()
	engine, err := NewCalculationEngine(nil, rules, estimateColumns(), testHolder(t), zap.NewNop().Sugar())
	require.NoError(t, err)
	return engine
}

func amountRow(amount interface{}) *models.Row {
	return &models.Row{Fields: map[string]interface{}{"amount": amount}}
}

func TestCalculateTotalsSum(t *testing.T) {
	engine := totalsEngine(t, &models.TotalCalculationRule{
		RuleID: "total-amount", Column: "amount",
		CalculationType: models.TotalSum, Precision: 2, Enabled: true,
	})

	rows := []*models.Row{
		{Fields: map[string]interface{}{"quantity": 10.0, "amount": 255.0}},
		{Fields: map[string]interface{}{"quantity": 5.0, "amount": 63.75}},
	}

	totals := engine.CalculateTotals(rows)
	require.Contains(t, totals, "amount")
	assert.Equal(t, 318.75, totals["amount"].Value)
	assert.Equal(t, "$318.75", totals["amount"].Formatted)
	assert.Equal(t, "total-amount", totals["amount"].RuleID)
}

func TestCalculateTotalsOrderIndependence(t *testing.T) {
	engine := totalsEngine(t, &models.TotalCalculationRule{
		RuleID: "total-amount", Column: "amount",
		CalculationType: models.TotalSum, Precision: 2, Enabled: true,
	})

	rows := []*models.Row{amountRow(255.0), amountRow(63.75), amountRow(0.5)}
	reversed := []*models.Row{rows[2], rows[1], rows[0]}

	assert.Equal(t, engine.CalculateTotals(rows)["amount"].Value,
		engine.CalculateTotals(reversed)["amount"].Value)
}

func TestCalculateTotalsSkipsGroupRows(t *testing.T) {
	engine := totalsEngine(t, &models.TotalCalculationRule{
		RuleID: "total-amount", Column: "amount",
		CalculationType: models.TotalSum, Precision: 2, Enabled: true,
	})

	rows := []*models.Row{
		{IsGroup: true, Fields: map[string]interface{}{"amount": 1000.0}},
		amountRow(10.0),
		amountRow(20.0),
	}

	totals := engine.CalculateTotals(rows)
	assert.Equal(t, 30.0, totals["amount"].Value)
}

func TestCalculateTotalsSkipsRowsWithoutField(t *testing.T) {
	engine := totalsEngine(t, &models.TotalCalculationRule{
		RuleID: "avg-amount", Column: "amount",
		CalculationType: models.TotalAverage, Precision: 2, Enabled: true,
	})

	rows := []*models.Row{
		amountRow(10.0),
		{Fields: map[string]interface{}{"name": "no amount here"}},
		amountRow(20.0),
	}

	// The field-less row does not drag the average down.
	totals := engine.CalculateTotals(rows)
	assert.Equal(t, 15.0, totals["amount"].Value)
}

func TestCalculateTotalsCoercesNonNumericToZero(t *testing.T) {
	engine := totalsEngine(t, &models.TotalCalculationRule{
		RuleID: "min-amount", Column: "amount",
		CalculationType: models.TotalMin, Precision: 2, Enabled: true,
	})

	rows := []*models.Row{amountRow(10.0), amountRow("garbage"), amountRow(20.0)}

	totals := engine.CalculateTotals(rows)
	assert.Equal(t, 0.0, totals["amount"].Value)
}

func TestCalculateTotalsMinMax(t *testing.T) {
	engine := totalsEngine(t,
		&models.TotalCalculationRule{RuleID: "min", Column: "quantity",
			CalculationType: models.TotalMin, Enabled: true},
		&models.TotalCalculationRule{RuleID: "max", Column: "amount",
			CalculationType: models.TotalMax, Enabled: true},
	)

	rows := []*models.Row{
		{Fields: map[string]interface{}{"quantity": 3.0, "amount": 100.0}},
		{Fields: map[string]interface{}{"quantity": 1.0, "amount": 400.0}},
		{Fields: map[string]interface{}{"quantity": 7.0, "amount": 250.0}},
	}

	totals := engine.CalculateTotals(rows)
	assert.Equal(t, 1.0, totals["quantity"].Value)
	assert.Equal(t, 400.0, totals["amount"].Value)
}

func TestCalculateTotalsDisabledRuleOmitted(t *testing.T) {
	engine := totalsEngine(t, &models.TotalCalculationRule{
		RuleID: "off", Column: "amount",
		CalculationType: models.TotalSum, Enabled: false,
	})

	totals := engine.CalculateTotals([]*models.Row{amountRow(10.0)})
	assert.NotContains(t, totals, "amount")
}

func TestCalculateTotalsEmptyColumnOmitted(t *testing.T) {
	engine := totalsEngine(t, &models.TotalCalculationRule{
		RuleID: "sum", Column: "amount",
		CalculationType: models.TotalSum, Enabled: true,
	})

	rows := []*models.Row{{IsGroup: true, Fields: map[string]interface{}{"amount": 5.0}}}
	totals := engine.CalculateTotals(rows)
	assert.NotContains(t, totals, "amount")
}

func TestCalculateTotalsCustomPanicOmitsResult(t *testing.T) {
	engine := totalsEngine(t, &models.TotalCalculationRule{
		RuleID: "explosive", Column: "amount",
		CalculationType: models.TotalCustom,
		CustomFunc:      func(values []float64) float64 { panic("aggregate bug") },
		Enabled:         true,
	})

	totals := engine.CalculateTotals([]*models.Row{amountRow(10.0)})
	assert.NotContains(t, totals, "amount")
	assert.Equal(t, int64(1), engine.Metrics().ErrorCount)
}

func TestCalculateTotalsNonCurrencyFormatting(t *testing.T) {
	engine := totalsEngine(t, &models.TotalCalculationRule{
		RuleID: "qty", Column: "quantity",
		CalculationType: models.TotalSum, Precision: 0, Enabled: true,
	})

	rows := []*models.Row{
		{Fields: map[string]interface{}{"quantity": 2.0}},
		{Fields: map[string]interface{}{"quantity": 3.0}},
	}

	totals := engine.CalculateTotals(rows)
	assert.Equal(t, "5", totals["quantity"].Formatted)
}
