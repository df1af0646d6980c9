package resmon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckBudgetRejectsWhenEstimateExceedsBudget(t *testing.T) {
	m := New(nil, 1000, 0.9)
	ok, reason := m.CheckBudget(600, 1) // (1+1)*600 = 1200 > 1000 budget
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

func TestCheckBudgetAllowsWithinBudget(t *testing.T) {
	m := New(nil, 1_000_000_000, 0.9)
	ok, _ := m.CheckBudget(1024, 0)
	assert.True(t, ok)
}

func TestUsageFractionIsWithinUnitRange(t *testing.T) {
	m := New(nil, 1_000_000_000, 0.9)
	// UsageFraction triggers a real host sample; on any platform gopsutil
	// supports, total memory is never zero, so the fraction is in [0,1].
	f := m.UsageFraction()
	assert.GreaterOrEqual(t, f, 0.0)
	assert.LessOrEqual(t, f, 1.0)
}
