package analysis

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"workfocus/internal/provider"
	"workfocus/internal/workitem"
)

func TestWorkloadPromptContents(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	items := []workitem.WorkItem{
		{ID: "OPS-1", Title: "Rotate certs", Priority: "P1", Created: now.Add(-48 * time.Hour), Updated: now.Add(-24 * time.Hour)},
	}
	p := workloadPrompt(items, nil, []string{"Bug"}, now, 300)

	assert.Contains(t, p, "I have 1 open work items")
	assert.Contains(t, p, `"id": "OPS-1"`)
	assert.Contains(t, p, `"age_days": 2`)
	assert.Contains(t, p, `"stale_days": 1`)
	assert.Contains(t, p, `"body": "No description"`)
	assert.Contains(t, p, "The user frequently works on: Bug.")
	assert.Contains(t, p, "TOP PRIORITY")
}

func TestFitWorkloadPromptShrinksBodies(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	long := strings.Repeat("x", 1000)
	items := []workitem.WorkItem{
		{ID: "A-1", Body: long, Created: now, Updated: now},
		{ID: "A-2", Body: long, Created: now, Updated: now},
	}

	full := fitWorkloadPrompt(items, nil, nil, now, budget{})
	assert.Contains(t, full, strings.Repeat("x", 300))
	assert.NotContains(t, full, strings.Repeat("x", 301))

	minimal := workloadPrompt(items, nil, nil, now, 0)
	tight := budget{tokens: provider.EstimateTokens(minimal, provider.FamilyLlama) + 1, family: provider.FamilyLlama}
	fitted := fitWorkloadPrompt(items, nil, nil, now, tight)
	assert.Equal(t, minimal, fitted)
	assert.NotContains(t, fitted, `"body"`)

	tiny := fitWorkloadPrompt(items, nil, nil, now, budget{tokens: 1, family: provider.FamilyLlama})
	assert.Equal(t, minimal, tiny)
}

func TestPlanPrompt(t *testing.T) {
	assert.Equal(t, "We are planning how to ship.\nSteps so far:\nNone\nProvide the next step in the plan.", planPrompt("ship", nil))
	assert.Contains(t, planPrompt("ship", []string{"a", "b"}), "Steps so far:\na\nb\n")
}
