package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"workfocus/internal/workitem"
)

func TestExtractRecommended(t *testing.T) {
	items := []workitem.WorkItem{{ID: "OPS-1"}, {ID: "OPS-2"}, {ID: "WEB-3"}}

	top, ok := ExtractRecommended("Focus on web-3 today, then OPS-2.", items)
	assert.True(t, ok)
	assert.Equal(t, "OPS-2", top.ID, "first match in input order wins")

	top, ok = ExtractRecommended("start with web-3", items)
	assert.True(t, ok)
	assert.Equal(t, "WEB-3", top.ID)

	top, ok = ExtractRecommended("I have no idea.", items)
	assert.True(t, ok)
	assert.Equal(t, "OPS-1", top.ID)

	_, ok = ExtractRecommended("OPS-1", nil)
	assert.False(t, ok)
}

func TestExtractRecommendedSharedPrefix(t *testing.T) {
	items := []workitem.WorkItem{{ID: "PROJ-1"}, {ID: "PROJ-12"}}

	top, _ := ExtractRecommended("Work on PROJ-12 first.", items)
	assert.Equal(t, "PROJ-12", top.ID)

	top, _ = ExtractRecommended("proj-12 then (proj-1).", items)
	assert.Equal(t, "PROJ-1", top.ID)

	top, _ = ExtractRecommended("XPROJ-12", []workitem.WorkItem{{ID: "A-1"}, {ID: "PROJ-12"}})
	assert.Equal(t, "A-1", top.ID, "embedded id falls back to the first item")
}

func TestExtractReasoning(t *testing.T) {
	assert.Equal(t, "Why it matters: the deploy is blocked.",
		ExtractReasoning("Pick OPS-2. Why it matters: the deploy is blocked. Then rest."))
	assert.Equal(t, DefaultReasoning, ExtractReasoning("Pick OPS-2."))
}

func TestCleanResponse(t *testing.T) {
	raw := "<think>\nmaybe OPS-9?\n</think>\n\n  Work on OPS-2.  \n\n<DEBUG>x</DEBUG>Done\n"
	assert.Equal(t, "Work on OPS-2.\nDone", CleanResponse(raw))
	assert.Empty(t, CleanResponse("<reasoning>only</reasoning>\n \n"))
}

func TestAnalyzeDependenciesDirection(t *testing.T) {
	items := []workitem.WorkItem{
		{ID: "A", Title: "First", Body: "waits on B"},
		{ID: "B", Title: "Other"},
	}
	assert.Equal(t, map[string][]string{"A": {"B"}}, AnalyzeDependencies(items))
}

func TestAnalyzeDependenciesCaseInsensitive(t *testing.T) {
	items := []workitem.WorkItem{
		{ID: "OPS-1", Title: "Deploy", Body: "needs ops-2 and WEB-7 first"},
		{ID: "OPS-2", Title: "Fix config"},
		{ID: "WEB-7", Title: "Bump client", Body: "see OPS-2"},
	}
	assert.Equal(t, map[string][]string{
		"OPS-1": {"OPS-2", "WEB-7"},
		"WEB-7": {"OPS-2"},
	}, AnalyzeDependencies(items))
	assert.Empty(t, AnalyzeDependencies(nil))
}

func TestAnalyzeDependenciesSharedPrefix(t *testing.T) {
	items := []workitem.WorkItem{
		{ID: "PROJ-1", Title: "Root"},
		{ID: "PROJ-12", Title: "Child"},
		{ID: "PROJ-3", Body: "see PROJ-12"},
	}
	assert.Equal(t, map[string][]string{"PROJ-3": {"PROJ-12"}}, AnalyzeDependencies(items))
}
