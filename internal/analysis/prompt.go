package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"workfocus/internal/provider"
	"workfocus/internal/session"
	"workfocus/internal/store"
	"workfocus/internal/workitem"
)

// excerptLevels are the body lengths tried, longest first, until the
// workload prompt fits the token budget. Zero drops bodies entirely.
var excerptLevels = []int{300, 120, 0}

type itemSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Priority     string   `json:"priority"`
	Status       string   `json:"status"`
	AgeDays      int      `json:"age_days"`
	StaleDays    int      `json:"stale_days"`
	CommentCount int      `json:"comment_count"`
	Labels       []string `json:"labels"`
	Category     string   `json:"category"`
	Body         string   `json:"body,omitempty"`
}

type eventSummary struct {
	Summary string `json:"summary"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

func summarize(items []workitem.WorkItem, now time.Time, excerpt int) []itemSummary {
	out := make([]itemSummary, len(items))
	for i, it := range items {
		body := it.Body
		switch {
		case excerpt == 0:
			body = ""
		case body == "":
			body = "No description"
		default:
			if r := []rune(body); len(r) > excerpt {
				body = string(r[:excerpt])
			}
		}
		labels := it.Labels
		if labels == nil {
			labels = []string{}
		}
		out[i] = itemSummary{
			ID:           it.ID,
			Title:        it.Title,
			Priority:     it.Priority,
			Status:       it.Status,
			AgeDays:      it.AgeDays(now),
			StaleDays:    it.StaleDays(now),
			CommentCount: it.CommentCount,
			Labels:       labels,
			Category:     it.Category,
			Body:         body,
		}
	}
	return out
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

// budget bounds the prompt size in estimated tokens; zero means unbounded.
type budget struct {
	tokens int
	family provider.Family
}

// fitWorkloadPrompt builds the workload prompt at the most detailed excerpt
// level that fits b, or at the tersest level when none does.
func fitWorkloadPrompt(items []workitem.WorkItem, events []workitem.Event, categories []string, now time.Time, b budget) string {
	var prompt string
	for _, excerpt := range excerptLevels {
		prompt = workloadPrompt(items, events, categories, now, excerpt)
		if b.tokens <= 0 || provider.EstimateTokens(prompt, b.family) <= b.tokens {
			break
		}
	}
	return prompt
}

func workloadPrompt(items []workitem.WorkItem, events []workitem.Event, categories []string, now time.Time, excerpt int) string {
	evs := make([]eventSummary, len(events))
	for i, e := range events {
		evs[i] = eventSummary{
			Summary: e.Summary,
			Start:   e.Start.Format(time.RFC3339),
			End:     e.End.Format(time.RFC3339),
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are my work assistant. I have %d open work items that need attention.\n\n", len(items))
	fmt.Fprintf(&b, "My work items:\n%s\n\n", indentJSON(summarize(items, now, excerpt)))
	fmt.Fprintf(&b, "Upcoming calendar events:\n%s\n", indentJSON(evs))
	if len(categories) > 0 {
		fmt.Fprintf(&b, "\nThe user frequently works on: %s. Prioritize these categories when relevant.\n", strings.Join(categories, ", "))
	}
	b.WriteString(`
Priority rules:
1. P0/P1/Critical items almost always come before P3/Low items.
2. Items "In Progress" often need attention to keep momentum.
3. Very old items (300+ days) are rarely urgent unless they are high priority.
4. Security issues, failures and blocked work matter regardless of formal priority.
5. Weigh formal priority against actual business impact.

Identify:
1. Which item should be my TOP PRIORITY and why (give the exact item id).
2. The next concrete steps for that item.
3. Specific ways you can help me with it.
4. Two or three other notable items.

Answer conversationally and focus on actionable insights.`)
	return b.String()
}

func suggestionPrompt(it workitem.WorkItem, hint string, similar []store.Resolution, related []session.RecentItem, feedback []string, now time.Time) string {
	var b strings.Builder
	b.WriteString("I need help with this work item:\n\n")
	fmt.Fprintf(&b, "Item: %s - %s\n", it.ID, it.Title)
	fmt.Fprintf(&b, "Priority: %s | Status: %s\n", it.Priority, it.Status)
	fmt.Fprintf(&b, "Age: %d days | Stale: %d days\n", it.AgeDays(now), it.StaleDays(now))
	fmt.Fprintf(&b, "Comments: %d | Category: %s\n", it.CommentCount, it.Category)
	fmt.Fprintf(&b, "Labels: %s\n\n", strings.Join(it.Labels, ", "))
	fmt.Fprintf(&b, "Description: %s\n\n", it.Body)
	fmt.Fprintf(&b, "Context: %s\n", hint)
	if kb := similarText(similar); kb != "" {
		b.WriteString("\n" + kb + "\n")
	}
	if len(related) > 0 {
		b.WriteString("\nRecently discussed items:\n")
		for _, r := range related {
			fmt.Fprintf(&b, "- %s: %s\n", r.ID, r.Title)
		}
		b.WriteString("Use these for context and reference if helpful.\n")
	}
	b.WriteString("\nSuggest the most logical next step to move this item forward. ")
	b.WriteString("Be specific and actionable. If there are files to download, configs to check, or people to contact, mention them.\n")
	b.WriteString("Keep the response conversational and focused on getting this done.")
	if len(feedback) > 0 {
		fmt.Fprintf(&b, "\n\nPrevious feedback: %s", strings.Join(feedback, ", "))
	}
	return b.String()
}

func similarText(similar []store.Resolution) string {
	if len(similar) == 0 {
		return ""
	}
	lines := []string{"Similar past items:"}
	for _, r := range similar {
		lines = append(lines, fmt.Sprintf("- %s: %s", r.Summary, r.Resolution))
	}
	return strings.Join(lines, "\n")
}

func planPrompt(goal string, steps []string) string {
	history := "None"
	if len(steps) > 0 {
		history = strings.Join(steps, "\n")
	}
	return fmt.Sprintf("We are planning how to %s.\nSteps so far:\n%s\nProvide the next step in the plan.", goal, history)
}

// FallbackSuggestion derives a next step from the item's own signals.
func FallbackSuggestion(it workitem.WorkItem, now time.Time) string {
	var parts []string
	title := strings.ToLower(it.Title)
	if strings.Contains(title, "update") {
		parts = append(parts, "This looks like an update task. Check whether the new version is available and fetch any files it needs.")
	}
	if strings.Contains(title, "failure") {
		parts = append(parts, "This appears to be a failure investigation. Review logs and error messages to find the root cause.")
	}
	if stale := it.StaleDays(now); stale > 60 {
		parts = append(parts, fmt.Sprintf("This item has been stale for %d days. Review its current status and identify any blockers.", stale))
	}
	if it.CommentCount == 0 {
		parts = append(parts, "No comments yet - add a status update that records your investigation or next steps.")
	}
	if len(parts) == 0 {
		parts = append(parts, "Review the item details and identify the most logical next step to move it forward.")
	}
	return strings.Join(parts, " ") +
		"\n\nI can help you:\n- Break the task into steps\n- Draft status updates\n- Research related items"
}
