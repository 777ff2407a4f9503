// Package capture harvests past resolutions for the knowledge base from
// places they are already written down: commit history and manual notes.
package capture

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

var itemIDRe = regexp.MustCompile(`[A-Z][A-Z0-9]*-\d+`)

const fieldSep = "|||"

// Adder stores a resolution in the knowledge base.
type Adder interface {
	AddResolution(ctx context.Context, id, summary, resolution string) error
}

type Commit struct {
	Hash    string
	Subject string
	Author  string
	Date    time.Time
}

// GitLog lists commits of the repository at dir, newest first.
func GitLog(ctx context.Context, dir, since string, maxCommits int) ([]Commit, error) {
	args := []string{"log", "--no-decorate"}
	if since != "" {
		args = append(args, "--since", since)
	}
	if maxCommits > 0 {
		args = append(args, fmt.Sprintf("-n%d", maxCommits))
	}
	args = append(args, "--format=%H"+fieldSep+"%s"+fieldSep+"%an"+fieldSep+"%aI")

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}
	return parseLog(string(out)), nil
}

func parseLog(out string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.SplitN(line, fieldSep, 4)
		if len(parts) < 4 {
			continue
		}
		c := Commit{Hash: parts[0], Subject: parts[1], Author: parts[2]}
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(parts[3])); err == nil {
			c.Date = t
		}
		commits = append(commits, c)
	}
	return commits
}

// Resolution is a past fix attributed to one work item.
type Resolution struct {
	ItemID     string
	Summary    string
	Resolution string
}

// Resolutions turns commits that name a work item into knowledge entries.
// Commits are expected newest first; only the newest commit per item is kept.
func Resolutions(commits []Commit) []Resolution {
	seen := make(map[string]bool)
	var out []Resolution
	for _, c := range commits {
		for _, id := range itemIDRe.FindAllString(c.Subject, -1) {
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, Resolution{
				ItemID:     id,
				Summary:    cleanSubject(c.Subject, id),
				Resolution: describe(c),
			})
		}
	}
	return out
}

func cleanSubject(subject, id string) string {
	s := strings.ReplaceAll(subject, id, "")
	s = strings.Trim(strings.TrimSpace(s), ":-[]() ")
	if s == "" {
		return subject
	}
	return s
}

func describe(c Commit) string {
	hash := c.Hash
	if len(hash) > 8 {
		hash = hash[:8]
	}
	desc := fmt.Sprintf("Resolved in commit %s by %s", hash, c.Author)
	if !c.Date.IsZero() {
		desc += " on " + c.Date.Format("2006-01-02")
	}
	return desc
}

// ImportGit adds a resolution for every item named in the commit history of
// dir and reports how many were stored.
func ImportGit(ctx context.Context, kb Adder, dir, since string, maxCommits int) (int, error) {
	commits, err := GitLog(ctx, dir, since, maxCommits)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range Resolutions(commits) {
		if err := kb.AddResolution(ctx, r.ItemID, r.Summary, r.Resolution); err != nil {
			return n, fmt.Errorf("store resolution for %s: %w", r.ItemID, err)
		}
		n++
	}
	return n, nil
}
