// Package fingerprint derives stable content digests for work-item batches.
// A digest only depends on item identifiers and update timestamps, so it
// survives reordering and changes whenever an item is edited upstream.
package fingerprint

import (
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"workfocus/internal/workitem"
)

const partSeparator = "\x1f"

// Items fingerprints a batch of work items.
func Items(items []workitem.WorkItem) string {
	return digest(itemPart(items))
}

// ItemsWithEvents fingerprints a batch together with its auxiliary events.
func ItemsWithEvents(items []workitem.WorkItem, events []workitem.Event) string {
	return digest(itemPart(items) + "#" + eventPart(events))
}

// Parts fingerprints an arbitrary list of key parts. Order matters here.
func Parts(parts ...string) string {
	return digest(strings.Join(parts, partSeparator))
}

func itemPart(items []workitem.WorkItem) string {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.ID + ":" + stamp(it.Updated)
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

func eventPart(events []workitem.Event) string {
	keys := make([]string, len(events))
	for i, e := range events {
		keys[i] = e.Summary + ":" + stamp(e.Start) + ":" + stamp(e.End)
	}
	sort.Strings(keys)
	return strings.Join(keys, "|")
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func digest(s string) string {
	sum := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
