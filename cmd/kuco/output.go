package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/yourusername/kuco/internal/diagnostic"
	"github.com/yourusername/kuco/internal/i18n"
	"github.com/yourusername/kuco/internal/model"
	"sigs.k8s.io/yaml"
)

// dumpEntry is the YAML shape of one cache row
type dumpEntry struct {
	Table     string      `json:"table"`
	Key       string      `json:"key"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Value     interface{} `json:"value"`
}

// renderEntries renders cache rows as YAML. Values that are not JSON are shown as strings.
func renderEntries(entries []model.CacheEntry) ([]byte, error) {
	out := make([]dumpEntry, 0, len(entries))
	for _, e := range entries {
		var value interface{}
		if err := json.Unmarshal(e.Value, &value); err != nil {
			value = string(e.Value)
		}
		out = append(out, dumpEntry{
			Table:     e.Table,
			Key:       e.Key,
			UpdatedAt: e.UpdatedAt.UTC(),
			Value:     value,
		})
	}
	return yaml.Marshal(out)
}

// writeReport prints a doctor report in the configured language
func writeReport(w io.Writer, report *diagnostic.Report, locale string) {
	loc := i18n.NewLocalizer(locale)

	if report.AccessErr != nil {
		fmt.Fprintf(w, "✗ access review: %v\n", report.AccessErr)
	}
	for _, status := range report.Access {
		if status.Allowed {
			fmt.Fprintf(w, "✓ %s: %s\n", status.Permission, loc.T("doctor.access_allowed"))
			continue
		}
		fmt.Fprintf(w, "✗ %s: %s\n", status.Permission, loc.T("doctor.access_denied"))
		fmt.Fprintf(w, "    %s\n", status.Hint())
		fmt.Fprintf(w, "    %s\n", diagnostic.RecommendedAction(status.Permission))
	}

	switch {
	case report.CacheErr != nil:
		fmt.Fprintf(w, "✗ cache: %v\n", report.CacheErr)
	case report.Freshness == nil:
	case !report.Freshness.Synced:
		fmt.Fprintf(w, "✗ %s\n", loc.T("doctor.never_synced"))
	case report.Freshness.Stale:
		fmt.Fprintf(w, "✗ %s\n", loc.TF("doctor.stale", map[string]interface{}{
			"Age":       report.Freshness.Age.Round(time.Second).String(),
			"Threshold": report.Freshness.Threshold.String(),
		}))
	default:
		fmt.Fprintf(w, "✓ %s\n", loc.TF("doctor.fresh", map[string]interface{}{
			"Age": report.Freshness.Age.Round(time.Second).String(),
		}))
	}

	if action := diagnostic.StaleAction(report.Freshness); action != "" {
		fmt.Fprintf(w, "    %s\n", action)
	}
}
