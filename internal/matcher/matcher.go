// Package matcher holds the pure decision rule for whether an inventory
// item has reached its configured quality threshold. It performs no I/O.
package matcher

import (
	"strings"

	"github.com/haltarr/haltarr/internal/arr"
)

// Reason explains a decision outcome.
type Reason string

const (
	ReasonActionable    Reason = "actionable"
	ReasonNotMonitored  Reason = "not_monitored"
	ReasonNoFile        Reason = "no_file"
	ReasonNoStopQuality Reason = "no_stop_quality_configured"
	ReasonNoQualityName Reason = "no_quality_name"
	ReasonNoMatch       Reason = "quality_not_matching"
)

// Decision is the outcome of evaluating one item against the configured
// stop-quality text.
type Decision struct {
	Actionable bool
	Reason     Reason
}

// Decide reports whether item should be unmonitored given the configured
// stop-quality text. The match is a case-insensitive substring test on
// the current file's quality label. An empty or whitespace-only stop text
// makes the service inert: nothing is ever actionable, by rule rather
// than by accident.
func Decide(item arr.Item, stopQuality string) Decision {
	target := strings.ToLower(strings.TrimSpace(stopQuality))
	if target == "" {
		return Decision{Reason: ReasonNoStopQuality}
	}

	if !item.Monitored {
		return Decision{Reason: ReasonNotMonitored}
	}

	if !item.HasFile {
		return Decision{Reason: ReasonNoFile}
	}

	current := strings.ToLower(strings.TrimSpace(item.QualityName))
	if current == "" {
		return Decision{Reason: ReasonNoQualityName}
	}

	if !strings.Contains(current, target) {
		return Decision{Reason: ReasonNoMatch}
	}

	return Decision{Actionable: true, Reason: ReasonActionable}
}
