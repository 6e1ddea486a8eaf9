// Package afm defines the shared domain types for the afm CLI: model
// capability kinds, availability reporting, and the commit message shape
// produced by structured generation.
package afm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Capability identifies one of the runtime's generation capabilities.
type Capability string

const (
	// CapabilityDefault is the general-purpose text generation capability.
	CapabilityDefault Capability = "default"
	// CapabilityTagging is the auxiliary classification capability.
	CapabilityTagging Capability = "tagging"
)

// Reason explains why a capability is unavailable.
type Reason string

const (
	// ReasonDeviceIneligible means the model is not installed or the device
	// cannot run it.
	ReasonDeviceIneligible Reason = "device_ineligible"
	// ReasonFeatureDisabled means the runtime is not running or the
	// capability is switched off.
	ReasonFeatureDisabled Reason = "feature_disabled"
	// ReasonAssetsPreparing means the runtime is still loading model assets.
	ReasonAssetsPreparing Reason = "assets_preparing"
	// ReasonUnknown covers everything else.
	ReasonUnknown Reason = "unknown"
)

// reasonText maps reasons to the phrasing used in Describe output.
var reasonText = map[Reason]string{
	ReasonDeviceIneligible: "model is not installed on this device",
	ReasonFeatureDisabled:  "runtime is not running or the feature is disabled",
	ReasonAssetsPreparing:  "model assets are still preparing",
	ReasonUnknown:          "unavailable for an unknown reason",
}

// Availability reports whether a single capability is usable.
type Availability struct {
	Available bool `json:"available"`
	// Reason is set only when Available is false.
	Reason Reason `json:"reason,omitempty"`
}

// Status is the coarse summary of the runtime's overall availability.
type Status string

const (
	StatusAvailable    Status = "available"
	StatusNotAvailable Status = "not_available"
)

// AvailabilityInfo aggregates the availability of both capabilities.
type AvailabilityInfo struct {
	Default Availability `json:"default"`
	Tagging Availability `json:"tagging"`
}

// StatusSummary derives the overall status from the default capability.
func (i AvailabilityInfo) StatusSummary() Status {
	if i.Default.Available {
		return StatusAvailable
	}
	return StatusNotAvailable
}

// DescribeHeader is the first line of every Describe rendering.
const DescribeHeader = "Model availability:"

// Describe renders a deterministic multi-line report. The first line is
// always DescribeHeader and a line for the default model is always present.
func (i AvailabilityInfo) Describe() string {
	var b strings.Builder
	b.WriteString(DescribeHeader)
	b.WriteString("\n")
	b.WriteString("  default model: " + describeOne(i.Default) + "\n")
	b.WriteString("  tagging model: " + describeOne(i.Tagging))
	return b.String()
}

func describeOne(a Availability) string {
	if a.Available {
		return "available"
	}
	reason := a.Reason
	if reason == "" {
		reason = ReasonUnknown
	}
	return "unavailable (" + reasonText[reason] + ")"
}

// MarshalJSON includes the derived summary alongside the per-capability data.
func (i AvailabilityInfo) MarshalJSON() ([]byte, error) {
	type alias AvailabilityInfo
	return json.Marshal(struct {
		Status Status `json:"status"`
		alias
	}{Status: i.StatusSummary(), alias: alias(i)})
}

// CommitType is the category prefix of a generated commit message.
type CommitType string

// The accepted commit types, in the order they are offered to the model.
const (
	CommitFix     CommitType = "fix"
	CommitHotfix  CommitType = "hotfix"
	CommitAdd     CommitType = "add"
	CommitUpdate  CommitType = "update"
	CommitChange  CommitType = "change"
	CommitClean   CommitType = "clean"
	CommitDisable CommitType = "disable"
	CommitRemove  CommitType = "remove"
	CommitUpgrade CommitType = "upgrade"
	CommitRevert  CommitType = "revert"
)

// CommitTypes lists every accepted commit type.
func CommitTypes() []CommitType {
	return []CommitType{
		CommitFix, CommitHotfix, CommitAdd, CommitUpdate, CommitChange,
		CommitClean, CommitDisable, CommitRemove, CommitUpgrade, CommitRevert,
	}
}

// CommitMessage is the structured output of commit message generation.
// Length limits on Summary and Description are stated to the model but not
// enforced locally.
type CommitMessage struct {
	Type        CommitType `json:"commitType"`
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
}

// Format renders the message in the conventional layout:
// "<type>: <summary>" followed by a blank gap and the description.
func (m CommitMessage) Format() string {
	return fmt.Sprintf("%s: %s\n\n\n%s", m.Type, m.Summary, m.Description)
}
