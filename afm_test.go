package afm

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDescribeStartsWithHeader(t *testing.T) {
	cases := []AvailabilityInfo{
		{Default: Availability{Available: true}, Tagging: Availability{Available: true}},
		{Default: Availability{Available: false, Reason: ReasonDeviceIneligible}},
		{},
	}
	for _, info := range cases {
		out := info.Describe()
		if !strings.HasPrefix(out, DescribeHeader+"\n") {
			t.Errorf("Describe output does not start with header: %q", out)
		}
		if !strings.Contains(out, "default model:") {
			t.Errorf("Describe output missing default model line: %q", out)
		}
	}
}

func TestDescribeMentionsReason(t *testing.T) {
	info := AvailabilityInfo{
		Default: Availability{Available: false, Reason: ReasonAssetsPreparing},
		Tagging: Availability{Available: true},
	}
	out := info.Describe()
	if !strings.Contains(out, "model assets are still preparing") {
		t.Errorf("expected assets-preparing reason in output, got %q", out)
	}
	if !strings.Contains(out, "tagging model: available") {
		t.Errorf("expected tagging availability in output, got %q", out)
	}
}

func TestDescribeUnknownReasonForEmpty(t *testing.T) {
	info := AvailabilityInfo{Default: Availability{Available: false}}
	if !strings.Contains(info.Describe(), "unknown reason") {
		t.Errorf("empty reason should render as unknown, got %q", info.Describe())
	}
}

func TestStatusSummary(t *testing.T) {
	info := AvailabilityInfo{Default: Availability{Available: true}}
	if got := info.StatusSummary(); got != StatusAvailable {
		t.Errorf("expected %q, got %q", StatusAvailable, got)
	}

	// Tagging alone does not make the runtime available.
	info = AvailabilityInfo{Tagging: Availability{Available: true}}
	if got := info.StatusSummary(); got != StatusNotAvailable {
		t.Errorf("expected %q, got %q", StatusNotAvailable, got)
	}
}

func TestAvailabilityInfoJSONIncludesStatus(t *testing.T) {
	info := AvailabilityInfo{
		Default: Availability{Available: true},
		Tagging: Availability{Available: false, Reason: ReasonFeatureDisabled},
	}
	data, err := json.Marshal(info)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"status":"available"`) {
		t.Errorf("expected derived status in JSON, got %s", s)
	}
	if !strings.Contains(s, `"reason":"feature_disabled"`) {
		t.Errorf("expected tagging reason in JSON, got %s", s)
	}
}

func TestCommitMessageFormat(t *testing.T) {
	msg := CommitMessage{
		Type:        CommitAdd,
		Summary:     "add line",
		Description: "adds a line to x",
	}
	want := "add: add line\n\n\nadds a line to x"
	if got := msg.Format(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCommitTypesComplete(t *testing.T) {
	types := CommitTypes()
	if len(types) != 10 {
		t.Fatalf("expected 10 commit types, got %d", len(types))
	}
	seen := make(map[CommitType]bool)
	for _, ct := range types {
		if seen[ct] {
			t.Errorf("duplicate commit type %q", ct)
		}
		seen[ct] = true
	}
}
