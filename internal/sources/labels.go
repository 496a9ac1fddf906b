package sources

import (
	"gameinsights-backend/internal/telemetry"
)

const report_labels_project = "labels.project"

// Labels is a provider vocabulary: an ordered list of label names with
// fast membership tests.
type Labels struct {
	ordered []string
	valid   map[string]struct{}
}

func NewLabels(names ...string) Labels {
	valid := make(map[string]struct{}, len(names))
	for _, name := range names {
		valid[name] = struct{}{}
	}
	return Labels{ordered: names, valid: valid}
}

// All returns the vocabulary in emission order.
func (l Labels) All() []string {
	return append([]string(nil), l.ordered...)
}

func (l Labels) Contains(name string) bool {
	_, ok := l.valid[name]
	return ok
}

// Project narrows a selection down to known labels, preserving the
// selection's order. Unknown labels are dropped with one warning. An
// empty selection means the whole vocabulary.
func (l Labels) Project(tel telemetry.API, selected []string) []string {
	if len(selected) == 0 {
		return l.All()
	}

	var kept, unknown []string
	for _, label := range selected {
		if l.Contains(label) {
			kept = append(kept, label)
		} else {
			unknown = append(unknown, label)
		}
	}
	if len(unknown) > 0 {
		tel.ReportWarning(report_labels_project, "ignoring unknown labels", unknown, l.ordered)
	}
	return kept
}

// projectData repacks full provider data down to the given labels.
// Labels the provider never set come through as explicit nils.
func projectData(full map[string]any, labels []string) map[string]any {
	out := make(map[string]any, len(labels))
	for _, label := range labels {
		out[label] = full[label]
	}
	return out
}
