package listener

import (
	"os"
	"strings"

	messages "github.com/cucumber/messages/go/v21"
)

// Label names understood by Allure-compatible report viewers.
const (
	LabelFeature   = "feature"
	LabelStory     = "story"
	LabelSuite     = "suite"
	LabelTag       = "tag"
	LabelSeverity  = "severity"
	LabelHost      = "host"
	LabelFramework = "framework"
	LabelLanguage  = "language"
)

const severityTagPrefix = "@severity="

var hostname = func() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}

// caseLabels builds the labels of a case from its feature, scenario name
// and tags, followed by static labels.
func caseLabels(feature *messages.Feature, scenarioName string, tags []string, static []Label) []Label {
	labels := make([]Label, 0, len(tags)+len(static)+7)
	if feature != nil && feature.Name != "" {
		labels = append(labels,
			Label{Name: LabelFeature, Value: feature.Name},
			Label{Name: LabelSuite, Value: feature.Name},
		)
	}
	if scenarioName != "" {
		labels = append(labels, Label{Name: LabelStory, Value: scenarioName})
	}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if strings.HasPrefix(tag, severityTagPrefix) {
			labels = append(labels, Label{Name: LabelSeverity, Value: strings.TrimPrefix(tag, severityTagPrefix)})
			continue
		}
		labels = append(labels, Label{Name: LabelTag, Value: strings.TrimPrefix(tag, "@")})
	}
	if host := hostname(); host != "" {
		labels = append(labels, Label{Name: LabelHost, Value: host})
	}
	labels = append(labels,
		Label{Name: LabelFramework, Value: "godog"},
		Label{Name: LabelLanguage, Value: "go"},
	)
	return append(labels, static...)
}
