package listener

import (
	"strings"

	messages "github.com/cucumber/messages/go/v21"
)

// caseDescription joins the non-empty feature and scenario descriptions.
func caseDescription(feature *messages.Feature, scenario *messages.Scenario) string {
	parts := make([]string, 0, 2)
	if feature != nil {
		if text := strings.TrimSpace(feature.Description); text != "" {
			parts = append(parts, text)
		}
	}
	if scenario != nil {
		if text := strings.TrimSpace(scenario.Description); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// containerName renders "<keyword>: <name>" for the scenario container.
func containerName(scenario *messages.Scenario, tc TestCase) string {
	if scenario == nil {
		return "Scenario: " + tc.Name
	}
	return scenario.Keyword + ": " + scenario.Name
}

// derefEvent turns pointer events into their value form.
func derefEvent(ev Event) Event {
	switch e := ev.(type) {
	case *RunStarted:
		return derefOrNil(e)
	case *SourceRead:
		return derefOrNil(e)
	case *SourceParsed:
		return derefOrNil(e)
	case *CaseStarted:
		return derefOrNil(e)
	case *CaseFinished:
		return derefOrNil(e)
	case *StepStarted:
		return derefOrNil(e)
	case *StepFinished:
		return derefOrNil(e)
	case *Write:
		return derefOrNil(e)
	case *Embed:
		return derefOrNil(e)
	case *RunFinished:
		return derefOrNil(e)
	default:
		return ev
	}
}

func derefOrNil[T Event](e *T) Event {
	if e == nil {
		return nil
	}
	return *e
}
