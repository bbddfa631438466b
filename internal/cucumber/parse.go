package cucumber

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"
)

// UndefinedKeyword is returned when a step line has no known keyword.
const UndefinedKeyword = "UNDEFINED"

// Document is a parsed feature file with line-based lookups.
type Document struct {
	URI     string
	Gherkin *messages.GherkinDocument
	Pickles []*messages.Pickle

	scenarioByLine map[int]*messages.Scenario
	keywordByLine  map[int]string
	lineByNode     map[string]int
}

// ParseFile reads and parses a feature file from disk.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feature: %w", err)
	}
	return ParseDocument(path, data)
}

// ParseDocument parses feature source and compiles its pickles.
func ParseDocument(uri string, data []byte) (*Document, error) {
	newID := (&messages.Incrementing{}).NewId
	doc, err := gherkin.ParseGherkinDocument(bytes.NewReader(data), newID)
	if err != nil {
		return nil, fmt.Errorf("parse feature %s: %w", uri, err)
	}
	doc.Uri = uri
	d := &Document{
		URI:            uri,
		Gherkin:        doc,
		scenarioByLine: make(map[int]*messages.Scenario),
		keywordByLine:  make(map[int]string),
		lineByNode:     make(map[string]int),
	}
	if doc.Feature == nil {
		return d, nil
	}
	d.Pickles = gherkin.Pickles(*doc, uri, newID)
	d.index(doc.Feature)
	return d, nil
}

// Feature returns the parsed feature; nil for empty files.
func (d *Document) Feature() *messages.Feature {
	if d == nil || d.Gherkin == nil {
		return nil
	}
	return d.Gherkin.Feature
}

// ScenarioAt returns the scenario declared at line or owning the examples
// row at line.
func (d *Document) ScenarioAt(line int) (*messages.Scenario, bool) {
	if d == nil {
		return nil, false
	}
	scenario, ok := d.scenarioByLine[line]
	return scenario, ok
}

// KeywordAt returns the trimmed keyword of the step at line.
func (d *Document) KeywordAt(line int) string {
	if d == nil {
		return UndefinedKeyword
	}
	if keyword, ok := d.keywordByLine[line]; ok {
		return keyword
	}
	return UndefinedKeyword
}

// NodeLine returns the source line of an AST node id.
func (d *Document) NodeLine(id string) (int, bool) {
	if d == nil {
		return 0, false
	}
	line, ok := d.lineByNode[id]
	return line, ok
}

// CaseLine returns the line a pickle reports as its location: the examples
// row for outline rows, the scenario line otherwise.
func (d *Document) CaseLine(pickle *messages.Pickle) int {
	if pickle == nil || len(pickle.AstNodeIds) == 0 {
		return 0
	}
	line, _ := d.NodeLine(pickle.AstNodeIds[len(pickle.AstNodeIds)-1])
	return line
}

// StepLine returns the source line of a compiled pickle step.
func (d *Document) StepLine(step *messages.PickleStep) int {
	if step == nil || len(step.AstNodeIds) == 0 {
		return 0
	}
	line, _ := d.NodeLine(step.AstNodeIds[0])
	return line
}

// MatchPickles returns the indexes of pickles with the given name and step
// texts, in source order.
func (d *Document) MatchPickles(name string, stepTexts []string) []int {
	if d == nil {
		return nil
	}
	matches := make([]int, 0, 1)
	for i, pickle := range d.Pickles {
		if pickle.Name != name || len(pickle.Steps) != len(stepTexts) {
			continue
		}
		same := true
		for j, step := range pickle.Steps {
			if step.Text != stepTexts[j] {
				same = false
				break
			}
		}
		if same {
			matches = append(matches, i)
		}
	}
	return matches
}

// index records scenario, step and row lines for lookups.
func (d *Document) index(feature *messages.Feature) {
	for _, child := range feature.Children {
		if child == nil {
			continue
		}
		if child.Background != nil {
			d.indexSteps(child.Background.Steps)
		}
		if child.Rule != nil {
			for _, ruleChild := range child.Rule.Children {
				if ruleChild == nil {
					continue
				}
				if ruleChild.Background != nil {
					d.indexSteps(ruleChild.Background.Steps)
				}
			}
		}
	}
	for _, scenario := range collectScenarios(feature) {
		line := lineFromLocation(scenario.Location)
		d.scenarioByLine[line] = scenario
		d.lineByNode[scenario.Id] = line
		d.indexSteps(scenario.Steps)
		for _, examples := range scenario.Examples {
			if examples == nil {
				continue
			}
			for _, row := range examples.TableBody {
				if row == nil {
					continue
				}
				rowLine := lineFromLocation(row.Location)
				d.scenarioByLine[rowLine] = scenario
				d.lineByNode[row.Id] = rowLine
			}
		}
	}
}

func (d *Document) indexSteps(steps []*messages.Step) {
	for _, step := range steps {
		if step == nil {
			continue
		}
		line := lineFromLocation(step.Location)
		d.keywordByLine[line] = strings.TrimSpace(step.Keyword)
		d.lineByNode[step.Id] = line
	}
}

// collectScenarios flattens scenarios from a feature and its rules.
func collectScenarios(feature *messages.Feature) []*messages.Scenario {
	if feature == nil {
		return nil
	}
	scenarios := make([]*messages.Scenario, 0)
	for _, child := range feature.Children {
		if child == nil {
			continue
		}
		if child.Scenario != nil {
			scenarios = append(scenarios, child.Scenario)
		}
		if child.Rule != nil {
			for _, ruleChild := range child.Rule.Children {
				if ruleChild == nil {
					continue
				}
				if ruleChild.Scenario != nil {
					scenarios = append(scenarios, ruleChild.Scenario)
				}
			}
		}
	}
	return scenarios
}

// lineFromLocation extracts the line number from a Gherkin location.
func lineFromLocation(location *messages.Location) int {
	if location == nil {
		return 0
	}
	return int(location.Line)
}
