package listener

import (
	"errors"
	"fmt"

	messages "github.com/cucumber/messages/go/v21"
)

// ErrMalformedExamples reports an examples row whose cell count differs
// from its header.
var ErrMalformedExamples = errors.New("malformed examples")

// ExampleTable is one examples block of a scenario outline.
type ExampleTable struct {
	Header []string
	Rows   []ExampleRow
}

// ExampleRow is a data row tagged with its source line.
type ExampleRow struct {
	Line  int
	Cells []string
}

// ExampleTablesFrom converts the examples blocks of a scenario definition.
func ExampleTablesFrom(scenario *messages.Scenario) []ExampleTable {
	if scenario == nil || len(scenario.Examples) == 0 {
		return nil
	}
	tables := make([]ExampleTable, 0, len(scenario.Examples))
	for _, examples := range scenario.Examples {
		if examples == nil {
			continue
		}
		table := ExampleTable{Header: cellValues(examples.TableHeader)}
		for _, row := range examples.TableBody {
			if row == nil {
				continue
			}
			table.Rows = append(table.Rows, ExampleRow{
				Line:  lineFromLocation(row.Location),
				Cells: cellValues(row),
			})
		}
		tables = append(tables, table)
	}
	return tables
}

// ExtractParameters returns the header/value pairs of the row at line.
// No match yields an empty list.
func ExtractParameters(tables []ExampleTable, line int) ([]Parameter, error) {
	for _, table := range tables {
		for _, row := range table.Rows {
			if row.Line != line {
				continue
			}
			if len(row.Cells) != len(table.Header) {
				return nil, fmt.Errorf("%w: line %d has %d cells, header has %d",
					ErrMalformedExamples, line, len(row.Cells), len(table.Header))
			}
			params := make([]Parameter, len(table.Header))
			for i, name := range table.Header {
				params[i] = Parameter{Name: name, Value: row.Cells[i]}
			}
			return params, nil
		}
	}
	return nil, nil
}

func cellValues(row *messages.TableRow) []string {
	if row == nil {
		return nil
	}
	values := make([]string, 0, len(row.Cells))
	for _, cell := range row.Cells {
		if cell == nil {
			values = append(values, "")
			continue
		}
		values = append(values, cell.Value)
	}
	return values
}

// lineFromLocation extracts the line number from a Gherkin location.
func lineFromLocation(location *messages.Location) int {
	if location == nil {
		return 0
	}
	return int(location.Line)
}
