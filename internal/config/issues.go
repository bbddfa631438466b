package config

import (
	"fmt"
	"strings"
)

// Issue is one invalid config field.
type Issue struct {
	Field   string
	Message string
}

func (i Issue) String() string {
	return i.Field + ": " + i.Message
}

// ValidationError lists every issue found by Validate, in field order of
// discovery.
type ValidationError struct {
	Issues []Issue
}

func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return "config validation failed"
	}
	lines := make([]string, len(err.Issues))
	for i, issue := range err.Issues {
		lines[i] = issue.String()
	}
	return strings.Join(lines, "\n")
}

// Fields returns the field of every issue.
func (err *ValidationError) Fields() []string {
	fields := make([]string, len(err.Issues))
	for i, issue := range err.Issues {
		fields[i] = issue.Field
	}
	return fields
}

type issueAdder func(field, format string, args ...any)

type issueCollector struct {
	issues []Issue
}

func (c *issueCollector) add(field, format string, args ...any) {
	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}
	c.issues = append(c.issues, Issue{Field: field, Message: message})
}

func (c *issueCollector) result() error {
	if len(c.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: c.issues}
}
