package listener

import (
	"sync"

	messages "github.com/cucumber/messages/go/v21"

	"cukereport/internal/cucumber"
)

// SourceIndex keeps parsed feature documents by URI.
type SourceIndex struct {
	mu   sync.RWMutex
	docs map[string]*cucumber.Document
}

// NewSourceIndex creates an empty index.
func NewSourceIndex() *SourceIndex {
	return &SourceIndex{docs: make(map[string]*cucumber.Document)}
}

// Add parses source and stores it under uri, replacing earlier content.
func (s *SourceIndex) Add(uri string, source []byte) (*cucumber.Document, error) {
	doc, err := cucumber.ParseDocument(uri, source)
	if err != nil {
		return nil, err
	}
	s.Put(doc)
	return doc, nil
}

// Put stores an already parsed document.
func (s *SourceIndex) Put(doc *cucumber.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.URI] = doc
}

// Document returns the document stored under uri.
func (s *SourceIndex) Document(uri string) (*cucumber.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// Feature returns the feature parsed from uri; nil when unknown.
func (s *SourceIndex) Feature(uri string) *messages.Feature {
	doc, ok := s.Document(uri)
	if !ok {
		return nil
	}
	return doc.Feature()
}

// Scenario returns the scenario definition covering line in uri.
func (s *SourceIndex) Scenario(uri string, line int) *messages.Scenario {
	doc, ok := s.Document(uri)
	if !ok {
		return nil
	}
	scenario, _ := doc.ScenarioAt(line)
	return scenario
}

// Keyword returns the step keyword at line in uri.
func (s *SourceIndex) Keyword(uri string, line int) string {
	doc, ok := s.Document(uri)
	if !ok {
		return cucumber.UndefinedKeyword
	}
	return doc.KeywordAt(line)
}
