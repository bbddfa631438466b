package listener

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Registry maps stable history keys to process-unique case identifiers.
// Issued identifiers are never reassigned or evicted.
type Registry struct {
	ids sync.Map
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// IdentityFor returns the identifier for key, minting one on first use.
func (r *Registry) IdentityFor(key string) string {
	if id, ok := r.ids.Load(key); ok {
		return id.(string)
	}
	id, _ := r.ids.LoadOrStore(key, uuid.NewString())
	return id.(string)
}

// Len reports how many keys have been issued an identifier.
func (r *Registry) Len() int {
	count := 0
	r.ids.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// HistoryID hashes the source file basename and line into a stable key.
func HistoryID(uri string, line int) string {
	location := sourceBasename(uri) + ":" + strconv.Itoa(line)
	sum := md5.Sum([]byte(location))
	return hex.EncodeToString(sum[:])
}

// StepID identifies a step within a case.
func StepID(featureName, caseID, text string, line int) string {
	return featureName + caseID + text + strconv.Itoa(line)
}

// HookID identifies a hook execution within a case.
func HookID(featureName, caseID string, kind HookKind, codeLocation string) string {
	return featureName + caseID + string(kind) + codeLocation
}

// sourceBasename returns the final segment of a URI or path.
func sourceBasename(uri string) string {
	uri = strings.ReplaceAll(uri, "\\", "/")
	if idx := strings.LastIndex(uri, "/"); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}
