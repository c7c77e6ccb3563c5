// Package metacache remembers the display metadata carried by Starting
// messages so that later messages, which carry only IDs, can be rendered with
// names.
package metacache

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dkoosis/runreport/pkg/message"
)

// AssemblyRecord is the metadata from AssemblyStarting.
type AssemblyRecord struct {
	ID              string
	Name            string
	Path            string
	ConfigFilePath  string
	TargetFramework string
}

// SimpleName returns the assembly name up to its first comma, or the file
// name of the path without its extension when no name was given.
func (r *AssemblyRecord) SimpleName() string {
	if r.Name != "" {
		if i := strings.IndexByte(r.Name, ','); i >= 0 {
			return strings.TrimSpace(r.Name[:i])
		}
		return r.Name
	}
	if r.Path == "" {
		return ""
	}
	base := filepath.Base(r.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CollectionRecord is the metadata from CollectionStarting.
type CollectionRecord struct {
	ID         string
	AssemblyID string
	Name       string
}

// ClassRecord is the metadata from ClassStarting.
type ClassRecord struct {
	ID   string
	Name string
}

// MethodRecord is the metadata from MethodStarting.
type MethodRecord struct {
	ID      string
	ClassID string
	Name    string
}

// CaseRecord is the metadata from CaseStarting.
type CaseRecord struct {
	ID         string
	Name       string
	SourceFile string
	SourceLine int
}

// TestRecord is the metadata from TestStarting.
type TestRecord struct {
	ID     string
	CaseID string
	Name   string
}

type key struct {
	level message.Level
	id    string
}

// Cache is safe for concurrent use. Lookups share a read lock; Set and
// TryRemove take the write lock.
type Cache struct {
	mu      sync.RWMutex
	records map[key]any
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{records: make(map[key]any)}
}

// Set stores the metadata of a Starting message under the message's own ID,
// replacing any earlier record for that ID.
func (c *Cache) Set(m *message.Message) {
	message.MustValidate(m)
	if !m.Kind.IsStarting() {
		panic(fmt.Errorf("%w: cannot cache metadata from %s", message.ErrContractViolation, m.Kind))
	}

	var rec any
	switch m.Kind.Level() {
	case message.LevelAssembly:
		rec = &AssemblyRecord{
			ID:              m.AssemblyID,
			Name:            m.AssemblyName,
			Path:            m.AssemblyPath,
			ConfigFilePath:  m.ConfigFilePath,
			TargetFramework: m.TargetFramework,
		}
	case message.LevelCollection:
		rec = &CollectionRecord{ID: m.CollectionID, AssemblyID: m.AssemblyID, Name: m.CollectionName}
	case message.LevelClass:
		rec = &ClassRecord{ID: m.ClassID, Name: m.ClassName}
	case message.LevelMethod:
		rec = &MethodRecord{ID: m.MethodID, ClassID: m.ClassID, Name: m.MethodName}
	case message.LevelCase:
		rec = &CaseRecord{ID: m.CaseID, Name: m.CaseName, SourceFile: m.SourceFile, SourceLine: m.SourceLine}
	case message.LevelTest:
		rec = &TestRecord{ID: m.TestID, CaseID: m.CaseID, Name: m.TestName}
	}

	c.mu.Lock()
	c.records[key{m.Kind.Level(), m.ID()}] = rec
	c.mu.Unlock()
}

// TryRemove evicts the record for the message's own ID and reports whether
// one was present.
func (c *Cache) TryRemove(m *message.Message) bool {
	message.MustValidate(m)
	level := m.Kind.Level()
	if level == message.LevelNone {
		panic(fmt.Errorf("%w: %s names no cached entity", message.ErrContractViolation, m.Kind))
	}

	k := key{level, m.ID()}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.records[k]; !ok {
		return false
	}
	delete(c.records, k)
	return true
}

func lookup[T any](c *Cache, level message.Level, id string) *T {
	if id == "" {
		return nil
	}
	c.mu.RLock()
	rec, ok := c.records[key{level, id}]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	typed, _ := rec.(*T)
	return typed
}

// Assembly returns the record for m's assembly ID, or nil.
func (c *Cache) Assembly(m *message.Message) *AssemblyRecord {
	return lookup[AssemblyRecord](c, message.LevelAssembly, m.AssemblyID)
}

// AssemblyByID returns the assembly record for id, or nil.
func (c *Cache) AssemblyByID(id string) *AssemblyRecord {
	return lookup[AssemblyRecord](c, message.LevelAssembly, id)
}

// Collection returns the record for m's collection ID, or nil.
func (c *Cache) Collection(m *message.Message) *CollectionRecord {
	return lookup[CollectionRecord](c, message.LevelCollection, m.CollectionID)
}

// Class returns the record for m's class ID, or nil.
func (c *Cache) Class(m *message.Message) *ClassRecord {
	return lookup[ClassRecord](c, message.LevelClass, m.ClassID)
}

// Method returns the record for m's method ID, or nil.
func (c *Cache) Method(m *message.Message) *MethodRecord {
	return lookup[MethodRecord](c, message.LevelMethod, m.MethodID)
}

// Case returns the record for m's case ID, or nil.
func (c *Cache) Case(m *message.Message) *CaseRecord {
	return lookup[CaseRecord](c, message.LevelCase, m.CaseID)
}

// Test returns the record for m's test ID, or nil.
func (c *Cache) Test(m *message.Message) *TestRecord {
	return lookup[TestRecord](c, message.LevelTest, m.TestID)
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
