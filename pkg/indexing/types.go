// Package indexing implements C6, the indexing pipeline: a bounded
// producer/consumer graph that turns a project's source tree into vectors
// in C8, consulting and updating C7 along the way. Four stages run as
// concurrent goroutines connected by buffered channels: discovery/symbol
// extraction, the splitter, the embedding lanes, and the storage workers.
package indexing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SymbolType classifies one node from a project's static-analysis pass.
type SymbolType string

// Symbol types a source supplies. Only METHOD/FUNCTION/CLASS/FIELD/
// VARIABLE/PARAMETER are routed anywhere by the splitter; the rest pass
// through discovery for completeness but carry no embedding work.
const (
	SymbolNamespace SymbolType = "NAMESPACE"
	SymbolClass     SymbolType = "CLASS"
	SymbolMethod    SymbolType = "METHOD"
	SymbolFunction  SymbolType = "FUNCTION"
	SymbolField     SymbolType = "FIELD"
	SymbolVariable  SymbolType = "VARIABLE"
	SymbolParameter SymbolType = "PARAMETER"
	SymbolCall      SymbolType = "CALL"
	SymbolImport    SymbolType = "IMPORT"
	SymbolFile      SymbolType = "FILE"
	SymbolModule    SymbolType = "MODULE"
	SymbolPackage   SymbolType = "PACKAGE"
)

// Symbol is one static-analysis node's metadata, as carried by an
// AnalysisItem.
type Symbol struct {
	Type        SymbolType
	FullName    string
	Signature   string
	LineStart   int
	LineEnd     int
	NodeID      string
	Language    string
	Code        string
	ParentClass string
}

// ContentHash is the stable identity a symbol's content hashes to; the
// splitter compares it against C7 to skip unchanged symbols.
func (s Symbol) ContentHash() string {
	return sha256Hex(s.Code)
}

// AnalysisItem is stage P1's output unit: one symbol discovered in one
// file, streamed as the analyzer parses rather than materialized as a
// full tree.
type AnalysisItem struct {
	FilePath  string
	ProjectID string
	WorkerID  string
	Timestamp time.Time
	Symbol    Symbol
}

// EmbeddingItem is stage P3's output unit: one embedded chunk ready for
// stage P4 to upsert into C8.
type EmbeddingItem struct {
	Item         AnalysisItem
	Content      string
	Vector       []float32
	ModelName    string
	ChunkIndex   int
	TotalChunks  int
	ProcessingMs int64
}

// Source is stage P1: it streams a project's symbols. Implementations
// front the external knowledge-base service's CPG endpoint or a local
// analyzer; the pipeline depends only on this interface. The returned
// item channel is closed when discovery finishes; the error channel
// carries at most one value and is closed alongside it.
type Source interface {
	Discover(ctx context.Context, projectID string) (<-chan AnalysisItem, <-chan error)
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
