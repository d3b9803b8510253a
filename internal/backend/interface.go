// Package backend wires the persistence collaborator, the report cache and
// the optional change publisher into one BudgetService.
package backend

import (
	"context"
	"time"

	"bilancio/internal/services"
)

// BackendResult is what a factory hands to a binary: the service, the raw
// store for callers that bypass the cache, and a func releasing both.
type BackendResult struct {
	Service *services.BudgetService
	Store   services.Store
	Cleanup func() error
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config is the slice of the application config a backend needs.
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// Publishing is off when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Directory holding hierarchy.toml; both backends seed from it
	DataDirectory string

	ReportCacheSize int
	ReportCacheTTL  time.Duration
}

type BackendType string

func (bt BackendType) String() string {
	return string(bt)
}

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// Persistent reports whether values survive a restart.
func (bt BackendType) Persistent() bool {
	return bt == SQLiteBackend
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
