package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// AdapterInfo describes a registered adapter.
type AdapterInfo struct {
	Type        string `json:"type"`         // "postgres", "mssql"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
}

// ExecutorFactory creates a QueryExecutor from a generic config map.
type ExecutorFactory func(ctx context.Context, config map[string]any) (QueryExecutor, error)

// AdapterRegistration contains info plus the executor factory for one
// database type.
type AdapterRegistration struct {
	Info    AdapterInfo
	Factory ExecutorFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// NewExecutor creates a QueryExecutor for a registered database type.
func NewExecutor(ctx context.Context, dsType string, config map[string]any) (QueryExecutor, error) {
	registryMu.RLock()
	reg, ok := registry[dsType]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("datasource type %q is not registered (build with the matching adapter tag)", dsType)
	}
	return reg.Factory(ctx, config)
}
