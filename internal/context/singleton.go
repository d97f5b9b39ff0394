package context

import "sync"

var (
	globalContext   *SynergyContext
	globalContextMu sync.RWMutex
	globalOnce      sync.Once
)

// GetGlobalContext returns the process-wide SynergyContext singleton,
// creating one on first use.
func GetGlobalContext() *SynergyContext {
	globalOnce.Do(func() {
		globalContextMu.Lock()
		defer globalContextMu.Unlock()
		if globalContext == nil {
			globalContext = New("")
		}
	})

	globalContextMu.RLock()
	defer globalContextMu.RUnlock()
	return globalContext
}

// SetGlobalContext replaces the singleton, primarily for tests.
func SetGlobalContext(ctx *SynergyContext) {
	globalContextMu.Lock()
	defer globalContextMu.Unlock()
	globalContext = ctx
}

// ResetGlobalContext clears the singleton and its sync.Once guard so the
// next GetGlobalContext call creates a fresh instance. Test-only.
func ResetGlobalContext() {
	globalContextMu.Lock()
	defer globalContextMu.Unlock()
	globalContext = nil
	globalOnce = sync.Once{}
}
