package adapters

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/oddspulse/oddspulse/internal/pkg/config"
)

type Factory func(cfg *config.Config) Adapter

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a factory under the given bookmaker code. Duplicate
// registration is a programmer error and panics at init time.
func Register(name string, f Factory) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		panic("adapters: empty name in Register")
	}
	if f == nil {
		panic("adapters: nil factory in Register for " + n)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[n]; exists {
		panic("adapters: duplicate registration for " + n)
	}
	registry[n] = f
}

// Replace installs a factory for the code, overwriting any existing one.
// Used to swap in script adapters at runtime without a restart.
func Replace(name string, f Factory) error {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return fmt.Errorf("adapters: empty name in Replace")
	}
	if f == nil {
		return fmt.Errorf("adapters: nil factory in Replace for %s", n)
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	registry[n] = f
	return nil
}

func FactoryByName(name string) (Factory, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[n]
	return f, ok
}

func Available() map[string]Factory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make(map[string]Factory, len(registry))
	for k, v := range registry {
		out[k] = v
	}
	return out
}

func AvailableNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
