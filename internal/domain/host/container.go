// Package host defines the boundary to the hosting application's service
// container. Loaded plugins register their capabilities here; everything past
// this interface belongs to the platform, not to plugin management.
package host

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Lifetime controls how the host container scopes a registered implementation.
type Lifetime string

const (
	// LifetimeSingleton shares one instance for the process lifetime.
	LifetimeSingleton Lifetime = "singleton"
	// LifetimeTransient constructs a fresh instance per resolution.
	LifetimeTransient Lifetime = "transient"
	// LifetimeScoped shares an instance per request scope.
	LifetimeScoped Lifetime = "scoped"
)

// ParseLifetime maps a descriptor string to a Lifetime, defaulting to
// singleton for an empty value.
func ParseLifetime(s string) (Lifetime, error) {
	switch Lifetime(s) {
	case "":
		return LifetimeSingleton, nil
	case LifetimeSingleton, LifetimeTransient, LifetimeScoped:
		return Lifetime(s), nil
	default:
		return "", fmt.Errorf("unknown lifetime %q", s)
	}
}

// Registration is one capability binding held by the container.
type Registration struct {
	// Capability is the abstract contract name (e.g., "IReportRenderer").
	Capability string
	// Implementation is the concrete implementation name.
	Implementation string
	// Lifetime is the instance scoping for the implementation.
	Lifetime Lifetime
}

// Container is the host service container seen by the plugin loader.
type Container interface {
	// Register binds an implementation to a capability.
	// Returns an AlreadyRegisteredError if the capability is taken.
	Register(capability, implementation string, lifetime Lifetime) error

	// Release removes a capability binding, reporting whether it existed.
	Release(capability string) bool

	// StartSingletons starts all singleton services after a batch load.
	StartSingletons() error
}

// AlreadyRegisteredError indicates a capability is already bound.
type AlreadyRegisteredError struct {
	Capability string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("capability %q already registered", e.Capability)
}

// IsAlreadyRegistered returns true if the error indicates a duplicate binding.
func IsAlreadyRegistered(err error) bool {
	var regErr *AlreadyRegisteredError
	return errors.As(err, &regErr)
}

// MemoryContainer is an in-process Container implementation.
// The real platform container lives outside this subsystem; this one backs
// tests and single-binary deployments.
type MemoryContainer struct {
	mu      sync.RWMutex
	entries map[string]Registration
	started bool
}

// NewMemoryContainer creates an empty in-memory container.
func NewMemoryContainer() *MemoryContainer {
	return &MemoryContainer{
		entries: make(map[string]Registration),
	}
}

// Register binds an implementation to a capability.
func (c *MemoryContainer) Register(capability, implementation string, lifetime Lifetime) error {
	if capability == "" {
		return fmt.Errorf("capability cannot be empty")
	}
	if implementation == "" {
		return fmt.Errorf("implementation cannot be empty")
	}
	if lifetime == "" {
		lifetime = LifetimeSingleton
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[capability]; exists {
		return &AlreadyRegisteredError{Capability: capability}
	}
	c.entries[capability] = Registration{
		Capability:     capability,
		Implementation: implementation,
		Lifetime:       lifetime,
	}
	return nil
}

// Release removes a capability binding.
func (c *MemoryContainer) Release(capability string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[capability]; !exists {
		return false
	}
	delete(c.entries, capability)
	return true
}

// StartSingletons marks singleton start-up as done.
func (c *MemoryContainer) StartSingletons() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.started = true
	return nil
}

// Started reports whether StartSingletons has run.
func (c *MemoryContainer) Started() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.started
}

// Registrations returns all bindings sorted by capability for deterministic
// inspection.
func (c *MemoryContainer) Registrations() []Registration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	regs := make([]Registration, 0, len(c.entries))
	for _, r := range c.entries {
		regs = append(regs, r)
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].Capability < regs[j].Capability
	})
	return regs
}

// Ensure MemoryContainer implements Container.
var _ Container = (*MemoryContainer)(nil)
