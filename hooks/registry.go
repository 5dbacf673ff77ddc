// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

import (
	"fmt"
	"sync"

	"github.com/luxfi/geth/common"
)

type registration struct {
	flags Flags
	hook  Hook
}

// Registry manages hook registrations and validations
type Registry struct {
	mu sync.RWMutex

	// registered maps handle bases to their implementation
	registered map[common.Address]registration
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		registered: make(map[common.Address]registration),
	}
}

// Register binds a hook implementation to a handle. A hook that declares its
// own permissions must declare exactly the capabilities the handle claims.
func (r *Registry) Register(handle Handle, hook Hook) error {
	if handle.IsZero() {
		return ErrZeroHandle
	}
	if hook == nil {
		return fmt.Errorf("%w: nil implementation", ErrHookNotRegistered)
	}
	if d, ok := hook.(Declarer); ok {
		if declared := EncodePermissions(d.Permissions()); declared != handle.Flags {
			return fmt.Errorf("%w: handle claims %s, hook declares %s", ErrHookInvalidHandle, handle.Flags, declared)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registered[handle.Base]; exists {
		return fmt.Errorf("%w: %s", ErrHookAlreadyRegistered, handle.Base.Hex())
	}
	r.registered[handle.Base] = registration{flags: handle.Flags, hook: hook}
	return nil
}

// Resolve returns the implementation registered for handle. The handle must
// carry the same capabilities it was registered with.
func (r *Registry) Resolve(handle Handle) (Hook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.registered[handle.Base]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHookNotRegistered, handle.Base.Hex())
	}
	if reg.flags != handle.Flags {
		return nil, fmt.Errorf("%w: registered %s, presented %s", ErrHookInvalidHandle, reg.flags, handle.Flags)
	}
	return reg.hook, nil
}

// Flags returns the capabilities a base was registered with.
func (r *Registry) Flags(base common.Address) (Flags, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.registered[base]
	return reg.flags, ok
}
