// Package vm is the virtual-memory collaborator: address-space setup, user
// memory growth/shrink, copy-on-fork, and the address-space switch that
// normally installs hardware page tables. There is no real MMU here; an
// AddrSpace is a slice of fixed-size pages, the smallest model that lets the
// lifecycle manager exercise real allocate/copy/free behavior instead of a
// no-op.
package vm

import (
	"fmt"
	"sync"
)

// PageSize is the granularity address spaces grow and shrink by.
const PageSize = 4096

// AddrSpace stands in for a page directory: an ordered list of pages backing
// the low end of a process's user address space.
type AddrSpace struct {
	mu    sync.Mutex
	pages [][]byte
}

// Size returns the current address space size in bytes.
func (a *AddrSpace) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pages) * PageSize
}

// Manager implements the VM collaborator interface described in spec §6:
// setupkvm, inituvm, allocuvm, deallocuvm, copyuvm, freevm, switchuvm,
// switchkvm.
type Manager struct{}

// NewManager returns a ready-to-use VM collaborator.
func NewManager() *Manager { return &Manager{} }

// SetupKVM allocates a fresh, empty address space (the user-process
// equivalent of a freshly mapped kernel page directory).
func (m *Manager) SetupKVM() (*AddrSpace, error) {
	return &AddrSpace{}, nil
}

// InitUVM loads src as the first page of a freshly set-up address space.
func (m *Manager) InitUVM(as *AddrSpace, src []byte) error {
	if len(src) > PageSize {
		return fmt.Errorf("vm: init image of %d bytes exceeds page size %d", len(src), PageSize)
	}
	page := make([]byte, PageSize)
	copy(page, src)
	as.mu.Lock()
	as.pages = [][]byte{page}
	as.mu.Unlock()
	return nil
}

// AllocUVM grows the address space from oldSz to newSz, in whole pages.
func (m *Manager) AllocUVM(as *AddrSpace, oldSz, newSz int) (int, error) {
	if newSz < oldSz {
		return oldSz, nil
	}
	as.mu.Lock()
	defer as.mu.Unlock()
	for len(as.pages)*PageSize < newSz {
		as.pages = append(as.pages, make([]byte, PageSize))
	}
	return newSz, nil
}

// DeallocUVM shrinks the address space from oldSz to newSz, freeing whole
// pages no longer covered.
func (m *Manager) DeallocUVM(as *AddrSpace, oldSz, newSz int) (int, error) {
	if newSz >= oldSz {
		return oldSz, nil
	}
	if newSz < 0 {
		newSz = 0
	}
	as.mu.Lock()
	defer as.mu.Unlock()
	keep := (newSz + PageSize - 1) / PageSize
	if keep < len(as.pages) {
		as.pages = as.pages[:keep]
	}
	return newSz, nil
}

// CopyUVM duplicates an address space up to sz bytes, used by fork.
func (m *Manager) CopyUVM(as *AddrSpace, sz int) (*AddrSpace, error) {
	as.mu.Lock()
	defer as.mu.Unlock()
	cp := &AddrSpace{pages: make([][]byte, len(as.pages))}
	for i, pg := range as.pages {
		np := make([]byte, len(pg))
		copy(np, pg)
		cp.pages[i] = np
	}
	return cp, nil
}

// FreeVM releases an address space's pages.
func (m *Manager) FreeVM(as *AddrSpace) {
	if as == nil {
		return
	}
	as.mu.Lock()
	as.pages = nil
	as.mu.Unlock()
}

// SwitchUVM installs a process's address space on the current (simulated)
// CPU. There is no hardware page table to reprogram in this model, so this
// exists only to preserve the collaborator's call shape for callers that
// expect to invoke it around a context switch.
func (m *Manager) SwitchUVM(as *AddrSpace) {}

// SwitchKVM installs the kernel-only mapping on the current CPU.
func (m *Manager) SwitchKVM() {}
