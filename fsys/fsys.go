// Package fsys is the file subsystem collaborator: open file handles,
// inodes, and the transactional begin_op/end_op bracket the lifecycle
// manager wraps cwd release in. It is an in-memory, reference-counted
// stand-in; there is no on-disk format here, by design (out of scope per the
// process lifecycle spec).
package fsys

import "sync"

// Inode is a reference-counted handle to a named file-subsystem object.
type Inode struct {
	Path string

	mu   sync.Mutex
	refs int32
}

// File is an open-file handle, independent of descriptor number, so that
// dup/fork sharing is modeled correctly (two descriptors can point at the
// same File).
type File struct {
	Inode *Inode

	mu     sync.Mutex
	refs   int32
	Offset int64
}

// Manager implements the file-subsystem collaborator interface described in
// spec §6: filedup, fileclose, idup, iput, namei, begin_op, end_op, iinit,
// initlog.
type Manager struct {
	mu        sync.Mutex
	inodes    map[string]*Inode
	logInited bool
}

// NewManager returns a ready-to-use file-subsystem collaborator.
func NewManager() *Manager {
	return &Manager{inodes: map[string]*Inode{}}
}

// Init performs the process-context initialization forkret defers until the
// very first scheduled process: inode cache init and log init.
func (m *Manager) Init() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logInited = true
}

// Namei resolves a path to an Inode, creating one on first reference.
func (m *Manager) Namei(path string) *Inode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ip, ok := m.inodes[path]; ok {
		ip.mu.Lock()
		ip.refs++
		ip.mu.Unlock()
		return ip
	}
	ip := &Inode{Path: path, refs: 1}
	m.inodes[path] = ip
	return ip
}

// IDup increments an inode's reference count and returns it.
func (m *Manager) IDup(ip *Inode) *Inode {
	if ip == nil {
		return nil
	}
	ip.mu.Lock()
	ip.refs++
	ip.mu.Unlock()
	return ip
}

// IPut releases one reference to an inode.
func (m *Manager) IPut(ip *Inode) {
	if ip == nil {
		return
	}
	ip.mu.Lock()
	ip.refs--
	ip.mu.Unlock()
}

// NewFile opens a fresh File handle bound to path, for use by process images
// that want to exercise descriptor duplication/close bookkeeping.
func (m *Manager) NewFile(path string) *File {
	return &File{Inode: m.Namei(path), refs: 1}
}

// FileDup increments a file handle's reference count.
func (m *Manager) FileDup(f *File) *File {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	f.refs++
	f.mu.Unlock()
	return f
}

// FileClose releases one reference to a file handle, releasing its
// underlying inode when the last reference is dropped.
func (m *Manager) FileClose(f *File) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.refs--
	drop := f.refs <= 0
	f.mu.Unlock()
	if drop {
		m.IPut(f.Inode)
	}
}

// BeginOp and EndOp bracket a transactional group of file-subsystem
// operations (the logging collaborator's commit boundary). There is no log
// to commit against in this model; they exist so callers can keep the same
// begin/end discipline the original kernel requires around cwd release.
func (m *Manager) BeginOp() {}
func (m *Manager) EndOp()   {}
