package kernel

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/arctir/miniproc/fsys"
	"github.com/arctir/miniproc/hostinfo"
	"github.com/arctir/miniproc/palloc"
	"github.com/arctir/miniproc/vm"
)

// InitImageSource resolves the bytes loaded into the primordial process's
// user image, and a fingerprint identifying them. Implemented by the
// GitSource, GitHubReleaseSource and BuiltinSource types of
// github.com/arctir/miniproc/bootsrc; kept as a narrow interface
// here so kernel does not import the domain-stack-heavy bootsrc package.
type InitImageSource interface {
	ResolveInitImage() (data []byte, digest string, err error)
}

// Kernel is the single explicit context record spec §9's design notes ask
// for in place of free statics: it owns the process table, the CPU
// registry, the pid counter, and the VM/file/page-allocator collaborators.
type Kernel struct {
	table [NPROC]*Proc
	cpus  []*CPU

	nextPID atomic.Int32

	initProc atomic.Pointer[Proc]
	// firstSched gates the one-time, process-context initialization
	// forkret defers until the first process actually runs.
	firstSched atomic.Bool

	vmm   *vm.Manager
	fsm   *fsys.Manager
	pages *palloc.Allocator
	boot  InitImageSource

	log *log.Logger
}

// Config configures a new Kernel. Zero-value fields take sane defaults.
type Config struct {
	// NCPU is the number of simulated per-CPU schedulers. Defaults to the
	// host's logical processor count (hostinfo.DefaultNCPU).
	NCPU int
	// PageArenaBytes bounds the physical page allocator. 0 means unbounded.
	PageArenaBytes int64
	// Boot resolves the primordial init image. If nil, a tiny built-in
	// image is used (see defaultInitImageSource).
	Boot InitImageSource
	// Logger receives the boot banner. Defaults to log.Default().
	Logger *log.Logger
}

// defaultInitImageSource is used when Config.Boot is nil, so Kernel never
// depends on the bootsrc package directly (avoiding an import cycle with
// bootsrc's own heavier dependency surface).
type defaultInitImageSource struct{}

func (defaultInitImageSource) ResolveInitImage() ([]byte, string, error) {
	return []byte("\x00\x00INIT"), "builtin", nil
}

// New constructs a Kernel with an allocated (but not yet scheduling)
// process table and CPU registry.
func New(cfg Config) *Kernel {
	if cfg.NCPU <= 0 {
		cfg.NCPU = hostinfo.DefaultNCPU()
	}
	if cfg.Boot == nil {
		cfg.Boot = defaultInitImageSource{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	k := &Kernel{
		vmm:   vm.NewManager(),
		fsm:   fsys.NewManager(),
		pages: palloc.New(cfg.PageArenaBytes),
		boot:  cfg.Boot,
		log:   cfg.Logger,
	}
	k.nextPID.Store(1)
	for i := range k.table {
		k.table[i] = &Proc{}
	}
	k.cpus = make([]*CPU, cfg.NCPU)
	for i := range k.cpus {
		k.cpus[i] = &CPU{id: i, apicID: int32(i)}
	}
	return k
}

// NCPU returns the number of simulated CPUs.
func (k *Kernel) NCPU() int { return len(k.cpus) }

// CPUs returns the kernel's CPU registry.
func (k *Kernel) CPUs() []*CPU { return k.cpus }

// InitProc returns the primordial process, or nil before Boot has run.
func (k *Kernel) InitProc() *Proc { return k.initProc.Load() }

// Boot creates the primordial process from image and starts one scheduler
// goroutine per configured CPU. It returns the init Task so the caller can
// fork the first real workload from it.
func (k *Kernel) Boot(image ProcImage) (*Task, error) {
	start := time.Now()
	task, err := k.userInit(image)
	if err != nil {
		return nil, err
	}
	for _, c := range k.cpus {
		go k.runScheduler(c)
	}
	k.log.Printf("miniproc: booted in %s, %d cpu(s), init pid %d, host %s", time.Since(start), len(k.cpus), task.PID(), hostBanner())
	return task, nil
}

// hostBanner assembles a one-line description of the host miniproc is
// running on, the way a real kernel's boot log reports the hardware it
// found: architecture, OS release, kernel version, and machine id. Each
// hostinfo.Reader call degrades independently to hostinfo.UnknownKey (e.g.
// GetHostID and GetKernel read Linux-only procfs/etc paths that a non-Linux
// host, or a container without /etc/machine-id, won't have).
func hostBanner() string {
	lr := hostinfo.NewLinuxReader(hostinfo.LinuxReaderConfig{})
	var r hostinfo.Reader = &lr

	arch := hostinfo.UnknownKey
	if hw, err := r.GetHardware(); err == nil {
		arch = hw.Architecture
	}

	osDesc := hostinfo.UnknownKey
	if os, err := r.GetOS(); err == nil {
		osDesc = fmt.Sprintf("%s %s", os.Name, os.Version)
	}

	kernelVersion := hostinfo.UnknownKey
	if kv, err := r.GetKernel(); err == nil {
		kernelVersion = kv.Version
	}

	hostID := hostinfo.UnknownKey
	if id, err := r.GetHostID(); err == nil {
		hostID = id
	}

	return fmt.Sprintf("%s (%s, kernel %s, machine-id %s)", arch, osDesc, kernelVersion, hostID)
}

// Snapshot is a read-only, race-free view of a process slot's fields, used
// by tests and the scenario runner to assert on lifecycle properties
// without reaching into unexported Proc internals.
type Snapshot struct {
	PID    int32
	State  State
	Parent int32
	Name   string
	Killed bool
}

// Snapshot captures a point-in-time view of every live slot in the table.
func (k *Kernel) Snapshot() []Snapshot {
	out := make([]Snapshot, 0, NPROC)
	for _, p := range k.table {
		st := p.State()
		if st == StateUnused {
			continue
		}
		var parentPID int32
		if parent := p.Parent(); parent != nil {
			parentPID = parent.PID()
		}
		out = append(out, Snapshot{
			PID:    p.PID(),
			State:  st,
			Parent: parentPID,
			Name:   p.Name(),
			Killed: p.Killed(),
		})
	}
	return out
}

// FindByPID returns the slot holding pid, or nil.
func (k *Kernel) FindByPID(pid int32) *Proc {
	for _, p := range k.table {
		if p.State() != StateUnused && p.PID() == pid {
			return p
		}
	}
	return nil
}
