// Package hostinfo reports details about the machine miniproc is running
// on: OS release, running kernel version, machine id, CPU count, and
// architecture. Kernel.New uses GetHardware to size its default simulated
// CPU count, and Kernel.Boot's banner reads the whole Reader interface
// (GetOS, GetKernel, GetHardware, GetHostID) to describe the host it
// booted on.
package hostinfo

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	DefaultMachineIDPath = "/etc/machine-id"
	DefaultProcRoot      = "/proc"
	OSReleaseFilePath    = "/etc/os-release"
	OSKernelFilePath     = "sys/kernel/osrelease"
	CPUInfoFilePath      = "cpuinfo"
	UnknownKey           = "UNKNOWN"
)

// OS represents details about the operating system.
type OS struct {
	Name    string
	Version string
}

// Kernel represents the host operating system's kernel details. Named
// distinctly from miniproc's own kernel.Kernel; this describes the host
// machine, not the simulated process core running on top of it.
type Kernel struct {
	Type    string
	Version string
}

// Hardware represents the hardware exposed to this process.
type Hardware struct {
	CPU          CPUInfo
	Architecture string
}

// CPUInfo represents details about the central processing unit.
type CPUInfo struct {
	CPUCount int
}

// Reader retrieves information about the host.
type Reader interface {
	GetOS() (*OS, error)
	GetKernel() (*Kernel, error)
	GetHardware() (*Hardware, error)
	GetHostID() (string, error)
}

// LinuxReader is the Linux-specific implementation of Reader.
type LinuxReader struct {
	procDir       string
	machineIDPath string
}

type LinuxReaderConfig struct {
	ProcDirPath   string
	MachineIDPath string
}

func NewLinuxReader(conf LinuxReaderConfig) LinuxReader {
	if conf.ProcDirPath == "" {
		conf.ProcDirPath = DefaultProcRoot
	}
	if conf.MachineIDPath == "" {
		conf.MachineIDPath = DefaultMachineIDPath
	}
	return LinuxReader{
		procDir:       conf.ProcDirPath,
		machineIDPath: conf.MachineIDPath,
	}
}

// GetOS looks up details about the operating system within /etc/os-release,
// per the freedesktop os-release specification.
func (h *LinuxReader) GetOS() (*OS, error) {
	releaseFileData, err := os.ReadFile(OSReleaseFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed locating OS details at %s: %w", OSReleaseFilePath, err)
	}
	data := parseOSRelease(releaseFileData)
	return &OS{
		Name:    data["ID"],
		Version: sanitizeOSVersion(data["VERSION"]),
	}, nil
}

// GetKernel retrieves details about the host's running kernel.
func (h *LinuxReader) GetKernel() (*Kernel, error) {
	kernelFilePath := filepath.Join(h.procDir, OSKernelFilePath)
	data, err := os.ReadFile(kernelFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed getting kernel version from %s: %w", kernelFilePath, err)
	}
	return &Kernel{
		Type:    "Linux",
		Version: strings.TrimSpace(string(data)),
	}, nil
}

func (h *LinuxReader) GetHardware() (*Hardware, error) {
	return &Hardware{
		CPU:          h.getCPUInfo(),
		Architecture: getArch(),
	}, nil
}

// GetHostID returns the host's machine-id, a unique identifier set by Linux
// at install time.
func (h *LinuxReader) GetHostID() (string, error) {
	midBytes, err := os.ReadFile(h.machineIDPath)
	if err != nil {
		return "", fmt.Errorf("failed resolving machine ID: %w", err)
	}
	if len(midBytes) < 1 {
		return "", fmt.Errorf("failed resolving machine ID: %s is present but empty", h.machineIDPath)
	}
	return strings.TrimSpace(string(midBytes)), nil
}

// getCPUInfo counts logical processors from /proc/cpuinfo. This is the
// value DefaultNCPU uses to size Kernel.Config.NCPU when a caller doesn't
// pick an explicit count.
func (h *LinuxReader) getCPUInfo() CPUInfo {
	cpuInfoPath := filepath.Join(h.procDir, CPUInfoFilePath)
	f, err := os.Open(cpuInfoPath)
	if err != nil {
		log.Printf("failed retrieving processor count from %s: %s", cpuInfoPath, err)
		return CPUInfo{}
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(bufio.NewReader(f))
	for scanner.Scan() {
		kv := strings.SplitN(scanner.Text(), ":", 2)
		if len(kv) != 2 {
			continue
		}
		if strings.TrimSpace(kv[0]) == "processor" {
			count++
		}
	}
	return CPUInfo{CPUCount: count}
}

// getArch is the equivalent of uname -m.
func getArch() string {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err != nil {
		return UnknownKey
	}
	return strings.TrimRight(string(utsname.Machine[:]), "\x00")
}

func sanitizeOSVersion(version string) string {
	return strings.Trim(version, "\"")
}

func parseOSRelease(contents []byte) map[string]string {
	scanner := bufio.NewScanner(bytes.NewReader(contents))
	out := map[string]string{}
	for scanner.Scan() {
		kv := strings.SplitN(scanner.Text(), "=", 2)
		if len(kv) == 2 {
			out[kv[0]] = kv[1]
		}
	}
	return out
}

// DefaultNCPU reports the host's logical processor count, falling back to 1
// if it cannot be determined. Kernel.New uses this when Config.NCPU is 0.
func DefaultNCPU() int {
	r := NewLinuxReader(LinuxReaderConfig{})
	hw, err := r.GetHardware()
	if err != nil || hw.CPU.CPUCount < 1 {
		return 1
	}
	return hw.CPU.CPUCount
}
