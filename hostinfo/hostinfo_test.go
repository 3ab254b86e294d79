package hostinfo

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetKernelFromProcDir(t *testing.T) {
	dir := t.TempDir()
	kernelPath := filepath.Join(dir, OSKernelFilePath)
	if err := os.MkdirAll(filepath.Dir(kernelPath), 0o755); err != nil {
		t.Fatalf("failed setting up fixture dir: %s", err)
	}
	if err := os.WriteFile(kernelPath, []byte("6.1.0-miniproc\n"), 0o644); err != nil {
		t.Fatalf("failed writing fixture file: %s", err)
	}

	r := NewLinuxReader(LinuxReaderConfig{ProcDirPath: dir})
	kernel, err := r.GetKernel()
	if err != nil {
		t.Fatalf("GetKernel returned error: %s", err)
	}
	if kernel.Version != "6.1.0-miniproc" {
		t.Errorf("expected version %q, got %q", "6.1.0-miniproc", kernel.Version)
	}
	if kernel.Type != "Linux" {
		t.Errorf("expected type Linux, got %q", kernel.Type)
	}
}

func TestGetKernelMissingFile(t *testing.T) {
	dir := t.TempDir()
	r := NewLinuxReader(LinuxReaderConfig{ProcDirPath: dir})
	if _, err := r.GetKernel(); err == nil {
		t.Fatal("expected error for missing kernel release file, got nil")
	}
}

func TestGetHostID(t *testing.T) {
	dir := t.TempDir()
	midPath := filepath.Join(dir, "machine-id")
	if err := os.WriteFile(midPath, []byte("abc123\n"), 0o644); err != nil {
		t.Fatalf("failed writing fixture file: %s", err)
	}

	r := NewLinuxReader(LinuxReaderConfig{MachineIDPath: midPath})
	id, err := r.GetHostID()
	if err != nil {
		t.Fatalf("GetHostID returned error: %s", err)
	}
	if id != "abc123" {
		t.Errorf("expected id %q, got %q", "abc123", id)
	}
}

func TestGetHostIDEmptyFile(t *testing.T) {
	dir := t.TempDir()
	midPath := filepath.Join(dir, "machine-id")
	if err := os.WriteFile(midPath, []byte{}, 0o644); err != nil {
		t.Fatalf("failed writing fixture file: %s", err)
	}

	r := NewLinuxReader(LinuxReaderConfig{MachineIDPath: midPath})
	if _, err := r.GetHostID(); err == nil {
		t.Fatal("expected error for empty machine-id file, got nil")
	}
}

func TestGetCPUInfo(t *testing.T) {
	dir := t.TempDir()
	cpuInfoPath := filepath.Join(dir, CPUInfoFilePath)
	contents := "processor\t: 0\nmodel name\t: fake\n\nprocessor\t: 1\nmodel name\t: fake\n"
	if err := os.WriteFile(cpuInfoPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed writing fixture file: %s", err)
	}

	r := NewLinuxReader(LinuxReaderConfig{ProcDirPath: dir})
	hw, err := r.GetHardware()
	if err != nil {
		t.Fatalf("GetHardware returned error: %s", err)
	}
	if hw.CPU.CPUCount != 2 {
		t.Errorf("expected CPU count 2, got %d", hw.CPU.CPUCount)
	}
}

func TestSanitizeOSVersion(t *testing.T) {
	if got := sanitizeOSVersion(`"1.2.3"`); got != "1.2.3" {
		t.Errorf("expected 1.2.3, got %q", got)
	}
}
