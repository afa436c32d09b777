package isolate

import (
	"fmt"
)

type Constraints struct {
	CpuTimeLimInSec      float64
	ExtraCpuTimeLimInSec float64
	WallTimeLimInSec     float64
	MemoryLimitInKB      int64
	MaxProcesses         int
	MaxOpenFiles         int
	MaxFileSizeInKB      int64
}

func DefaultConstraints() Constraints {
	return Constraints{
		CpuTimeLimInSec:      10.0,
		ExtraCpuTimeLimInSec: 0.5,
		WallTimeLimInSec:     20.0,
		MemoryLimitInKB:      256 * 1024,
		MaxProcesses:         128,
		MaxOpenFiles:         128,
		MaxFileSizeInKB:      64 * 1024,
	}
}

// ToArgs renders the limits; with cgroups the memory limit applies to
// the whole control group instead of the address space.
func (constraints *Constraints) ToArgs(cgroups bool) []string {
	return []string{
		constraints.MemLimArg(cgroups),
		constraints.CpuTimeLimArg(),
		constraints.ExtraCpuTimeLimArg(),
		constraints.WallTimeLimArg(),
		constraints.MaxProcessesArg(),
		constraints.MaxOpenFilesArg(),
		constraints.MaxFileSizeArg(),
	}
}

func (constraints *Constraints) MemLimArg(cgroups bool) string {
	if cgroups {
		return fmt.Sprintf("--cg-mem=%d", constraints.MemoryLimitInKB)
	}
	return fmt.Sprintf("--mem=%d", constraints.MemoryLimitInKB)
}

func (constraints *Constraints) CpuTimeLimArg() string {
	return fmt.Sprintf("--time=%.3f", constraints.CpuTimeLimInSec)
}

func (constraints *Constraints) ExtraCpuTimeLimArg() string {
	return fmt.Sprintf("--extra-time=%.3f", constraints.ExtraCpuTimeLimInSec)
}

func (constraints *Constraints) WallTimeLimArg() string {
	return fmt.Sprintf("--wall-time=%.3f", constraints.WallTimeLimInSec)
}

func (constraints *Constraints) MaxProcessesArg() string {
	return fmt.Sprintf("--processes=%d", constraints.MaxProcesses)
}

func (constraints *Constraints) MaxOpenFilesArg() string {
	return fmt.Sprintf("--open-files=%d", constraints.MaxOpenFiles)
}

func (constraints *Constraints) MaxFileSizeArg() string {
	return fmt.Sprintf("--fsize=%d", constraints.MaxFileSizeInKB)
}
