package install

import (
	"fmt"
	"strings"

	"github.com/archzfs-tools/zkmod/internal/kernel"
	"github.com/archzfs-tools/zkmod/internal/utils/logger"
	"github.com/archzfs-tools/zkmod/internal/utils/shell"
)

// Installer is the external collaborator that actually installs packages.
// It is the executor's only privileged side effect.
type Installer interface {
	Install(packages []string) error
}

// Executor walks a fallback chain strictly in order, stopping at the first
// success. Attempts run sequentially and never concurrently: an earlier
// failed attempt may leave partial state (e.g. a half-applied repository
// configuration) that later attempts depend on or must tolerate.
type Executor struct {
	installer Installer
}

// NewExecutor builds an Executor around the given installer collaborator.
func NewExecutor(installer Installer) *Executor {
	return &Executor{installer: installer}
}

// Install attempts the preferred mode, then any planned fallback for the
// same kernel. It never reports success when every attempt failed; a fully
// failed chain reports the last attempt's errors.
func (e *Executor) Install(v kernel.Variant, preferred kernel.Mode) *Result {
	log := logger.Logger()
	result := newResult(v, preferred)

	chain := Plan(v, preferred)
	log.Infof("[%s] Installing ZFS for %s with preferred mode: %s", result.SessionID, v.DisplayName, preferred)

	for i, attempt := range chain {
		log.Infof("[%s] Attempt %d: %s with %s", result.SessionID, i+1, attempt.Variant.Name, attempt.Mode)

		pkgs, err := attempt.Packages()
		if err != nil {
			result.failAttempt(err.Error())
			continue
		}

		if err := e.installer.Install(pkgs); err != nil {
			result.failAttempt(fmt.Sprintf("%s installation failed: %v", attempt.Mode, err))
			log.Warnf("[%s] Installation attempt %d failed: %v", result.SessionID, i+1, err)
			continue
		}

		result.Success = true
		result.ActualMode = attempt.Mode
		result.FallbackOccurred = attempt.Mode != preferred
		result.InstalledPackages = append(result.InstalledPackages, pkgs...)

		if result.FallbackOccurred {
			log.Infof("[%s] Fallback successful: %s -> %s", result.SessionID, preferred, attempt.Mode)
		} else {
			log.Infof("[%s] Installation successful with preferred mode: %s", result.SessionID, attempt.Mode)
		}
		return result
	}

	log.Errorf("[%s] All ZFS installation attempts failed", result.SessionID)
	return result
}

// PacmanInstaller installs packages through pacman, either on the host or
// inside a mounted target root.
type PacmanInstaller struct {
	// ChrootPath is the mounted root to install into; empty means the host.
	ChrootPath string
}

func (p PacmanInstaller) Install(packages []string) error {
	_, err := shell.ExecCmd("pacman -S "+strings.Join(packages, " ")+" --noconfirm", true, p.ChrootPath, nil)
	if err != nil {
		return fmt.Errorf("package installation failed: %w", err)
	}
	return nil
}

// ModuleLoads reports whether the zfs kernel module resolves against the
// running kernel. The dry run only walks module dependencies, so it needs
// no privileges and inserts nothing.
func ModuleLoads() bool {
	_, err := shell.ExecCmd("modprobe -n zfs", false, shell.HostPath, nil)
	return err == nil
}

// Summarize renders the plan for a request without executing anything.
func Summarize(v kernel.Variant, preferred kernel.Mode) string {
	lines := []string{
		fmt.Sprintf("Installation plan for %s:", v.DisplayName),
		fmt.Sprintf("Requested mode: %s", preferred),
	}

	for i, attempt := range Plan(v, preferred) {
		role := "Fallback"
		if i == 0 {
			role = "Primary"
		}
		pkgs, err := attempt.Packages()
		if err != nil {
			lines = append(lines, fmt.Sprintf("  %s: %s - %v", role, attempt.Mode, err))
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s: %s - %s", role, attempt.Mode, strings.Join(pkgs, ", ")))
	}
	return strings.Join(lines, "\n")
}
