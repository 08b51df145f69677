// Package pacman resolves package versions from the system package index,
// with a fallback to the archzfs binary-release database for module-family
// packages the local index may not know about.
package pacman

import (
	"regexp"
	"strings"

	"github.com/archzfs-tools/zkmod/internal/utils/logger"
	"github.com/archzfs-tools/zkmod/internal/utils/shell"
)

var versionLineRe = regexp.MustCompile(`Version\s*:\s*(.+)`)

// Module-family packages get the archzfs database fallback; everything else
// is answered by pacman alone.
var moduleFamilyPrefixes = []string{"zfs-", "spl-"}

// Resolver looks up package versions. A nil fallback disables the archzfs
// database path.
type Resolver struct {
	fallback *DBClient
}

// NewResolver builds a Resolver with the given archzfs fallback client
// (may be nil).
func NewResolver(fallback *DBClient) *Resolver {
	return &Resolver{fallback: fallback}
}

// Resolve returns the currently available version of a package, or ok=false
// when it cannot be determined. Failures never escape as errors; a missing
// version is an expected condition the callers turn into warnings.
func (r *Resolver) Resolve(pkg string) (string, bool) {
	log := logger.Logger()

	out, err := shell.ExecCmd("pacman -Si "+pkg, false, shell.HostPath, nil)
	if err != nil {
		log.Debugf("pacman -Si %s failed: %v", pkg, err)
		return r.resolveFallback(pkg)
	}

	if m := versionLineRe.FindStringSubmatch(out); m != nil {
		version := strings.TrimSpace(m[1])
		log.Debugf("Found %s version: %s", pkg, version)
		return version, true
	}

	log.Debugf("No version line found in pacman output for %s", pkg)
	return r.resolveFallback(pkg)
}

func (r *Resolver) resolveFallback(pkg string) (string, bool) {
	if r.fallback == nil || !isModuleFamily(pkg) {
		return "", false
	}
	logger.Logger().Debugf("Trying archzfs database fallback for %s", pkg)
	return r.fallback.PackageVersion(pkg)
}

// PackageAvailable reports whether the package exists in the configured
// repositories. Used by catalog auto-detection.
func (r *Resolver) PackageAvailable(name string) bool {
	_, err := shell.ExecCmd("pacman -Si "+name, false, shell.HostPath, nil)
	return err == nil
}

// SyncDatabase refreshes the pacman sync database so version lookups see
// current package information.
func (r *Resolver) SyncDatabase() error {
	_, err := shell.ExecCmd("pacman -Sy", true, shell.HostPath, nil)
	return err
}

func isModuleFamily(pkg string) bool {
	for _, prefix := range moduleFamilyPrefixes {
		if strings.HasPrefix(pkg, prefix) {
			return true
		}
	}
	return false
}
