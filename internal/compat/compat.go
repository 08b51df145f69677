// Package compat decides whether a ZFS module can be installed against a
// kernel, either as a prebuilt binary (exact version match) or built from
// source (kernel range match).
package compat

import (
	"fmt"
	"strings"

	"github.com/archzfs-tools/zkmod/internal/kernel"
	"github.com/archzfs-tools/zkmod/internal/pkgver"
	"github.com/archzfs-tools/zkmod/internal/utils/logger"
	"github.com/archzfs-tools/zkmod/internal/zfsrelease"
)

// Policy decides what unresolved compatibility data means. The pre-build
// validator gates an expensive DKMS build and fails closed. The interactive
// scanner also evaluates fail-closed, then downgrades lookup failures to
// compatible itself so it can attach an explicit warning. Callers pick a
// policy explicitly; neither is the baked-in default.
type Policy int

const (
	// FailClosed treats unresolved data as incompatible.
	FailClosed Policy = iota
	// FailOpen treats unresolved data as compatible.
	FailOpen
)

// Unresolved returns the compatibility verdict for data that could not be
// resolved under this policy.
func (p Policy) Unresolved() bool {
	return p == FailOpen
}

func (p Policy) String() string {
	if p == FailOpen {
		return "fail-open"
	}
	return "fail-closed"
}

// VersionResolver answers current package versions. Satisfied by
// pacman.Resolver.
type VersionResolver interface {
	Resolve(pkg string) (string, bool)
}

// RangeFetcher answers the declared kernel range for a module version.
// Satisfied by zfsrelease.Client.
type RangeFetcher interface {
	FetchRange(moduleVersion string) (zfsrelease.Range, bool)
}

// The package whose version determines which module sources get built.
const buildModulePackage = "zfs-dkms"

// Checker evaluates both compatibility policies. It performs no caching;
// every call re-queries the resolver and fetcher.
type Checker struct {
	resolver VersionResolver
	releases RangeFetcher
}

// NewChecker builds a Checker over the given collaborators.
func NewChecker(resolver VersionResolver, releases RangeFetcher) *Checker {
	return &Checker{resolver: resolver, releases: releases}
}

// CheckBuild applies the range-match policy for a from-source module build
// against the named kernel package. Bounds and kernel version are compared
// normalized to (major, minor, 0); any patch level inside the band counts.
func (c *Checker) CheckBuild(kernelPkg string, policy Policy) (bool, []string) {
	log := logger.Logger()
	var warnings []string

	log.Debugf("Validating DKMS compatibility for %s (%s)", kernelPkg, policy)

	moduleVer, ok := c.resolver.Resolve(buildModulePackage)
	if !ok {
		warnings = append(warnings, "Could not determine zfs-dkms version - ZFS repository may not be configured or package unavailable")
		return policy.Unresolved(), warnings
	}

	kernelVer, ok := c.resolver.Resolve(kernelPkg)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("Could not determine %s version - package repository issue", kernelPkg))
		return policy.Unresolved(), warnings
	}

	declared, ok := c.releases.FetchRange(moduleVer)
	if !ok {
		warnings = append(warnings, "Could not fetch ZFS kernel compatibility data from GitHub API - network or API issue")
		return policy.Unresolved(), warnings
	}

	kernelBase, _, _ := strings.Cut(kernelVer, "-")
	kv := pkgver.Parse(kernelBase)
	band := pkgver.ParseRange(declared.Min, declared.Max)

	if band.Contains(kv) {
		log.Debugf("Kernel %s (%s) is compatible with ZFS DKMS", kernelPkg, kernelBase)
		return true, warnings
	}

	warnings = append(warnings, fmt.Sprintf(
		"Kernel %s (%s) is outside the supported range for ZFS DKMS (%s - %s)",
		kernelPkg, kernelBase, declared.Min, declared.Max))
	return false, warnings
}

// CheckPrecompiled applies the exact-match policy: the precompiled package
// version encodes the kernel build it was compiled against as
// {module_version}_{kernel_version}, and only a character-for-character
// match of the full kernel version counts. A prebuilt module is
// ABI-sensitive to the exact build, so even a pkgrel difference fails.
func (c *Checker) CheckPrecompiled(v kernel.Variant, policy Policy) (bool, []string) {
	log := logger.Logger()
	var warnings []string

	if !v.SupportsPrecompiled || v.PrecompiledPackage == "" {
		warnings = append(warnings, "No precompiled package available")
		return false, warnings
	}

	kernelVer, ok := c.resolver.Resolve(v.KernelPackage)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("Could not determine %s version", v.KernelPackage))
		return policy.Unresolved(), warnings
	}

	moduleVer, ok := c.resolver.Resolve(v.PrecompiledPackage)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("Could not determine %s version - precompiled package may not be available", v.PrecompiledPackage))
		return policy.Unresolved(), warnings
	}

	// Malformed data is a mismatch, not an unresolved lookup: the package
	// exists but does not encode a target kernel this tool can trust.
	if !strings.Contains(moduleVer, "_") {
		warnings = append(warnings, fmt.Sprintf("Unexpected %s version format (missing separator): %s", v.PrecompiledPackage, moduleVer))
		return false, warnings
	}

	modulePart, builtAgainst, _ := strings.Cut(moduleVer, "_")
	if modulePart == "" {
		warnings = append(warnings, fmt.Sprintf("Unexpected %s version format (missing module version): %s", v.PrecompiledPackage, moduleVer))
		return false, warnings
	}
	if builtAgainst == "" {
		warnings = append(warnings, fmt.Sprintf("Unexpected %s version format (missing kernel version): %s", v.PrecompiledPackage, moduleVer))
		return false, warnings
	}

	if kernelVer == builtAgainst {
		log.Debugf("Kernel %s (%s) matches exactly with precompiled ZFS (%s)", v.Name, kernelVer, builtAgainst)
		return true, warnings
	}

	warnings = append(warnings, fmt.Sprintf(
		"Kernel %s (%s) does not match precompiled ZFS (requires exactly %s)",
		v.Name, kernelVer, builtAgainst))
	return false, warnings
}

// Check dispatches to the policy matching the installation mode.
func (c *Checker) Check(v kernel.Variant, mode kernel.Mode, policy Policy) (bool, []string) {
	if mode == kernel.ModePrecompiled {
		return c.CheckPrecompiled(v, policy)
	}
	return c.CheckBuild(v.KernelPackage, policy)
}
