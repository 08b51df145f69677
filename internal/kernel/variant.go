// Package kernel models the catalog of installable kernel variants and the
// ZFS packages each one pairs with.
package kernel

import (
	"fmt"
)

// Mode selects how the ZFS kernel module is installed for a variant.
type Mode string

const (
	// ModePrecompiled installs a prebuilt module binary matched to an exact
	// kernel build.
	ModePrecompiled Mode = "precompiled"
	// ModeBuild compiles the module locally against the kernel headers at
	// install time (DKMS).
	ModeBuild Mode = "dkms"
)

// Base packages shared by every installation mode.
const (
	utilsPackage  = "zfs-utils"
	modulePackage = "zfs-dkms"
)

// Variant describes one kernel flavor and its associated packages.
type Variant struct {
	Name                string `yaml:"name" json:"name"`
	DisplayName         string `yaml:"display_name" json:"display_name"`
	KernelPackage       string `yaml:"kernel_package" json:"kernel_package"`
	HeadersPackage      string `yaml:"headers_package" json:"headers_package"`
	PrecompiledPackage  string `yaml:"precompiled_package,omitempty" json:"precompiled_package,omitempty"`
	SupportsPrecompiled bool   `yaml:"supports_precompiled" json:"supports_precompiled"`
	IsDefault           bool   `yaml:"is_default,omitempty" json:"is_default,omitempty"`
}

// Validate checks the structural invariants of a variant. A variant that
// claims precompiled support must name the precompiled package.
func (v Variant) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("kernel variant name cannot be empty")
	}
	if v.DisplayName == "" {
		return fmt.Errorf("kernel variant %s: display name cannot be empty", v.Name)
	}
	if v.KernelPackage == "" {
		return fmt.Errorf("kernel variant %s: kernel package cannot be empty", v.Name)
	}
	if v.HeadersPackage == "" {
		return fmt.Errorf("kernel variant %s: headers package cannot be empty", v.Name)
	}
	if v.SupportsPrecompiled && v.PrecompiledPackage == "" {
		return fmt.Errorf("kernel variant %s claims to support precompiled ZFS but no precompiled package is specified", v.Name)
	}
	return nil
}

// NewVariant builds and validates a variant in one step.
func NewVariant(name, displayName, kernelPkg, headersPkg, precompiledPkg string, isDefault bool) (Variant, error) {
	v := Variant{
		Name:                name,
		DisplayName:         displayName,
		KernelPackage:       kernelPkg,
		HeadersPackage:      headersPkg,
		PrecompiledPackage:  precompiledPkg,
		SupportsPrecompiled: precompiledPkg != "",
		IsDefault:           isDefault,
	}
	if err := v.Validate(); err != nil {
		return Variant{}, err
	}
	return v, nil
}

// BuildPackages returns the package set for a from-source (DKMS) install.
func (v Variant) BuildPackages() []string {
	return []string{utilsPackage, modulePackage, v.HeadersPackage}
}

// PrecompiledPackages returns the package set for a precompiled install.
func (v Variant) PrecompiledPackages() ([]string, error) {
	if !v.SupportsPrecompiled || v.PrecompiledPackage == "" {
		return nil, fmt.Errorf("kernel variant %s does not support precompiled ZFS", v.Name)
	}
	return []string{utilsPackage, v.PrecompiledPackage}, nil
}

func (v Variant) String() string {
	precompiled := "no"
	if v.SupportsPrecompiled {
		precompiled = "yes"
	}
	suffix := ""
	if v.IsDefault {
		suffix = " (default)"
	}
	return fmt.Sprintf("%s [%s] precompiled=%s%s", v.DisplayName, v.Name, precompiled, suffix)
}
