package install_test

import (
	"reflect"
	"testing"

	"github.com/archzfs-tools/zkmod/internal/install"
	"github.com/archzfs-tools/zkmod/internal/kernel"
)

func ltsVariant() kernel.Variant {
	return kernel.Variant{
		Name:                "linux-lts",
		DisplayName:         "Linux LTS",
		KernelPackage:       "linux-lts",
		HeadersPackage:      "linux-lts-headers",
		PrecompiledPackage:  "zfs-linux-lts",
		SupportsPrecompiled: true,
		IsDefault:           true,
	}
}

func rtVariant() kernel.Variant {
	return kernel.Variant{
		Name:           "linux-rt",
		DisplayName:    "Linux RT",
		KernelPackage:  "linux-rt",
		HeadersPackage: "linux-rt-headers",
	}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name      string
		variant   kernel.Variant
		preferred kernel.Mode
		wantModes []kernel.Mode
	}{
		{
			name:      "precompiled preference gets a build fallback",
			variant:   ltsVariant(),
			preferred: kernel.ModePrecompiled,
			wantModes: []kernel.Mode{kernel.ModePrecompiled, kernel.ModeBuild},
		},
		{
			name:      "build preference has no fallback",
			variant:   ltsVariant(),
			preferred: kernel.ModeBuild,
			wantModes: []kernel.Mode{kernel.ModeBuild},
		},
		{
			name:      "precompiled preference without support degrades to build only",
			variant:   rtVariant(),
			preferred: kernel.ModePrecompiled,
			wantModes: []kernel.Mode{kernel.ModeBuild},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := install.Plan(tt.variant, tt.preferred)

			if len(chain) != len(tt.wantModes) {
				t.Fatalf("chain length = %d, want %d", len(chain), len(tt.wantModes))
			}
			for i, attempt := range chain {
				if attempt.Mode != tt.wantModes[i] {
					t.Errorf("chain[%d].Mode = %s, want %s", i, attempt.Mode, tt.wantModes[i])
				}
				// Fallback never swaps the kernel.
				if attempt.Variant.Name != tt.variant.Name {
					t.Errorf("chain[%d].Variant = %s, want %s", i, attempt.Variant.Name, tt.variant.Name)
				}
			}
		})
	}
}

func TestAttemptPackages(t *testing.T) {
	precompiled := install.Attempt{Variant: ltsVariant(), Mode: kernel.ModePrecompiled}
	pkgs, err := precompiled.Packages()
	if err != nil {
		t.Fatalf("Packages() error: %v", err)
	}
	if want := []string{"zfs-utils", "zfs-linux-lts"}; !reflect.DeepEqual(pkgs, want) {
		t.Errorf("precompiled packages = %v, want %v", pkgs, want)
	}

	build := install.Attempt{Variant: ltsVariant(), Mode: kernel.ModeBuild}
	pkgs, err = build.Packages()
	if err != nil {
		t.Fatalf("Packages() error: %v", err)
	}
	if want := []string{"zfs-utils", "zfs-dkms", "linux-lts-headers"}; !reflect.DeepEqual(pkgs, want) {
		t.Errorf("build packages = %v, want %v", pkgs, want)
	}
}

func TestAttemptPackagesDeduplicates(t *testing.T) {
	v := kernel.Variant{
		Name:           "odd",
		DisplayName:    "Odd",
		KernelPackage:  "odd",
		HeadersPackage: "zfs-dkms", // collides with the module package
	}
	pkgs, err := install.Attempt{Variant: v, Mode: kernel.ModeBuild}.Packages()
	if err != nil {
		t.Fatalf("Packages() error: %v", err)
	}
	if want := []string{"zfs-utils", "zfs-dkms"}; !reflect.DeepEqual(pkgs, want) {
		t.Errorf("packages = %v, want %v", pkgs, want)
	}
}

func TestAttemptPackagesPrecompiledUnsupported(t *testing.T) {
	attempt := install.Attempt{Variant: rtVariant(), Mode: kernel.ModePrecompiled}
	if _, err := attempt.Packages(); err == nil {
		t.Error("expected error for a precompiled attempt without a package")
	}
}
