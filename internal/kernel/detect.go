package kernel

import (
	"strings"

	"github.com/archzfs-tools/zkmod/internal/utils/logger"
	"github.com/archzfs-tools/zkmod/internal/utils/shell"
)

// DetectRunningVariant maps the running kernel release string to a variant
// name using the conventional flavor markers. It falls back to linux-lts
// when the kernel cannot be identified.
func DetectRunningVariant() string {
	out, err := shell.ExecCmd("uname -r", false, shell.HostPath, nil)
	if err != nil {
		logger.Logger().Warnf("Failed to detect running kernel variant: %v", err)
		return "linux-lts"
	}

	release := strings.ToLower(strings.TrimSpace(out))
	switch {
	case strings.Contains(release, "lts") && strings.Contains(release, "rt"):
		return "linux-rt-lts"
	case strings.Contains(release, "lts"):
		return "linux-lts"
	case strings.Contains(release, "zen"):
		return "linux-zen"
	case strings.Contains(release, "hardened"):
		return "linux-hardened"
	case strings.Contains(release, "rt"):
		return "linux-rt"
	default:
		return "linux"
	}
}

// RecommendedMode returns the preferred installation mode for a variant.
func RecommendedMode(v Variant) Mode {
	if v.SupportsPrecompiled {
		return ModePrecompiled
	}
	return ModeBuild
}
