package install

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/archzfs-tools/zkmod/internal/kernel"
	"github.com/archzfs-tools/zkmod/internal/utils/logger"
)

// Result captures one full install attempt sequence. It is created fresh
// per sequence, mutated only by the executor while the sequence runs, and
// handed to the caller afterwards.
type Result struct {
	SessionID         string
	Variant           kernel.Variant
	RequestedMode     kernel.Mode
	ActualMode        kernel.Mode
	Success           bool
	FallbackOccurred  bool
	InstalledPackages []string
	Errors            []string
}

func newResult(v kernel.Variant, requested kernel.Mode) *Result {
	return &Result{
		SessionID:     uuid.New().String()[:8],
		Variant:       v,
		RequestedMode: requested,
	}
}

// failAttempt records a failed attempt. Only the most recent attempt's
// error is kept on the result; earlier failures stay visible in the log.
func (r *Result) failAttempt(msg string) {
	r.Errors = []string{msg}
	logger.Logger().Debugf("[%s] Installation error: %s", r.SessionID, msg)
}

// Summary renders a human-readable outcome line.
func (r *Result) Summary() string {
	if !r.Success {
		errSummary := "Unknown error"
		if len(r.Errors) > 0 {
			errSummary = strings.Join(r.Errors, "; ")
		}
		return fmt.Sprintf("Installation failed for %s: %s", r.Variant.Name, errSummary)
	}

	fallbackText := ""
	if r.FallbackOccurred {
		fallbackText = " (after fallback)"
	}
	return fmt.Sprintf("Successfully installed ZFS %s for %s%s - Packages: %s",
		r.ActualMode, r.Variant.Name, fallbackText, strings.Join(r.InstalledPackages, ", "))
}
