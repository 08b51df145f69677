package compat

import (
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/archzfs-tools/zkmod/internal/config"
	"github.com/archzfs-tools/zkmod/internal/kernel"
	"github.com/archzfs-tools/zkmod/internal/utils/logger"
)

// FilterEnvVar disables compatibility filtering when set to an off value.
const FilterEnvVar = "ZKMOD_FILTER_KERNELS"

// Evaluator is the slice of Checker the scanner needs; tests inject fakes.
type Evaluator interface {
	CheckBuild(kernelPkg string, policy Policy) (bool, []string)
	CheckPrecompiled(v kernel.Variant, policy Policy) (bool, []string)
}

// Syncer refreshes the package index before a scan. Satisfied by
// pacman.Resolver; nil skips the refresh.
type Syncer interface {
	SyncDatabase() error
}

// Result is the cached per-kernel outcome of one scan.
type Result struct {
	Variant               kernel.Variant
	BuildCompatible       bool
	BuildWarnings         []string
	PrecompiledCompatible bool
	PrecompiledWarnings   []string
}

// Option is one presentation-ready selection: a display label plus the
// kernel name and module mode it stands for.
type Option struct {
	Label  string
	Kernel string
	Mode   kernel.Mode
}

// Scanner batch-evaluates the whole catalog and caches the results. It is
// the only cache in the system; ad hoc Checker calls always re-query.
type Scanner struct {
	catalog *kernel.Catalog
	eval    Evaluator
	syncer  Syncer

	results   map[string]Result
	scanned   bool
	filtering bool
}

// NewScanner builds a scanner over the catalog. syncer may be nil.
func NewScanner(catalog *kernel.Catalog, eval Evaluator, syncer Syncer) *Scanner {
	return &Scanner{
		catalog:   catalog,
		eval:      eval,
		syncer:    syncer,
		results:   make(map[string]Result),
		filtering: true,
	}
}

// Scan evaluates every catalog variant for both modes and replaces the
// cache wholesale; stale entries never survive a re-scan. Variants are
// evaluated fail-closed so a failed version lookup reaches the scanner as
// an incompatible verdict; the scanner then overrides it to compatible
// with a downgraded warning, so a broken package index cannot hide every
// installation option while genuine mismatches stay filtered.
func (s *Scanner) Scan(enableFiltering bool) {
	log := logger.Logger()

	s.filtering = enableFiltering
	s.results = make(map[string]Result)

	log.Infof("Scanning kernel compatibility for ZFS (filtering=%v)", enableFiltering)
	if !enableFiltering {
		log.Infof("Compatibility filtering disabled - all options will be shown")
	}

	if s.syncer != nil {
		if err := s.syncer.SyncDatabase(); err != nil {
			log.Warnf("Failed to refresh package database: %v", err)
			log.Warnf("Package version detection may be unreliable")
		}
	}

	variants := s.catalog.Variants()
	bar := progressbar.NewOptions(len(variants),
		progressbar.OptionSetDescription("scanning kernels"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
	)

	for _, v := range variants {
		s.results[v.Name] = s.scanVariant(v, enableFiltering)
		if err := bar.Add(1); err != nil {
			log.Debugf("failed to add to progress bar: %v", err)
		}
	}
	if err := bar.Finish(); err != nil {
		log.Debugf("failed to finish progress bar: %v", err)
	}

	s.scanned = true
	s.logSummary()
}

func (s *Scanner) scanVariant(v kernel.Variant, enableFiltering bool) Result {
	log := logger.Logger()
	log.Debugf("Checking compatibility for %s...", v.Name)

	res := Result{
		Variant:               v,
		BuildCompatible:       true,
		PrecompiledCompatible: true,
	}

	if enableFiltering {
		// Fail-closed here so lookup failures surface as incompatible
		// verdicts for overrideLookupFailure to downgrade.
		res.BuildCompatible, res.BuildWarnings = s.eval.CheckBuild(v.KernelPackage, FailClosed)
		res.BuildCompatible, res.BuildWarnings = overrideLookupFailure(v.Name, res.BuildCompatible, res.BuildWarnings)
	}

	switch {
	case !v.SupportsPrecompiled || v.PrecompiledPackage == "":
		res.PrecompiledCompatible = false
		res.PrecompiledWarnings = []string{"No precompiled package available"}
	case enableFiltering:
		res.PrecompiledCompatible, res.PrecompiledWarnings = s.eval.CheckPrecompiled(v, FailClosed)
		res.PrecompiledCompatible, res.PrecompiledWarnings = overrideLookupFailure(v.Name, res.PrecompiledCompatible, res.PrecompiledWarnings)
	}

	var modes []string
	if res.PrecompiledCompatible {
		modes = append(modes, "precompiled")
	}
	if res.BuildCompatible {
		modes = append(modes, "DKMS")
	}
	if len(modes) > 0 {
		log.Debugf("%s: %s available", v.Name, strings.Join(modes, ", "))
	} else {
		log.Debugf("%s: no compatible ZFS options", v.Name)
	}
	for _, w := range append(res.BuildWarnings, res.PrecompiledWarnings...) {
		log.Debugf("  Warning: %s", w)
	}

	return res
}

// overrideLookupFailure distinguishes "could not determine a version" from
// a genuine mismatch. Lookup failures become compatible with a downgraded
// warning; real mismatches stay filtered.
func overrideLookupFailure(name string, compatible bool, warnings []string) (bool, []string) {
	if compatible || !hasLookupWarning(warnings) {
		return compatible, warnings
	}
	logger.Logger().Warnf("Package detection failed for %s - assuming compatible", name)
	return true, []string{"Package version detection failed - assuming compatible"}
}

func hasLookupWarning(warnings []string) bool {
	for _, w := range warnings {
		if strings.Contains(w, "Could not determine") || strings.Contains(w, "Could not fetch") {
			return true
		}
	}
	return false
}

func (s *Scanner) logSummary() {
	log := logger.Logger()

	buildOK := 0
	precompiledOK := 0
	for _, r := range s.results {
		if r.BuildCompatible {
			buildOK++
		}
		if r.PrecompiledCompatible {
			precompiledOK++
		}
	}

	log.Infof("Compatibility scan complete: %d kernels, %d DKMS compatible, %d precompiled compatible",
		len(s.results), buildOK, precompiledOK)

	if s.filtering && buildOK == 0 && precompiledOK == 0 {
		log.Warnf("No compatible ZFS options found for any kernel")
		log.Warnf("Consider disabling filtering with: export %s=false", FilterEnvVar)
	}
}

// MenuOptions renders the cached results into ordered option tuples plus
// the display labels of kernels filtered out of the from-source set. A
// scanner that was never scanned performs one first.
func (s *Scanner) MenuOptions() ([]Option, []string) {
	log := logger.Logger()

	if !s.scanned {
		log.Warnf("Compatibility not scanned yet - performing scan now")
		s.Scan(ShouldFilter())
	}

	var options []Option
	var filtered []string

	for _, v := range s.catalog.Variants() {
		res, ok := s.results[v.Name]
		if !ok {
			continue
		}

		if v.PrecompiledPackage != "" && (res.PrecompiledCompatible || !s.filtering) {
			label := v.DisplayName + " + precompiled ZFS"
			if v.IsDefault {
				label += " (recommended)"
			}
			options = append(options, Option{Label: label, Kernel: v.Name, Mode: kernel.ModePrecompiled})
		}

		if res.BuildCompatible || !s.filtering {
			options = append(options, Option{Label: v.DisplayName + " + ZFS DKMS", Kernel: v.Name, Mode: kernel.ModeBuild})
		}

		if s.filtering && !res.BuildCompatible {
			filtered = append(filtered, v.DisplayName)
		}
	}

	log.Debugf("Generated %d menu options, %d filtered", len(options), len(filtered))
	return options, filtered
}

// Result returns the cached scan result for a kernel.
func (s *Scanner) Result(name string) (Result, bool) {
	res, ok := s.results[name]
	return res, ok
}

// IsCompatible checks one cached kernel/mode combination. Disabled
// filtering makes everything compatible.
func (s *Scanner) IsCompatible(name string, mode kernel.Mode) bool {
	res, ok := s.results[name]
	if !ok {
		return false
	}
	if !s.filtering {
		return true
	}
	if mode == kernel.ModePrecompiled {
		return res.PrecompiledCompatible
	}
	return res.BuildCompatible
}

// ShouldFilter reads the filtering toggle: the environment variable wins
// when it names an off value, otherwise the configured default applies.
func ShouldFilter() bool {
	switch strings.ToLower(os.Getenv(FilterEnvVar)) {
	case "0", "false", "no", "off", "disable":
		logger.Logger().Debugf("Kernel filtering disabled via environment variable")
		return false
	}
	return config.FilterKernelsDefault()
}
