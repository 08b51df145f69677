// Package install turns a kernel/mode request into an ordered attempt chain
// and walks it against an installer collaborator, never substituting the
// kernel during fallback.
package install

import (
	"github.com/archzfs-tools/zkmod/internal/kernel"
)

// Attempt is one planned installation try.
type Attempt struct {
	Variant kernel.Variant
	Mode    kernel.Mode
}

// Plan computes the fallback chain for a request. The kernel variant is
// never substituted: a failed precompiled attempt falls back to building
// from source for the SAME kernel, and a from-source request has no
// fallback at all. Pure and offline; callable without any catalog or
// network access.
func Plan(v kernel.Variant, preferred kernel.Mode) []Attempt {
	var chain []Attempt

	if preferred == kernel.ModePrecompiled && v.SupportsPrecompiled {
		chain = append(chain, Attempt{Variant: v, Mode: kernel.ModePrecompiled})
	}
	chain = append(chain, Attempt{Variant: v, Mode: kernel.ModeBuild})

	return chain
}

// Packages returns the de-duplicated package set for an attempt, preserving
// first-seen order.
func (a Attempt) Packages() ([]string, error) {
	var pkgs []string
	var err error

	if a.Mode == kernel.ModePrecompiled {
		pkgs, err = a.Variant.PrecompiledPackages()
		if err != nil {
			return nil, err
		}
	} else {
		pkgs = a.Variant.BuildPackages()
	}

	seen := make(map[string]struct{}, len(pkgs))
	out := pkgs[:0]
	for _, p := range pkgs {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
