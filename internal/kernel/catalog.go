package kernel

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/archzfs-tools/zkmod/internal/config/validate"
	"github.com/archzfs-tools/zkmod/internal/utils/logger"
)

// Prober answers whether a package exists in the configured repositories.
// It is satisfied by the pacman resolver; tests supply fakes.
type Prober interface {
	PackageAvailable(name string) bool
}

// Catalog holds the registered kernel variants. It is built once by the
// composition root and passed to everything that needs it; there is no
// package-level instance.
type Catalog struct {
	variants map[string]Variant
}

// NewCatalog returns a catalog seeded with the built-in variants.
func NewCatalog() *Catalog {
	c := &Catalog{variants: make(map[string]Variant)}

	builtins := []Variant{
		{
			Name:                "linux-lts",
			DisplayName:         "Linux LTS",
			KernelPackage:       "linux-lts",
			HeadersPackage:      "linux-lts-headers",
			PrecompiledPackage:  "zfs-linux-lts",
			SupportsPrecompiled: true,
			IsDefault:           true,
		},
		{
			Name:                "linux",
			DisplayName:         "Linux",
			KernelPackage:       "linux",
			HeadersPackage:      "linux-headers",
			PrecompiledPackage:  "zfs-linux",
			SupportsPrecompiled: true,
		},
		{
			Name:                "linux-zen",
			DisplayName:         "Linux Zen",
			KernelPackage:       "linux-zen",
			HeadersPackage:      "linux-zen-headers",
			PrecompiledPackage:  "zfs-linux-zen",
			SupportsPrecompiled: true,
		},
	}

	for _, v := range builtins {
		// Built-in definitions are known valid.
		c.variants[v.Name] = v
	}
	return c
}

// Register adds a variant to the catalog, replacing any existing entry with
// the same name.
func (c *Catalog) Register(v Variant) error {
	if err := v.Validate(); err != nil {
		return err
	}
	log := logger.Logger()
	if _, exists := c.variants[v.Name]; exists {
		log.Warnf("Overriding existing kernel variant: %s", v.Name)
	}
	c.variants[v.Name] = v
	log.Debugf("Registered kernel variant: %s", v.Name)
	return nil
}

// Get returns the variant with the given name.
func (c *Catalog) Get(name string) (Variant, bool) {
	v, ok := c.variants[name]
	return v, ok
}

// Variants returns all registered variants, default first, then by name.
func (c *Catalog) Variants() []Variant {
	out := make([]Variant, 0, len(c.variants))
	for _, v := range c.variants {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// PrecompiledVariants returns the variants that ship a precompiled module.
func (c *Catalog) PrecompiledVariants() []Variant {
	var out []Variant
	for _, v := range c.Variants() {
		if v.SupportsPrecompiled {
			out = append(out, v)
		}
	}
	return out
}

// DefaultVariant returns the first variant flagged as default.
func (c *Catalog) DefaultVariant() (Variant, bool) {
	for _, v := range c.Variants() {
		if v.IsDefault {
			return v, true
		}
	}
	return Variant{}, false
}

// Len returns the number of registered variants.
func (c *Catalog) Len() int {
	return len(c.variants)
}

// variantsFile is the on-disk shape of a kernel-variants override file.
type variantsFile struct {
	KernelVariants []Variant `yaml:"kernel_variants" json:"kernel_variants"`
}

// LoadFile registers additional variants from a YAML file. A missing file is
// not an error; a file that fails schema validation is.
func (c *Catalog) LoadFile(path string) error {
	log := logger.Logger()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("Kernel variants file not found: %s", path)
			return nil
		}
		return fmt.Errorf("reading kernel variants file %s: %w", path, err)
	}

	if err := validate.ValidateVariantsYAML(data); err != nil {
		return fmt.Errorf("validating kernel variants file %s: %w", path, err)
	}

	var file variantsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing kernel variants file %s: %w", path, err)
	}

	for _, v := range file.KernelVariants {
		if err := c.Register(v); err != nil {
			log.Warnf("Skipping kernel variant from %s: %v", path, err)
		}
	}
	log.Infof("Loaded kernel variants from %s", path)
	return nil
}

// Kernel packages probed for by AutoDetect, beyond the built-ins.
var detectCandidates = []string{
	"linux",
	"linux-lts",
	"linux-zen",
	"linux-hardened",
	"linux-rt",
	"linux-rt-lts",
}

// AutoDetect probes the repositories for conventional kernel packages and
// registers variants for the ones it finds, using Arch naming conventions.
// Already-registered names are left alone.
func (c *Catalog) AutoDetect(prober Prober) {
	log := logger.Logger()
	log.Debugf("Auto-detecting available kernel variants")

	for _, name := range detectCandidates {
		if _, exists := c.variants[name]; exists {
			continue
		}
		if !prober.PackageAvailable(name) {
			continue
		}

		precompiledPkg := "zfs-" + name
		if !prober.PackageAvailable(precompiledPkg) {
			precompiledPkg = ""
		}

		v := Variant{
			Name:                name,
			DisplayName:         displayNameFor(name),
			KernelPackage:       name,
			HeadersPackage:      name + "-headers",
			PrecompiledPackage:  precompiledPkg,
			SupportsPrecompiled: precompiledPkg != "",
		}
		if err := c.Register(v); err != nil {
			log.Warnf("Failed to register detected kernel %s: %v", name, err)
		}
	}
}

func displayNameFor(pkg string) string {
	words := strings.Split(pkg, "-")
	for i, w := range words {
		switch w {
		case "lts", "rt":
			words[i] = strings.ToUpper(w)
		default:
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
