package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archzfs-tools/zkmod/internal/compat"
	"github.com/archzfs-tools/zkmod/internal/kernel"
)

var (
	checkMode     string
	checkFailOpen bool
)

// createCheckCommand creates the check subcommand
func createCheckCommand() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check <kernel>",
		Short: "Validate kernel/ZFS compatibility before a build or install",
		Long: `Check validates one kernel against the requested ZFS module mode.
By default it fails closed: when a package version or the upstream
compatibility range cannot be determined, the kernel is reported as
incompatible. Pass --fail-open to get the permissive reading used by
the interactive scanner instead.`,
		Args: cobra.ExactArgs(1),
		RunE: executeCheck,
	}

	checkCmd.Flags().StringVar(&checkMode, "mode", string(kernel.ModeBuild),
		"ZFS module mode to validate (precompiled or dkms)")
	checkCmd.Flags().BoolVar(&checkFailOpen, "fail-open", false,
		"Treat unresolved compatibility data as compatible")

	return checkCmd
}

func executeCheck(cmd *cobra.Command, args []string) error {
	kernelName := args[0]

	mode, err := parseMode(checkMode)
	if err != nil {
		return err
	}

	resolver, checker := buildChecker()
	catalog := buildCatalog(resolver)

	variant, ok := catalog.Get(kernelName)
	if !ok {
		return fmt.Errorf("unsupported kernel: %s", kernelName)
	}

	policy := compat.FailClosed
	if checkFailOpen {
		policy = compat.FailOpen
	}

	compatible, warnings := checker.Check(variant, mode, policy)
	for _, w := range warnings {
		fmt.Printf("warning: %s\n", w)
	}

	if !compatible {
		return fmt.Errorf("%s is not compatible with ZFS %s", kernelName, mode)
	}
	fmt.Printf("%s is compatible with ZFS %s\n", kernelName, mode)
	return nil
}

func parseMode(s string) (kernel.Mode, error) {
	switch kernel.Mode(s) {
	case kernel.ModePrecompiled:
		return kernel.ModePrecompiled, nil
	case kernel.ModeBuild:
		return kernel.ModeBuild, nil
	default:
		return "", fmt.Errorf("unknown ZFS module mode: %s (expected precompiled or dkms)", s)
	}
}
