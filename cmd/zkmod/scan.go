package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archzfs-tools/zkmod/internal/compat"
)

var (
	scanNoFilter bool
	scanJSON     bool
)

// createScanCommand creates the scan subcommand
func createScanCommand() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan all kernels for ZFS compatibility",
		Long: `Scan evaluates every kernel in the catalog for both precompiled and
DKMS ZFS compatibility and prints the resulting option list, plus the
kernels that were filtered out as incompatible.`,
		RunE: executeScan,
	}

	scanCmd.Flags().BoolVar(&scanNoFilter, "no-filter", false,
		"Show every kernel/mode combination regardless of computed compatibility")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false,
		"Emit the option list as JSON")

	return scanCmd
}

func executeScan(cmd *cobra.Command, args []string) error {
	resolver, checker := buildChecker()
	catalog := buildCatalog(resolver)

	scanner := compat.NewScanner(catalog, checker, resolver)

	filtering := compat.ShouldFilter()
	if scanNoFilter {
		filtering = false
	}
	scanner.Scan(filtering)

	options, filtered := scanner.MenuOptions()

	if scanJSON {
		out := struct {
			Options  []compat.Option `json:"options"`
			Filtered []string        `json:"filtered"`
		}{Options: options, Filtered: filtered}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding scan results: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Available options (%d):\n", len(options))
	for _, opt := range options {
		fmt.Printf("  %-45s %s/%s\n", opt.Label, opt.Kernel, opt.Mode)
	}

	if len(filtered) > 0 {
		fmt.Printf("\nFiltered out (DKMS incompatible):\n")
		for _, name := range filtered {
			fmt.Printf("  %s\n", name)
		}
	}

	if len(options) == 0 {
		return fmt.Errorf("no compatible kernel options available")
	}
	return nil
}
