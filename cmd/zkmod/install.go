package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archzfs-tools/zkmod/internal/install"
	"github.com/archzfs-tools/zkmod/internal/kernel"
)

var (
	installMode   string
	installRoot   string
	installDryRun bool
)

// createInstallCommand creates the install subcommand
func createInstallCommand() *cobra.Command {
	installCmd := &cobra.Command{
		Use:   "install [kernel]",
		Short: "Install ZFS packages for a kernel with fallback",
		Long: `Install attempts the requested ZFS module mode and, when a precompiled
install fails, falls back to building from source for the SAME kernel.
The kernel is never substituted during fallback. Without a kernel
argument the running kernel's variant is detected and used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: executeInstall,
	}

	installCmd.Flags().StringVar(&installMode, "mode", "",
		"Preferred ZFS module mode (precompiled or dkms; default: recommended for the kernel)")
	installCmd.Flags().StringVar(&installRoot, "root", "",
		"Install into a mounted target root via chroot instead of the host")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false,
		"Print the installation plan without installing anything")

	return installCmd
}

func executeInstall(cmd *cobra.Command, args []string) error {
	resolver, _ := buildChecker()
	catalog := buildCatalog(resolver)

	kernelName := ""
	if len(args) > 0 {
		kernelName = args[0]
	} else {
		kernelName = kernel.DetectRunningVariant()
	}

	variant, ok := catalog.Get(kernelName)
	if !ok {
		return fmt.Errorf("unsupported kernel: %s", kernelName)
	}

	mode := kernel.RecommendedMode(variant)
	if installMode != "" {
		var err error
		mode, err = parseMode(installMode)
		if err != nil {
			return err
		}
	}

	if installDryRun {
		fmt.Println(install.Summarize(variant, mode))
		return nil
	}

	executor := install.NewExecutor(install.PacmanInstaller{ChrootPath: installRoot})
	result := executor.Install(variant, mode)

	fmt.Println(result.Summary())
	if !result.Success {
		return fmt.Errorf("all installation attempts failed for %s", kernelName)
	}

	// A host install should leave a loadable module; a target-root install
	// is verified when the target boots.
	if installRoot == "" && !install.ModuleLoads() {
		fmt.Println("Warning: zfs module is not loadable for the running kernel yet (a reboot may be required)")
	}
	return nil
}
