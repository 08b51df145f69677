package shell

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/archzfs-tools/zkmod/internal/utils/logger"
)

var (
	HostPath string = ""
)

// Commands this tool is allowed to run, mapped to their absolute paths.
// Anything not listed here is rejected before it reaches a shell.
var commandMap = map[string]string{
	"pacman":   "/usr/bin/pacman",
	"uname":    "/usr/bin/uname",
	"modprobe": "/usr/sbin/modprobe",
}

// Executor runs a command line and returns its combined output. The default
// implementation shells out on the host; tests swap in a MockExecutor.
type Executor interface {
	ExecCmd(cmdStr string, sudo bool, chrootPath string, envVal []string) (string, error)
}

// Default is the process-wide executor. Tests replace it and restore the
// original in a deferred func.
var Default Executor = &HostExecutor{}

// ExecCmd executes a command through the Default executor.
func ExecCmd(cmdStr string, sudo bool, chrootPath string, envVal []string) (string, error) {
	return Default.ExecCmd(cmdStr, sudo, chrootPath, envVal)
}

// HostExecutor runs commands on the host (optionally inside a chroot).
type HostExecutor struct{}

func (h *HostExecutor) ExecCmd(cmdStr string, sudo bool, chrootPath string, envVal []string) (string, error) {
	log := logger.Logger()
	fullCmdStr, err := GetFullCmdStr(cmdStr, sudo, chrootPath, envVal)
	if err != nil {
		return "", fmt.Errorf("failed to get full command string: %w", err)
	}

	cmd := exec.Command("bash", "-c", fullCmdStr)
	output, err := cmd.CombinedOutput()
	outputStr := string(output)

	if err != nil {
		if outputStr != "" {
			log.Debugf(outputStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", fullCmdStr, err)
	}
	if outputStr != "" {
		log.Debugf(outputStr)
	}
	return outputStr, nil
}

func verifyCmdWithFullPath(cmd string) (string, error) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return cmd, nil
	}
	bin := fields[0]
	fullPath, ok := commandMap[bin]
	if !ok {
		return "", fmt.Errorf("command %s not found in commandMap", bin)
	}
	fields[0] = fullPath
	return strings.Join(fields, " "), nil
}

// GetFullCmdStr prepares a command string with necessary prefixes
func GetFullCmdStr(cmdStr string, sudo bool, chrootPath string, envVal []string) (string, error) {
	log := logger.Logger()
	envValStr := ""
	for _, env := range envVal {
		envValStr += env + " "
	}

	fullPathCmdStr, err := verifyCmdWithFullPath(cmdStr)
	if err != nil {
		return fullPathCmdStr, fmt.Errorf("failed to verify command with full path: %w", err)
	}

	var fullCmdStr string
	if chrootPath != HostPath {
		if _, err := os.Stat(chrootPath); os.IsNotExist(err) {
			return fullPathCmdStr, fmt.Errorf("chroot path %s does not exist", chrootPath)
		}
		fullCmdStr = "sudo " + envValStr + "chroot " + chrootPath + " " + fullPathCmdStr
		log.Debugf("Chroot Exec: [" + fullPathCmdStr + "]")
	} else if sudo {
		fullCmdStr = "sudo " + envValStr + fullPathCmdStr
		log.Debugf("Exec: [sudo " + fullPathCmdStr + "]")
	} else {
		fullCmdStr = envValStr + fullPathCmdStr
		log.Debugf("Exec: [" + fullPathCmdStr + "]")
	}

	return fullCmdStr, nil
}

// MockCommand pairs a substring pattern with the canned output and error the
// mock executor should return for any command line containing it.
type MockCommand struct {
	Pattern string
	Output  string
	Error   error
}

// MockExecutor matches incoming command lines against an ordered list of
// MockCommands and records everything it was asked to run.
type MockExecutor struct {
	Commands []MockCommand
	Executed []string
}

// NewMockExecutor builds a MockExecutor for the given canned commands.
func NewMockExecutor(commands []MockCommand) *MockExecutor {
	return &MockExecutor{Commands: commands}
}

func (m *MockExecutor) ExecCmd(cmdStr string, sudo bool, chrootPath string, envVal []string) (string, error) {
	m.Executed = append(m.Executed, cmdStr)
	for _, mc := range m.Commands {
		if strings.Contains(cmdStr, mc.Pattern) {
			return mc.Output, mc.Error
		}
	}
	return "", fmt.Errorf("no mock registered for command: %s", cmdStr)
}
