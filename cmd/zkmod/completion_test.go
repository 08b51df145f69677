package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout captures everything written to os.Stdout during fn.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer pr.Close()

	oldOut := os.Stdout
	os.Stdout = pw
	defer func() { os.Stdout = oldOut }()

	done := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, pr)
		done <- buf.String()
	}()

	fn()
	pw.Close()
	return <-done
}

func TestCompletionGeneratesScript(t *testing.T) {
	for _, sh := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(sh, func(t *testing.T) {
			root := createRootCommand()
			root.SetArgs([]string{"completion", sh})

			var execErr error
			out := captureStdout(t, func() {
				execErr = root.Execute()
			})
			if execErr != nil {
				t.Fatalf("completion %s failed: %v", sh, execErr)
			}
			if !strings.Contains(out, "zkmod") {
				t.Errorf("completion %s output does not mention the tool", sh)
			}
		})
	}
}

func TestCompletionRejectsUnknownShell(t *testing.T) {
	root := createRootCommand()
	root.SetArgs([]string{"completion", "tcsh"})
	root.SilenceErrors = true
	root.SilenceUsage = true

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for unsupported shell")
	}
}

func TestVersionOutput(t *testing.T) {
	root := createRootCommand()
	root.SetArgs([]string{"version"})

	var execErr error
	out := captureStdout(t, func() {
		execErr = root.Execute()
	})
	if execErr != nil {
		t.Fatalf("version command failed: %v", execErr)
	}
	if !strings.Contains(out, "zkmod") {
		t.Errorf("version output = %q", out)
	}
}
