package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// buildCLI compiles deninstall into a temporary directory.
func buildCLI(t *testing.T) string {
	t.Helper()
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	binaryPath := filepath.Join(t.TempDir(), "deninstall")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/deninstall")
	buildCmd.Dir = originalDir
	if output, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build CLI binary: %v\n%s", err, output)
	}
	return binaryPath
}

func runCLI(t *testing.T, binaryPath, logDir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "DEN_INSTALLER_LOG_DIR="+logDir)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func assertContainsAll(t *testing.T, output string, parts []string) {
	t.Helper()
	for _, part := range parts {
		if !strings.Contains(output, part) {
			t.Errorf("Expected output to contain %q, but got: %s", part, output)
		}
	}
}

func TestCLI_ErrorHandling_MissingPayload(t *testing.T) {
	binaryPath := buildCLI(t)
	logDir := t.TempDir()

	output, err := runCLI(t, binaryPath, logDir, "install", "--prefix", filepath.Join(t.TempDir(), "den"))

	if err == nil {
		t.Error("Expected command to fail but it succeeded")
	}
	assertContainsAll(t, output, []string{
		"Error:",
		"Missing release payload",
		"Cause:",
		"neither --payload nor --head was given",
		"Suggestion:",
		"Pass --payload",
	})

	logFile := filepath.Join(logDir, "deninstall.log")
	data, readErr := os.ReadFile(logFile)
	if readErr != nil {
		t.Fatalf("Expected deninstall.log to be created: %v", readErr)
	}
	if !strings.Contains(string(data), `"type":"config_invalid"`) {
		t.Errorf("Expected structured log entry with config_invalid type, got: %s", data)
	}
}

func TestCLI_ErrorHandling_InvalidConfigFile(t *testing.T) {
	binaryPath := buildCLI(t)
	logDir := t.TempDir()

	configPath := filepath.Join(t.TempDir(), "deninstall.yaml")
	if err := os.WriteFile(configPath, []byte("runtime:\n  running_policy: ignore\n"), 0644); err != nil {
		t.Fatal(err)
	}

	output, err := runCLI(t, binaryPath, logDir, "check", "--config", configPath)

	if err == nil {
		t.Error("Expected command to fail but it succeeded")
	}
	assertContainsAll(t, output, []string{
		"Invalid configuration",
		"must be one of: require defer",
		"DEN_INSTALLER_",
	})
}

func TestCLI_ErrorHandling_RequiredFlag(t *testing.T) {
	binaryPath := buildCLI(t)

	output, err := runCLI(t, binaryPath, t.TempDir(), "postinstall")

	if err == nil {
		t.Error("Expected command to fail but it succeeded")
	}
	assertContainsAll(t, output, []string{"Error:", `required flag(s) "prefix" not set`})
}

func TestCLI_Caveats(t *testing.T) {
	binaryPath := buildCLI(t)

	output, err := runCLI(t, binaryPath, t.TempDir(), "caveats")

	if err != nil {
		t.Fatalf("Expected caveats to succeed: %v\n%s", err, output)
	}
	assertContainsAll(t, output, []string{"den svc up", "den install"})
}
