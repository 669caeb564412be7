package test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hush/internal/cli"
)

// TestCase represents a single end-to-end run of a hush script
type TestCase struct {
	Name     string   // Test name
	Script   string   // .hsh script content
	Flags    []string // Flags placed before the script path
	Args     []string // Script arguments
	Stdin    string   // Input to provide
	ExitCode int      // Expected exit code
	Stdout   string   // Expected stdout content
	Stderr   string   // Expected stderr content, matched as a substring
}

// RunScriptTest executes a hush script through the command line entry point
// and validates the results
func RunScriptTest(t *testing.T, testCase TestCase) {
	t.Helper()

	scriptPath := filepath.Join(t.TempDir(), "test.hsh")
	require.NoError(t, os.WriteFile(scriptPath, []byte(testCase.Script), 0o644), "failed to write test script")

	args := append([]string{}, testCase.Flags...)
	args = append(args, scriptPath)
	args = append(args, testCase.Args...)

	var stdout, stderr bytes.Buffer
	exitCode := cli.Run(args, strings.NewReader(testCase.Stdin), &stdout, &stderr)

	assert.Equal(t, testCase.ExitCode, exitCode, "exit code\nstderr:\n%s", stderr.String())

	if testCase.Stdout != "" {
		assert.Equal(t, strings.TrimSpace(testCase.Stdout), strings.TrimSpace(stdout.String()), "stdout mismatch")
	}

	if testCase.Stderr != "" {
		expected := strings.ReplaceAll(strings.TrimSpace(testCase.Stderr), "$SCRIPT", scriptPath)
		assert.Contains(t, strings.TrimSpace(stderr.String()), expected, "stderr mismatch")
	}

	// Log output for debugging
	if testing.Verbose() {
		fmt.Printf("=== Test: %s ===\n", testCase.Name)
		fmt.Printf("Exit Code: %d\n", exitCode)
		fmt.Printf("Stdout:\n%s\n", stdout.String())
		fmt.Printf("Stderr:\n%s\n", stderr.String())
		fmt.Println("=================")
	}
}

// LoadTestDataFile loads a test file from testdata directory
func LoadTestDataFile(filename string) (string, error) {
	content, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// ParseTestCase parses a test case from a structured comment format
func ParseTestCase(content string) *TestCase {
	lines := strings.Split(content, "\n")
	testCase := &TestCase{}

	var scriptLines []string
	var mode string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		directive := true

		switch {
		case strings.HasPrefix(trimmed, "# TEST:"):
			testCase.Name = strings.TrimSpace(strings.TrimPrefix(trimmed, "# TEST:"))
		case strings.HasPrefix(trimmed, "# EXPECT_EXIT:"):
			fmt.Sscanf(trimmed, "# EXPECT_EXIT: %d", &testCase.ExitCode)
		case strings.HasPrefix(trimmed, "# EXPECT_STDOUT:"):
			mode = "stdout"
		case strings.HasPrefix(trimmed, "# EXPECT_STDERR:"):
			mode = "stderr"
		case strings.HasPrefix(trimmed, "# STDIN:"):
			mode = "stdin"
		case strings.HasPrefix(trimmed, "# ARGS:"):
			testCase.Args = strings.Fields(strings.TrimPrefix(trimmed, "# ARGS:"))
		case strings.HasPrefix(trimmed, "# FLAGS:"):
			testCase.Flags = strings.Fields(strings.TrimPrefix(trimmed, "# FLAGS:"))
		case strings.HasPrefix(trimmed, "# END_"):
			mode = ""
		case strings.HasPrefix(trimmed, "#") && mode != "":
			content := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
			switch mode {
			case "stdout":
				testCase.Stdout = appendLine(testCase.Stdout, content)
			case "stderr":
				testCase.Stderr = appendLine(testCase.Stderr, content)
			case "stdin":
				testCase.Stdin = appendLine(testCase.Stdin, content)
			}
		default:
			directive = false
		}

		// Directives become blank lines so reported positions match the file.
		if directive {
			line = ""
		}
		scriptLines = append(scriptLines, line)
	}

	testCase.Script = strings.Join(scriptLines, "\n")
	return testCase
}

func appendLine(s, line string) string {
	if s != "" {
		s += "\n"
	}
	return s + line
}
