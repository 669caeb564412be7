package integration

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"hush/test"
)

// TestScripts runs every annotated script under testdata.
func TestScripts(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("scripts spawn POSIX commands")
	}

	files, err := filepath.Glob(filepath.Join("testdata", "*.hsh"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		content, err := test.LoadTestDataFile(filepath.Base(file))
		require.NoError(t, err)

		testCase := test.ParseTestCase(content)
		if testCase.Name == "" {
			testCase.Name = filepath.Base(file)
		}
		t.Run(testCase.Name, func(t *testing.T) {
			test.RunScriptTest(t, *testCase)
		})
	}
}
