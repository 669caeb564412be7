package parsing

import (
	"testing"

	"hush/test"
)

func TestCheck(t *testing.T) {
	tests := []test.TestCase{
		{
			Name: "valid script",
			Script: `function greet(name)
	std.println("hello " ++ name)
end
{ echo hi ? }`,
			Flags:    []string{"--check"},
			ExitCode: 0,
		},
		{
			Name:     "syntax error",
			Script:   "let = 1",
			Flags:    []string{"--check"},
			ExitCode: 2,
			Stderr:   "$SCRIPT (line 1, column 5) - expected 'identifier', got '='",
		},
		{
			Name:     "unterminated block",
			Script:   "if true then 1",
			Flags:    []string{"--check"},
			ExitCode: 2,
			Stderr:   "expected 'end', got 'end of file'",
		},
		{
			Name:     "duplicate dict key",
			Script:   "@[a: 1, a: 2]",
			Flags:    []string{"--check"},
			ExitCode: 2,
			Stderr:   "duplicate key 'a' in dict literal",
		},
		{
			Name:     "empty command block",
			Script:   "{ }",
			Flags:    []string{"--check"},
			ExitCode: 2,
			Stderr:   "empty command block",
		},
		{
			Name:     "every semantic error is reported",
			Script:   "x\ny",
			Flags:    []string{"--check"},
			ExitCode: 2,
			Stderr: `$SCRIPT (line 1, column 1) - undeclared variable 'x'
Error: $SCRIPT (line 2, column 1) - undeclared variable 'y'`,
		},
		{
			Name:     "return outside function",
			Script:   "return 1",
			Flags:    []string{"--check"},
			ExitCode: 2,
			Stderr:   "return outside function",
		},
		{
			Name:     "built-in in a pipeline",
			Script:   "{ cd /tmp | cat }",
			Flags:    []string{"--check"},
			ExitCode: 2,
			Stderr:   "built-in command 'cd' cannot be used in a pipeline",
		},
		{
			Name:     "built-in in a capture",
			Script:   "${ cd /tmp }",
			Flags:    []string{"--check"},
			ExitCode: 2,
			Stderr:   "built-in command 'cd' cannot be used in capture block",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			test.RunScriptTest(t, testCase)
		})
	}
}
