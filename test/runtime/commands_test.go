//go:build unix

package runtime

import (
	"testing"

	"hush/test"
)

func TestCommandBlocks(t *testing.T) {
	tests := []test.TestCase{
		{
			Name:     "sync block writes through",
			Script:   `{ echo hello }`,
			ExitCode: 0,
			Stdout:   "hello",
		},
		{
			Name: "failure is an error value",
			Script: `let r = { false }
std.println(r.description)
std.println(r.context.status)`,
			ExitCode: 0,
			Stdout: `command returned non-zero
1`,
		},
		{
			Name: "capture",
			Script: `let out = ${ echo b; echo a }.stdout
let lines = std.split(std.trim(out), "\n")
std.sort(lines)
std.println(lines)`,
			ExitCode: 0,
			Stdout:   `["a", "b"]`,
		},
		{
			Name: "arrays expand into arguments",
			Script: `let files = ["x y", "z"]
{ printf "<%s>" $files }`,
			ExitCode: 0,
			Stdout:   "<x y><z>",
		},
		{
			Name: "async join",
			Script: `let h = &{ echo background }
h.join()
std.println("joined")`,
			ExitCode: 0,
			Stdout: `background
joined`,
		},
		{
			Name: "command status as exit code",
			Script: `let r = { sh -c "exit 5" }
std.exit(r.context.status)`,
			ExitCode: 5,
		},
		{
			Name: "try operator on commands",
			Script: `function build()
	{ sh -c "exit 2" }?
	"built"
end
std.println(std.type(build()))`,
			ExitCode: 0,
			Stdout:   "error",
		},
		{
			Name: "pipeline",
			Script: `let r = ${ echo hush | tr a-z A-Z }
std.print(r.stdout)`,
			ExitCode: 0,
			Stdout:   "HUSH",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.Name, func(t *testing.T) {
			test.RunScriptTest(t, testCase)
		})
	}
}
