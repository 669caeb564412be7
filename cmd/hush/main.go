package main

import "hush/internal/cli"

func main() {
	cli.Execute()
}
