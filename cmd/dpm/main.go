package main

import "github.com/deploykit/dpm-cli/cmd/dpm/cli"

func main() {
	cli.Execute()
}
