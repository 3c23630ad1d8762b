package main

import "github.com/HueCodes/shipagent/internal/cli"

func main() {
	cli.Execute()
}
