package main

import "github.com/forPelevin/vertcut/internal/cli"

func main() {
	cli.Main()
}
