package main

import "github.com/quantlab/backsim/internal/cli"

func main() {
	cli.Execute()
}
