package main

import (
	"github.com/mutscan/mutscan/pkg/cli"
)

func main() {
	cli.Execute()
}
