package main

import "github.com/robotalks/avr.go/pkg/cli"

//go-build: CGO_ENABLED=0

func main() {
	cli.Main()
}
