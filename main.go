package main

import (
	"github.com/scribeworks/scribe/cmd"
)

func main() {
	cmd.Execute()
}
