package main

import (
	"os"

	"github.com/spigell/hr-interviewer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
