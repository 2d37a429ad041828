package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(&options{}, os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "invokereader: %v\n", err)
		}
		os.Exit(1)
	}
}
