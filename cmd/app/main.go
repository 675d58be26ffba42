package main

import (
	"context"
	"os"
)

func main() {
	if err := newRootCmd(context.Background()).Execute(); err != nil {
		os.Exit(1)
	}
}
