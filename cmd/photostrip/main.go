package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/menta2k/photostrip"
)

func main() {
	root := newRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(photostrip.Version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
