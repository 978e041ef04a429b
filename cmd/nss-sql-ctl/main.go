// Package main is the nss-sql-ctl entry point.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/ubuntu/nss-sql/cmd/nss-sql-ctl/ctl"
	"github.com/ubuntu/nss-sql/log"
)

// Exit codes follow getent.
const (
	exitOK       = 0
	exitFailure  = 1
	exitNotFound = 2
)

func main() {
	os.Exit(run(ctl.New()))
}

type app interface {
	Run() error
	UsageError() bool
}

func run(a app) int {
	log.InitJournalHandler(false)

	err := a.Run()
	if err == nil {
		return exitOK
	}
	if errors.Is(err, ctl.NotFoundError{}) {
		log.Info(context.Background(), err)
		return exitNotFound
	}

	log.Error(context.Background(), err)
	if a.UsageError() {
		log.Info(context.Background(), "Run with --help for usage.")
	}
	return exitFailure
}
