// Package main is the NSS module library, built with -buildmode=c-shared as libnss_sql.so.2.
package main

/*
#include <errno.h>
#include <nss.h>
*/
import "C"

import (
	"context"
	"io"
	"sync"

	"github.com/ubuntu/nss-sql/internal/backend/sqlbackend"
	"github.com/ubuntu/nss-sql/internal/config"
	"github.com/ubuntu/nss-sql/internal/consts"
	nsscore "github.com/ubuntu/nss-sql/internal/nss"
	"github.com/ubuntu/nss-sql/log"
)

// module returns the process wide module, created from the configuration at first use.
var module = sync.OnceValues(func() (*nsscore.Module, error) {
	ctx := context.Background()

	// The host process owns stderr.
	log.SetOutput(io.Discard)
	log.InitJournalHandler(true)

	cfg, err := config.Load(ctx, consts.DefaultConfigPath, consts.DefaultRootConfigPath)
	if err != nil {
		log.Errorf(ctx, "NSS module disabled: %v", err)
		return nil, err
	}
	l, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(l)

	b, err := sqlbackend.New(cfg)
	if err != nil {
		log.Errorf(ctx, "NSS module disabled: %v", err)
		return nil, err
	}
	return nsscore.New(b)
})

// withModule runs fn with the process wide module, or reports it unavailable.
func withModule(errnop *C.int, fn func(context.Context, *nsscore.Module) C.enum_nss_status) C.enum_nss_status {
	m, err := module()
	if err != nil {
		setErrno(errnop, C.ENOENT)
		return status(nsscore.StatusUnavail)
	}
	return fn(context.Background(), m)
}

func status(s nsscore.Status) C.enum_nss_status {
	return C.enum_nss_status(s)
}

func setErrno(errnop *C.int, errno C.int) {
	if errnop != nil {
		*errnop = errno
	}
}

// result converts the outcome of a record producing call, setting *errnop on failure.
func result[R any](res nsscore.Result[R], errnop *C.int) C.enum_nss_status {
	if res.Status != nsscore.StatusSuccess && res.Errno != 0 {
		setErrno(errnop, C.int(res.Errno))
	}
	return status(res.Status)
}

func main() {}
