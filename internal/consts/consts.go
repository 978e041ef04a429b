// Package consts defines the constants used by the project
package consts

import "github.com/ubuntu/nss-sql/log"

var (
	// Version is the version of the executable.
	Version = "Dev"
)

const (
	// ModuleName is the name of the NSS module, as used in nsswitch.conf.
	ModuleName = "sql"

	// DefaultLogLevel is the default logging level selected without any option.
	DefaultLogLevel = log.NoticeLevel

	// DefaultConfigPath is the default path of the main configuration file.
	DefaultConfigPath = "/etc/nss-sql.conf"

	// DefaultRootConfigPath is the default path of the configuration file holding the shadow connection.
	DefaultRootConfigPath = "/etc/nss-sql-root.conf"

	// RootConfigForbiddenPerms are the permission bits the root configuration file must not have.
	RootConfigForbiddenPerms = 0o077

	// MaxBufferSize is the largest record buffer the command line tool allocates.
	MaxBufferSize = 1 << 20
)
