// Package config loads the configuration of the NSS module.
//
// The configuration is split in two files of `key = value` lines: the main one,
// readable by every process, and the root one holding the shadow connection,
// readable only by its owner.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/creasty/defaults"
	"github.com/ubuntu/decorate"
	"github.com/ubuntu/nss-sql/internal/consts"
	"github.com/ubuntu/nss-sql/internal/fileutils"
	"github.com/ubuntu/nss-sql/log"
	"gopkg.in/ini.v1"
)

// Drivers lists the supported database/sql driver names.
var Drivers = []string{"pgx", "sqlite3"}

// Config is the configuration of the NSS module.
type Config struct {
	Driver           string `ini:"driver" default:"pgx"`
	ConnectionString string `ini:"connectionstring"`
	// ConnectTimeout is the number of seconds to wait for a connection to be established.
	ConnectTimeout int    `ini:"connect_timeout" default:"5"`
	LogLevel       string `ini:"log_level"`

	GetPwnam             string `ini:"getpwnam"`
	GetPwuid             string `ini:"getpwuid"`
	AllUsers             string `ini:"allusers"`
	GetGrnam             string `ini:"getgrnam"`
	GetGrgid             string `ini:"getgrgid"`
	AllGroups            string `ini:"allgroups"`
	GetGroupMembersByGID string `ini:"getgroupmembersbygid"`
	GroupsDyn            string `ini:"groups_dyn"`

	Shadow Shadow `ini:"-"`
}

// Shadow is the configuration read from the root file. It is empty when the
// root file is missing.
type Shadow struct {
	ConnectionString string `ini:"shadowconnectionstring"`
	ByName           string `ini:"shadowbyname"`
	All              string `ini:"shadow"`
}

// Configured reports whether the shadow connection is configured.
func (s Shadow) Configured() bool {
	return s.ConnectionString != ""
}

type options struct {
	openRoot func(path string) (io.ReadCloser, error)
}

// Option represents an optional function to override [Load] default values.
type Option func(*options)

// Load reads the main configuration file at path and the root configuration
// file at rootPath. A missing root file, or one the process is not allowed to
// read, leaves the shadow configuration empty.
func Load(ctx context.Context, path, rootPath string, args ...Option) (cfg Config, err error) {
	defer decorate.OnError(&err, "could not load configuration")

	opts := options{
		openRoot: func(path string) (io.ReadCloser, error) { return os.Open(path) },
	}
	for _, arg := range args {
		arg(&opts)
	}

	if err := defaults.Set(&cfg); err != nil {
		return Config{}, fmt.Errorf("can't set default values: %w", err)
	}

	if err := mapFile(path, path, &cfg); err != nil {
		return Config{}, err
	}
	log.Debugf(ctx, "Loaded configuration from %q", path)

	exists, err := fileutils.FileExists(rootPath)
	if err != nil {
		return Config{}, err
	}
	if !exists {
		log.Debugf(ctx, "No root configuration at %q, shadow lookups are disabled", rootPath)
		return cfg, cfg.Validate()
	}

	if err := fileutils.CheckOwnerAndPermissions(rootPath, consts.RootConfigForbiddenPerms); err != nil {
		return Config{}, err
	}

	// Unprivileged processes can't read the root file: only shadow is unavailable to them.
	f, err := opts.openRoot(rootPath)
	if errors.Is(err, fs.ErrPermission) {
		log.Debugf(ctx, "Root configuration at %q is not readable, shadow lookups are disabled: %v", rootPath, err)
		return cfg, cfg.Validate()
	}
	if err != nil {
		return Config{}, fmt.Errorf("could not read %q: %w", rootPath, err)
	}
	defer f.Close()

	if err := mapFile(rootPath, f, &cfg.Shadow); err != nil {
		return Config{}, err
	}
	log.Debugf(ctx, "Loaded root configuration from %q", rootPath)

	return cfg, cfg.Validate()
}

// mapFile maps the settings of source, a path or a reader, onto v.
func mapFile(name string, source any, v any) error {
	f, err := ini.LoadSources(ini.LoadOptions{
		// Queries and connection strings can hold '#' and ';'.
		IgnoreInlineComment: true,
		KeyValueDelimiters:  "=",
		// Keys are matched without regard to case.
		Insensitive: true,
	}, source)
	if err != nil {
		return fmt.Errorf("could not read %q: %w", name, err)
	}
	if err := f.Section(ini.DefaultSection).StrictMapTo(v); err != nil {
		return fmt.Errorf("invalid configuration in %q: %w", name, err)
	}
	return nil
}

// Validate reports every missing or invalid setting.
func (cfg Config) Validate() error {
	var errs []error
	if !slices.Contains(Drivers, cfg.Driver) {
		errs = append(errs, fmt.Errorf("unsupported driver %q, must be one of %s", cfg.Driver, strings.Join(Drivers, ", ")))
	}
	if cfg.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("connect_timeout can't be negative: %d", cfg.ConnectTimeout))
	}
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}

	required := map[string]string{
		"connectionstring":     cfg.ConnectionString,
		"getpwnam":             cfg.GetPwnam,
		"getpwuid":             cfg.GetPwuid,
		"allusers":             cfg.AllUsers,
		"getgrnam":             cfg.GetGrnam,
		"getgrgid":             cfg.GetGrgid,
		"allgroups":            cfg.AllGroups,
		"getgroupmembersbygid": cfg.GetGroupMembersByGID,
		"groups_dyn":           cfg.GroupsDyn,
	}
	if cfg.Shadow.Configured() {
		required["shadowbyname"] = cfg.Shadow.ByName
		required["shadow"] = cfg.Shadow.All
	}
	for _, key := range slices.Sorted(maps.Keys(required)) {
		if strings.TrimSpace(required[key]) == "" {
			errs = append(errs, fmt.Errorf("missing %s", key))
		}
	}

	return errors.Join(errs...)
}
