package sqlbackend

// All those functions and methods are only for tests.
// They are not exported, and guarded by testing assertions.

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ubuntu/nss-sql/internal/config"
	"github.com/ubuntu/nss-sql/internal/testsdetection"
	"gopkg.in/yaml.v3"
)

const testSchema = `
CREATE TABLE users (
	name TEXT PRIMARY KEY,
	passwd TEXT,
	uid INTEGER NOT NULL UNIQUE,
	gid INTEGER NOT NULL,
	gecos TEXT,
	dir TEXT NOT NULL DEFAULT '',
	shell TEXT NOT NULL DEFAULT ''
);
CREATE TABLE groups (
	name TEXT PRIMARY KEY,
	passwd TEXT,
	gid INTEGER NOT NULL UNIQUE
);
CREATE TABLE members (
	user_name TEXT NOT NULL,
	gid INTEGER NOT NULL,
	PRIMARY KEY (user_name, gid)
);
CREATE TABLE shadow (
	name TEXT PRIMARY KEY,
	passwd TEXT,
	lastchange INTEGER,
	min INTEGER,
	max INTEGER,
	warn INTEGER,
	inact INTEGER,
	expire INTEGER,
	flag INTEGER
);
`

type testContent struct {
	Users []struct {
		Name   string  `yaml:"name"`
		Passwd *string `yaml:"passwd"`
		UID    uint32  `yaml:"uid"`
		GID    uint32  `yaml:"gid"`
		Gecos  *string `yaml:"gecos"`
		Dir    string  `yaml:"dir"`
		Shell  string  `yaml:"shell"`
	} `yaml:"users"`
	Groups []struct {
		Name   string  `yaml:"name"`
		Passwd *string `yaml:"passwd"`
		GID    uint32  `yaml:"gid"`
	} `yaml:"groups"`
	Members []struct {
		User string `yaml:"user"`
		GID  uint32 `yaml:"gid"`
	} `yaml:"members"`
	Shadow []struct {
		Name       string `yaml:"name"`
		Passwd     string `yaml:"passwd"`
		LastChange *int64 `yaml:"lastchange"`
		Min        *int64 `yaml:"min"`
		Max        *int64 `yaml:"max"`
		Warn       *int64 `yaml:"warn"`
		Inact      *int64 `yaml:"inact"`
		Expire     *int64 `yaml:"expire"`
		Flag       *int64 `yaml:"flag"`
	} `yaml:"shadow"`
}

// Z_ForTests_CreateDBFromYAML creates the SQLite database dbPath and loads the src file content into it.
//
// nolint:revive,nolintlint // We want to use underscores in the function name here.
func Z_ForTests_CreateDBFromYAML(t *testing.T, src, dbPath string) {
	t.Helper()
	testsdetection.MustBeTesting()

	data, err := os.ReadFile(src)
	require.NoError(t, err, "Setup: should be able to read source file")

	var content testContent
	err = yaml.Unmarshal(data, &content)
	require.NoError(t, err, "Setup: should be able to parse source file")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err, "Setup: should be able to create database")
	defer db.Close()

	_, err = db.Exec(testSchema)
	require.NoError(t, err, "Setup: should be able to create schema")

	exec := func(query string, args ...any) {
		t.Helper()
		_, err := db.Exec(query, args...)
		require.NoError(t, err, "Setup: should be able to insert %v", args)
	}
	for _, u := range content.Users {
		exec(`INSERT INTO users VALUES (?, ?, ?, ?, ?, ?, ?)`, u.Name, u.Passwd, u.UID, u.GID, u.Gecos, u.Dir, u.Shell)
	}
	for _, g := range content.Groups {
		exec(`INSERT INTO groups VALUES (?, ?, ?)`, g.Name, g.Passwd, g.GID)
	}
	for _, m := range content.Members {
		exec(`INSERT INTO members VALUES (?, ?)`, m.User, m.GID)
	}
	for _, s := range content.Shadow {
		exec(`INSERT INTO shadow VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.Name, s.Passwd, s.LastChange, s.Min, s.Max, s.Warn, s.Inact, s.Expire, s.Flag)
	}
}

// Z_ForTests_Config returns a configuration querying the database created by
// [Z_ForTests_CreateDBFromYAML] at dbPath. An empty shadowDBPath leaves the
// shadow connection unconfigured.
//
// nolint:revive,nolintlint // We want to use underscores in the function name here.
func Z_ForTests_Config(dbPath, shadowDBPath string) config.Config {
	testsdetection.MustBeTesting()

	cfg := config.Config{
		Driver:               "sqlite3",
		ConnectionString:     fmt.Sprintf("file:%s?mode=ro", dbPath),
		ConnectTimeout:       5,
		GetPwnam:             `SELECT name, passwd, uid, gid, gecos, dir, shell FROM users WHERE name = ?`,
		GetPwuid:             `SELECT name, passwd, uid, gid, gecos, dir, shell FROM users WHERE uid = ?`,
		AllUsers:             `SELECT name, passwd, uid, gid, gecos, dir, shell FROM users ORDER BY uid`,
		GetGrnam:             `SELECT name, passwd, gid FROM groups WHERE name = ?`,
		GetGrgid:             `SELECT name, passwd, gid FROM groups WHERE gid = ?`,
		AllGroups:            `SELECT name, passwd, gid FROM groups ORDER BY gid`,
		GetGroupMembersByGID: `SELECT user_name FROM members WHERE gid = ? ORDER BY user_name`,
		GroupsDyn:            `SELECT gid FROM members WHERE user_name = ? AND gid <> ? ORDER BY gid`,
	}
	if shadowDBPath != "" {
		cfg.Shadow = config.Shadow{
			ConnectionString: fmt.Sprintf("file:%s?mode=ro", shadowDBPath),
			ByName:           `SELECT name, passwd, lastchange, min, max, warn, inact, expire, flag FROM shadow WHERE name = ?`,
			All:              `SELECT name, passwd, lastchange, min, max, warn, inact, expire, flag FROM shadow ORDER BY name`,
		}
	}
	return cfg
}
