// Package types provides the identity records resolved by the NSS module.
package types

// UserEntry is a passwd record.
type UserEntry struct {
	Name   string
	Passwd string
	UID    uint32
	GID    uint32
	Gecos  string // Gecos is an optional field. It can be empty.
	Dir    string
	Shell  string
}

// GroupEntry is a group record.
type GroupEntry struct {
	Name   string
	Passwd string
	GID    uint32
	Users  []string
}

// ShadowEntry is a shadow record. Numeric fields set to -1 are unset, as in shadow(5).
type ShadowEntry struct {
	Name           string
	Passwd         string
	LastPwdChange  int64
	MinPwdAge      int64
	MaxPwdAge      int64
	PwdWarnPeriod  int64
	PwdInactivity  int64
	ExpirationDate int64
	Flag           uint64
}
