// Package backend defines the contract between the NSS module core and the
// data source that resolves identity records.
package backend

import (
	"context"
	"fmt"

	"github.com/ubuntu/nss-sql/internal/users/types"
)

// Category is one of the logical connections to the data source.
type Category int

const (
	// CategoryUserGroup is the connection shared by user and group records.
	CategoryUserGroup Category = iota
	// CategoryShadow is the connection dedicated to shadow records.
	CategoryShadow
)

// Categories lists every known category.
var Categories = []Category{CategoryUserGroup, CategoryShadow}

func (c Category) String() string {
	switch c {
	case CategoryUserGroup:
		return "usergroup"
	case CategoryShadow:
		return "shadow"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Query identifies an enumeration query.
type Query string

const (
	// QueryAllUsers enumerates every user.
	QueryAllUsers Query = "allusers"
	// QueryAllGroups enumerates every group.
	QueryAllGroups Query = "allgroups"
	// QueryAllShadow enumerates every shadow entry.
	QueryAllShadow Query = "shadow"
)

// Category returns the category an enumeration query must run on.
func (q Query) Category() Category {
	if q == QueryAllShadow {
		return CategoryShadow
	}
	return CategoryUserGroup
}

// Backend resolves identity records. Implementations don't need to be safe for
// concurrent use: the NSS module serializes every call.
type Backend interface {
	// Open opens the connection of the category. It is a no-op if it is already open.
	Open(ctx context.Context, c Category) error
	// IsOpen returns whether the connection of the category is open.
	IsOpen(c Category) bool
	// Close closes the connection of the category and discards its cursor, if any.
	// It is a no-op on a closed category.
	Close(c Category) error

	// Prepare binds the next Next* calls on the open category to the query,
	// discarding any previous cursor.
	Prepare(ctx context.Context, c Category, q Query) error
	// EndEnumeration discards the cursor of the category, if any.
	EndEnumeration(c Category)

	// NextUser returns the next record of the users enumeration, or a
	// [NoDataFoundError] once it is exhausted.
	NextUser(ctx context.Context) (types.UserEntry, error)
	// NextGroup returns the next record of the groups enumeration, or a
	// [NoDataFoundError] once it is exhausted.
	NextGroup(ctx context.Context) (types.GroupEntry, error)
	// NextShadow returns the next record of the shadow enumeration, or a
	// [NoDataFoundError] once it is exhausted.
	NextShadow(ctx context.Context) (types.ShadowEntry, error)

	UserByName(ctx context.Context, name string) (types.UserEntry, error)
	UserByID(ctx context.Context, uid uint32) (types.UserEntry, error)
	GroupByName(ctx context.Context, name string) (types.GroupEntry, error)
	GroupByID(ctx context.Context, gid uint32) (types.GroupEntry, error)
	ShadowByName(ctx context.Context, name string) (types.ShadowEntry, error)

	// GroupsForUser returns the GIDs of the groups the user is a member of,
	// skipping the group skip.
	GroupsForUser(ctx context.Context, user string, skip uint32) ([]uint32, error)
}
