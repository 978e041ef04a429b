package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Validate validates the group entry values.
func (g GroupEntry) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("group with GID %d cannot have empty name", g.GID)
	}

	if strings.ContainsAny(g.Name, ",:\n") {
		return fmt.Errorf("group %q cannot contain ',', ':' or newline characters", g.Name)
	}

	if strings.ContainsAny(g.Passwd, ",:\n") {
		return fmt.Errorf("group %q passwd %q cannot contain ',', ':' or newline characters", g.Name, g.Passwd)
	}

	if slices.ContainsFunc(g.Users, func(u string) bool { return u == "" || strings.ContainsAny(u, ",:\n") }) {
		return fmt.Errorf("group %q cannot contain empty users or users with ',', ':' or newline characters (%v)", g.Name, g.Users)
	}

	return nil
}

// Equals checks that two groups are equal. The order of the members does not matter.
func (g GroupEntry) Equals(other GroupEntry) bool {
	if g.Name != other.Name || g.GID != other.GID || g.Passwd != other.Passwd {
		return false
	}

	a, b := slices.Clone(g.Users), slices.Clone(other.Users)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}

// DeepCopy makes a deep copy of the group entry.
func (g GroupEntry) DeepCopy() GroupEntry {
	g.Users = slices.Clone(g.Users)
	return g
}

// String returns the group entry as a group(5) line.
func (g GroupEntry) String() string {
	return strings.Join([]string{g.Name, g.Passwd, strconv.FormatUint(uint64(g.GID), 10), strings.Join(g.Users, ",")}, ":")
}
