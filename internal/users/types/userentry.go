package types

import (
	"fmt"
	"strings"
)

// Validate validates the user entry values.
func (u UserEntry) Validate() error {
	if u.Name == "" {
		return fmt.Errorf("user with UID %d cannot have empty name", u.UID)
	}

	for field, v := range map[string]string{"name": u.Name, "passwd": u.Passwd, "gecos": u.Gecos, "dir": u.Dir, "shell": u.Shell} {
		if strings.ContainsAny(v, ":\n") {
			return fmt.Errorf("user %q %s %q cannot contain ':' or newline characters", u.Name, field, v)
		}
	}

	return nil
}

// String returns the user entry as a passwd(5) line.
func (u UserEntry) String() string {
	return fmt.Sprintf("%s:%s:%d:%d:%s:%s:%s", u.Name, u.Passwd, u.UID, u.GID, u.Gecos, u.Dir, u.Shell)
}
