package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Validate validates the shadow entry values.
func (s ShadowEntry) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("shadow entry cannot have empty name")
	}
	if strings.ContainsAny(s.Name, ":\n") || strings.ContainsAny(s.Passwd, ":\n") {
		return fmt.Errorf("shadow entry %q cannot contain ':' or newline characters", s.Name)
	}
	return nil
}

// String returns the shadow entry as a shadow(5) line. Unset numeric fields are left empty.
func (s ShadowEntry) String() string {
	fields := []string{s.Name, s.Passwd}
	for _, v := range []int64{s.LastPwdChange, s.MinPwdAge, s.MaxPwdAge, s.PwdWarnPeriod, s.PwdInactivity, s.ExpirationDate} {
		fields = append(fields, optionalNumber(v))
	}
	flag := ""
	if s.Flag != 0 {
		flag = strconv.FormatUint(s.Flag, 10)
	}
	return strings.Join(append(fields, flag), ":")
}

func optionalNumber(v int64) string {
	if v < 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}
