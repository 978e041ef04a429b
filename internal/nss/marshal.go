package nss

import (
	"github.com/ubuntu/nss-sql/internal/buffer"
	"github.com/ubuntu/nss-sql/internal/users/types"
)

// UserOffsets are the offsets of the strings of a packed user in the caller buffer.
type UserOffsets struct {
	Name, Passwd, Gecos, Dir, Shell int
}

// UserRecord is a user packed into a caller buffer.
type UserRecord struct {
	Entry   types.UserEntry
	Offsets UserOffsets
	// Size is the number of bytes of the caller buffer used by the record.
	Size int
}

// GroupOffsets are the offsets of a packed group in the caller buffer.
// Members is the offset of a NULL terminated array of [buffer.SlotSize] slots,
// each holding the offset of a member name.
type GroupOffsets struct {
	Name, Passwd, Members int
}

// GroupRecord is a group packed into a caller buffer.
type GroupRecord struct {
	Entry   types.GroupEntry
	Offsets GroupOffsets
	Size    int
}

// ShadowOffsets are the offsets of the strings of a packed shadow entry in the caller buffer.
type ShadowOffsets struct {
	Name, Passwd int
}

// ShadowRecord is a shadow entry packed into a caller buffer.
type ShadowRecord struct {
	Entry   types.ShadowEntry
	Offsets ShadowOffsets
	Size    int
}

// packer writes an entry into a caller buffer.
type packer[E, R any] func(buf []byte, e E) (R, error)

func packUser(buf []byte, u types.UserEntry) (UserRecord, error) {
	var offsets UserOffsets
	size, err := buffer.Pack(buf, func(w *buffer.Writer) {
		offsets = UserOffsets{
			Name:   w.String(u.Name),
			Passwd: w.String(u.Passwd),
			Gecos:  w.String(u.Gecos),
			Dir:    w.String(u.Dir),
			Shell:  w.String(u.Shell),
		}
	})
	if err != nil {
		return UserRecord{}, err
	}
	return UserRecord{Entry: u, Offsets: offsets, Size: size}, nil
}

func packGroup(buf []byte, g types.GroupEntry) (GroupRecord, error) {
	var offsets GroupOffsets
	size, err := buffer.Pack(buf, func(w *buffer.Writer) {
		// Slots come first so that they are aligned on the start of the buffer.
		members := w.Slots(len(g.Users) + 1)
		offsets = GroupOffsets{
			Name:    w.String(g.Name),
			Passwd:  w.String(g.Passwd),
			Members: members,
		}
		for i, u := range g.Users {
			w.PutSlot(members, i, w.String(u))
		}
		w.PutSlot(members, len(g.Users), 0)
	})
	if err != nil {
		return GroupRecord{}, err
	}
	return GroupRecord{Entry: g.DeepCopy(), Offsets: offsets, Size: size}, nil
}

func packShadow(buf []byte, sp types.ShadowEntry) (ShadowRecord, error) {
	var offsets ShadowOffsets
	size, err := buffer.Pack(buf, func(w *buffer.Writer) {
		offsets = ShadowOffsets{
			Name:   w.String(sp.Name),
			Passwd: w.String(sp.Passwd),
		}
	})
	if err != nil {
		return ShadowRecord{}, err
	}
	return ShadowRecord{Entry: sp, Offsets: offsets, Size: size}, nil
}
