package main

/*
#include <errno.h>
#include <grp.h>
#include <nss.h>
#include <stdlib.h>
*/
import "C"

import (
	"context"
	"unsafe"

	nsscore "github.com/ubuntu/nss-sql/internal/nss"
)

//export _nss_sql_setgrent
func _nss_sql_setgrent(_ C.int) C.enum_nss_status {
	return withModule(nil, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		return status(m.SetGrent(ctx))
	})
}

//export _nss_sql_endgrent
func _nss_sql_endgrent() C.enum_nss_status {
	return withModule(nil, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		return status(m.EndGrent(ctx))
	})
}

//export _nss_sql_getgrent_r
func _nss_sql_getgrent_r(result *C.struct_group, buf *C.char, buflen C.size_t, errnop *C.int) C.enum_nss_status {
	return withModule(errnop, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		b := newCallerBuffer(buf, buflen)
		return fillGroup(m.GetGrent(ctx, b.buf), b, result, errnop)
	})
}

//export _nss_sql_getgrnam_r
func _nss_sql_getgrnam_r(name *C.char, result *C.struct_group, buf *C.char, buflen C.size_t, errnop *C.int) C.enum_nss_status {
	return withModule(errnop, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		b := newCallerBuffer(buf, buflen)
		return fillGroup(m.GetGrnam(ctx, C.GoString(name), b.buf), b, result, errnop)
	})
}

//export _nss_sql_getgrgid_r
func _nss_sql_getgrgid_r(gid C.gid_t, result *C.struct_group, buf *C.char, buflen C.size_t, errnop *C.int) C.enum_nss_status {
	return withModule(errnop, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		b := newCallerBuffer(buf, buflen)
		return fillGroup(m.GetGrgid(ctx, uint32(gid), b.buf), b, result, errnop)
	})
}

func fillGroup(res nsscore.Result[nsscore.GroupRecord], b callerBuffer, grp *C.struct_group, errnop *C.int) C.enum_nss_status {
	if res.Status == nsscore.StatusSuccess {
		o := res.Record.Offsets
		grp.gr_name = b.str(o.Name)
		grp.gr_passwd = b.str(o.Passwd)
		grp.gr_gid = C.gid_t(res.Record.Entry.GID)
		grp.gr_mem = b.pointerArray(o.Members, len(res.Record.Entry.Users))
	}
	return result(res, errnop)
}

//export _nss_sql_initgroups_dyn
func _nss_sql_initgroups_dyn(user *C.char, group C.gid_t, start, size *C.long, groupsp **C.gid_t, limit C.long, errnop *C.int) C.enum_nss_status {
	return withModule(errnop, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		var current []uint32
		if *start > 0 {
			current = gidList(unsafe.Slice(*groupsp, int(*start)))
		}

		res := m.InitGroupsDyn(ctx, C.GoString(user), uint32(group), current, int(limit))
		if res.Status != nsscore.StatusSuccess {
			if res.Errno != 0 {
				setErrno(errnop, C.int(res.Errno))
			}
			return status(res.Status)
		}

		if newSize := grownSize(len(res.Groups), int(*size), int(limit)); newSize != int(*size) {
			p := C.realloc(unsafe.Pointer(*groupsp), C.size_t(newSize)*C.size_t(unsafe.Sizeof(C.gid_t(0))))
			if p == nil {
				setErrno(errnop, C.ENOMEM)
				return status(nsscore.StatusTryAgain)
			}
			*groupsp = (*C.gid_t)(p)
			*size = C.long(newSize)
		}

		*start = C.long(appendGids(unsafe.Slice(*groupsp, int(*size)), res.Groups, int(*start)))
		return status(res.Status)
	})
}
