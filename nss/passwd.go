package main

/*
#include <errno.h>
#include <nss.h>
#include <pwd.h>
*/
import "C"

import (
	"context"

	nsscore "github.com/ubuntu/nss-sql/internal/nss"
)

//export _nss_sql_setpwent
func _nss_sql_setpwent(_ C.int) C.enum_nss_status {
	return withModule(nil, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		return status(m.SetPwent(ctx))
	})
}

//export _nss_sql_endpwent
func _nss_sql_endpwent() C.enum_nss_status {
	return withModule(nil, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		return status(m.EndPwent(ctx))
	})
}

//export _nss_sql_getpwent_r
func _nss_sql_getpwent_r(result *C.struct_passwd, buf *C.char, buflen C.size_t, errnop *C.int) C.enum_nss_status {
	return withModule(errnop, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		b := newCallerBuffer(buf, buflen)
		return fillPasswd(m.GetPwent(ctx, b.buf), b, result, errnop)
	})
}

//export _nss_sql_getpwnam_r
func _nss_sql_getpwnam_r(name *C.char, result *C.struct_passwd, buf *C.char, buflen C.size_t, errnop *C.int) C.enum_nss_status {
	return withModule(errnop, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		b := newCallerBuffer(buf, buflen)
		return fillPasswd(m.GetPwnam(ctx, C.GoString(name), b.buf), b, result, errnop)
	})
}

//export _nss_sql_getpwuid_r
func _nss_sql_getpwuid_r(uid C.uid_t, result *C.struct_passwd, buf *C.char, buflen C.size_t, errnop *C.int) C.enum_nss_status {
	return withModule(errnop, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		b := newCallerBuffer(buf, buflen)
		return fillPasswd(m.GetPwuid(ctx, uint32(uid), b.buf), b, result, errnop)
	})
}

func fillPasswd(res nsscore.Result[nsscore.UserRecord], b callerBuffer, pwd *C.struct_passwd, errnop *C.int) C.enum_nss_status {
	if res.Status == nsscore.StatusSuccess {
		o := res.Record.Offsets
		pwd.pw_name = b.str(o.Name)
		pwd.pw_passwd = b.str(o.Passwd)
		pwd.pw_uid = C.uid_t(res.Record.Entry.UID)
		pwd.pw_gid = C.gid_t(res.Record.Entry.GID)
		pwd.pw_gecos = b.str(o.Gecos)
		pwd.pw_dir = b.str(o.Dir)
		pwd.pw_shell = b.str(o.Shell)
	}
	return result(res, errnop)
}
