package main

/*
#include <errno.h>
#include <nss.h>
#include <shadow.h>
*/
import "C"

import (
	"context"

	nsscore "github.com/ubuntu/nss-sql/internal/nss"
)

//export _nss_sql_setspent
func _nss_sql_setspent(_ C.int) C.enum_nss_status {
	return withModule(nil, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		return status(m.SetSpent(ctx))
	})
}

//export _nss_sql_endspent
func _nss_sql_endspent() C.enum_nss_status {
	return withModule(nil, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		return status(m.EndSpent(ctx))
	})
}

//export _nss_sql_getspent_r
func _nss_sql_getspent_r(result *C.struct_spwd, buf *C.char, buflen C.size_t, errnop *C.int) C.enum_nss_status {
	return withModule(errnop, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		b := newCallerBuffer(buf, buflen)
		return fillShadow(m.GetSpent(ctx, b.buf), b, result, errnop)
	})
}

//export _nss_sql_getspnam_r
func _nss_sql_getspnam_r(name *C.char, result *C.struct_spwd, buf *C.char, buflen C.size_t, errnop *C.int) C.enum_nss_status {
	return withModule(errnop, func(ctx context.Context, m *nsscore.Module) C.enum_nss_status {
		b := newCallerBuffer(buf, buflen)
		return fillShadow(m.GetSpnam(ctx, C.GoString(name), b.buf), b, result, errnop)
	})
}

func fillShadow(res nsscore.Result[nsscore.ShadowRecord], b callerBuffer, sp *C.struct_spwd, errnop *C.int) C.enum_nss_status {
	if res.Status == nsscore.StatusSuccess {
		e := res.Record.Entry
		sp.sp_namp = b.str(res.Record.Offsets.Name)
		sp.sp_pwdp = b.str(res.Record.Offsets.Passwd)
		sp.sp_lstchg = C.long(e.LastPwdChange)
		sp.sp_min = C.long(e.MinPwdAge)
		sp.sp_max = C.long(e.MaxPwdAge)
		sp.sp_warn = C.long(e.PwdWarnPeriod)
		sp.sp_inact = C.long(e.PwdInactivity)
		sp.sp_expire = C.long(e.ExpirationDate)
		sp.sp_flag = C.ulong(e.Flag)
		// An empty flag field reads as all bits set, like in sgetspent(3).
		if e.Flag == 0 {
			sp.sp_flag = ^C.ulong(0)
		}
	}
	return result(res, errnop)
}
