package nss_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ubuntu/nss-sql/internal/backend"
	"github.com/ubuntu/nss-sql/internal/backend/testbackend"
	"github.com/ubuntu/nss-sql/internal/nss"
	"golang.org/x/sys/unix"
)

func TestSingleLookupsCloseTheirCategory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := map[string]struct {
		lookup func(*nss.Module) nss.Status

		wantStatus   nss.Status
		wantCategory backend.Category
	}{
		"Getpwnam_on_existing_user": {
			lookup:     func(m *nss.Module) nss.Status { return m.GetPwnam(ctx, "alice", newBuffer()).Status },
			wantStatus: nss.StatusSuccess, wantCategory: backend.CategoryUserGroup,
		},
		"Getpwuid_on_existing_user": {
			lookup:     func(m *nss.Module) nss.Status { return m.GetPwuid(ctx, 1001, newBuffer()).Status },
			wantStatus: nss.StatusSuccess, wantCategory: backend.CategoryUserGroup,
		},
		"Getgrnam_on_existing_group": {
			lookup:     func(m *nss.Module) nss.Status { return m.GetGrnam(ctx, "devs", newBuffer()).Status },
			wantStatus: nss.StatusSuccess, wantCategory: backend.CategoryUserGroup,
		},
		"Getgrgid_on_existing_group": {
			lookup:     func(m *nss.Module) nss.Status { return m.GetGrgid(ctx, 0, newBuffer()).Status },
			wantStatus: nss.StatusSuccess, wantCategory: backend.CategoryUserGroup,
		},
		"Getspnam_on_existing_entry": {
			lookup:     func(m *nss.Module) nss.Status { return m.GetSpnam(ctx, "bob", newBuffer()).Status },
			wantStatus: nss.StatusSuccess, wantCategory: backend.CategoryShadow,
		},
		"Initgroups_dyn_on_member": {
			lookup:     func(m *nss.Module) nss.Status { return m.InitGroupsDyn(ctx, "bob", 1001, nil, 0).Status },
			wantStatus: nss.StatusSuccess, wantCategory: backend.CategoryUserGroup,
		},

		"Getpwnam_on_missing_user": {
			lookup:     func(m *nss.Module) nss.Status { return m.GetPwnam(ctx, "nobody", newBuffer()).Status },
			wantStatus: nss.StatusNotFound, wantCategory: backend.CategoryUserGroup,
		},
		"Getgrgid_on_missing_group": {
			lookup:     func(m *nss.Module) nss.Status { return m.GetGrgid(ctx, 4242, newBuffer()).Status },
			wantStatus: nss.StatusNotFound, wantCategory: backend.CategoryUserGroup,
		},
		"Getspnam_on_missing_entry": {
			lookup:     func(m *nss.Module) nss.Status { return m.GetSpnam(ctx, "root", newBuffer()).Status },
			wantStatus: nss.StatusNotFound, wantCategory: backend.CategoryShadow,
		},
		"Getpwnam_with_a_too_small_buffer": {
			lookup:     func(m *nss.Module) nss.Status { return m.GetPwnam(ctx, "bob", make([]byte, 8)).Status },
			wantStatus: nss.StatusTryAgain, wantCategory: backend.CategoryUserGroup,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m, b := newModule(t)

			got := tc.lookup(m)
			require.Equal(t, tc.wantStatus, got, "Lookup should return the expected status")

			for _, c := range backend.Categories {
				require.False(t, m.IsOpen(c), "Category %v should be closed after a single lookup", c)
			}
			calls := b.Calls()
			require.Equal(t, "open "+tc.wantCategory.String(), calls[0], "Lookup should open its category first")
			require.Equal(t, "close "+tc.wantCategory.String(), calls[len(calls)-1], "Lookup should close its category last")
		})
	}
}

func TestEmptyNamesAreNotLookedUp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, b := newModule(t)

	require.Equal(t, nss.StatusNotFound, m.GetPwnam(ctx, "", newBuffer()).Status, "Getpwnam should not find an empty name")
	require.Equal(t, nss.StatusNotFound, m.GetGrnam(ctx, "", newBuffer()).Status, "Getgrnam should not find an empty name")
	require.Equal(t, nss.StatusNotFound, m.GetSpnam(ctx, "", newBuffer()).Status, "Getspnam should not find an empty name")
	require.Empty(t, b.Calls(), "Empty names should not reach the backend")
}

func TestGetentAutoStartsTheEnumeration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tests := map[string]struct {
		getent   func(*nss.Module) (nss.Status, string)
		category backend.Category
		query    backend.Query

		wantName string
	}{
		"Getpwent": {
			getent: func(m *nss.Module) (nss.Status, string) {
				res := m.GetPwent(ctx, newBuffer())
				return res.Status, res.Record.Entry.Name
			},
			category: backend.CategoryUserGroup, query: backend.QueryAllUsers, wantName: "root",
		},
		"Getgrent": {
			getent: func(m *nss.Module) (nss.Status, string) {
				res := m.GetGrent(ctx, newBuffer())
				return res.Status, res.Record.Entry.Name
			},
			category: backend.CategoryUserGroup, query: backend.QueryAllGroups, wantName: "root",
		},
		"Getspent": {
			getent: func(m *nss.Module) (nss.Status, string) {
				res := m.GetSpent(ctx, newBuffer())
				return res.Status, res.Record.Entry.Name
			},
			category: backend.CategoryShadow, query: backend.QueryAllShadow, wantName: "alice",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m, b := newModule(t)

			status, got := tc.getent(m)
			require.Equal(t, nss.StatusSuccess, status, "First get-next should succeed without an explicit begin")
			require.Equal(t, tc.wantName, got, "First get-next should return the first record")

			require.True(t, m.IsOpen(tc.category), "Category should stay open during the enumeration")
			q, ok := m.ActiveQuery(tc.category)
			require.True(t, ok, "An enumeration should be active")
			require.Equal(t, tc.query, q, "Active enumeration should be on the expected query")
			require.Equal(t, []string{
				"open " + tc.category.String(),
				"prepare " + tc.category.String() + " " + string(tc.query),
			}, b.Calls(), "Get-next should open and prepare the category once")
		})
	}
}

func TestEnumerationIsExhaustive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, _ := newModule(t)

	require.Equal(t, nss.StatusSuccess, m.SetPwent(ctx), "Setpwent should succeed")

	var got []string
	for {
		res := m.GetPwent(ctx, newBuffer())
		if res.Status != nss.StatusSuccess {
			require.Equal(t, nss.StatusNotFound, res.Status, "Enumeration should end with NotFound")
			require.Equal(t, unix.ENOENT, res.Errno, "Exhausted enumeration should report ENOENT")
			break
		}
		got = append(got, res.Record.Entry.Name)
	}
	require.Equal(t, []string{"root", "alice", "bob"}, got, "Enumeration should return every user once, in order")

	// Exhaustion keeps the category until the enumeration is ended.
	require.Equal(t, nss.StatusNotFound, m.GetPwent(ctx, newBuffer()).Status, "Exhausted enumeration should keep returning NotFound")
	require.True(t, m.IsOpen(backend.CategoryUserGroup), "Exhausted enumeration should keep the category open")

	require.Equal(t, nss.StatusSuccess, m.EndPwent(ctx), "Endpwent should succeed")
	require.False(t, m.IsOpen(backend.CategoryUserGroup), "Endpwent should close the category")
	_, ok := m.ActiveQuery(backend.CategoryUserGroup)
	require.False(t, ok, "Endpwent should discard the enumeration")
}

func TestEndWithoutEnumerationIsANoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, b := newModule(t)

	require.Equal(t, nss.StatusSuccess, m.EndPwent(ctx), "Endpwent should succeed on a closed category")
	require.Equal(t, nss.StatusSuccess, m.EndGrent(ctx), "Endgrent should succeed on a closed category")
	require.Equal(t, nss.StatusSuccess, m.EndSpent(ctx), "Endspent should succeed on a closed category")
	require.Empty(t, b.Calls(), "Ending without enumeration should not reach the backend")
}

func TestSetentRestartsTheEnumeration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, b := newModule(t)

	require.Equal(t, "root", m.GetGrent(ctx, newBuffer()).Record.Entry.Name, "Setup: first group should be root")
	require.Equal(t, "devs", m.GetGrent(ctx, newBuffer()).Record.Entry.Name, "Setup: second group should be devs")

	require.Equal(t, nss.StatusSuccess, m.SetGrent(ctx), "Setgrent should succeed during an enumeration")
	require.Equal(t, "root", m.GetGrent(ctx, newBuffer()).Record.Entry.Name, "Setgrent should restart from the first group")

	require.Equal(t, []string{
		"open usergroup",
		"prepare usergroup allgroups",
		"prepare usergroup allgroups",
	}, b.Calls(), "Setgrent should reuse the open connection")
}

func TestNextOnAnotherQuerySupersedesTheEnumeration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, b := newModule(t)

	require.Equal(t, "root", m.GetPwent(ctx, newBuffer()).Record.Entry.Name, "Setup: first user should be root")
	require.Equal(t, "alice", m.GetPwent(ctx, newBuffer()).Record.Entry.Name, "Setup: second user should be alice")

	require.Equal(t, "root", m.GetGrent(ctx, newBuffer()).Record.Entry.Name, "Getgrent should start the groups enumeration")
	q, _ := m.ActiveQuery(backend.CategoryUserGroup)
	require.Equal(t, backend.QueryAllGroups, q, "Groups enumeration should supersede the users one")

	require.Equal(t, "root", m.GetPwent(ctx, newBuffer()).Record.Entry.Name, "Getpwent should restart the users enumeration")

	require.Equal(t, []string{
		"open usergroup",
		"prepare usergroup allusers",
		"prepare usergroup allgroups",
		"prepare usergroup allusers",
	}, b.Calls(), "Superseding should reuse the open connection")
}

func TestSingleLookupDiscardsTheEnumerationOfItsCategory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, _ := newModule(t)

	require.Equal(t, "root", m.GetPwent(ctx, newBuffer()).Record.Entry.Name, "Setup: first user should be root")
	require.Equal(t, "alice", m.GetPwent(ctx, newBuffer()).Record.Entry.Name, "Setup: second user should be alice")

	require.Equal(t, nss.StatusSuccess, m.GetGrnam(ctx, "ops", newBuffer()).Status, "Getgrnam should succeed during an enumeration")
	require.False(t, m.IsOpen(backend.CategoryUserGroup), "Getgrnam should close the category")
	_, ok := m.ActiveQuery(backend.CategoryUserGroup)
	require.False(t, ok, "Getgrnam should discard the enumeration")

	require.Equal(t, "root", m.GetPwent(ctx, newBuffer()).Record.Entry.Name, "Getpwent should start a new enumeration")
}

func TestCategoriesAreIndependent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Shadow_lookup_keeps_users_enumeration", func(t *testing.T) {
		t.Parallel()

		m, _ := newModule(t)
		require.Equal(t, "root", m.GetPwent(ctx, newBuffer()).Record.Entry.Name, "Setup: first user should be root")

		require.Equal(t, nss.StatusSuccess, m.GetSpnam(ctx, "alice", newBuffer()).Status, "Getspnam should succeed")
		require.False(t, m.IsOpen(backend.CategoryShadow), "Getspnam should close the shadow category")
		require.True(t, m.IsOpen(backend.CategoryUserGroup), "Getspnam should not close the user and group category")

		require.Equal(t, "alice", m.GetPwent(ctx, newBuffer()).Record.Entry.Name, "Users enumeration should continue")
	})

	t.Run("User_lookup_keeps_shadow_enumeration", func(t *testing.T) {
		t.Parallel()

		m, _ := newModule(t)
		require.Equal(t, "alice", m.GetSpent(ctx, newBuffer()).Record.Entry.Name, "Setup: first entry should be alice")

		require.Equal(t, nss.StatusSuccess, m.GetPwuid(ctx, 0, newBuffer()).Status, "Getpwuid should succeed")
		require.Equal(t, nss.StatusSuccess, m.EndGrent(ctx), "Endgrent should succeed")
		require.True(t, m.IsOpen(backend.CategoryShadow), "User and group calls should not close the shadow category")

		require.Equal(t, "bob", m.GetSpent(ctx, newBuffer()).Record.Entry.Name, "Shadow enumeration should continue")
	})

	t.Run("Endspent_keeps_groups_enumeration", func(t *testing.T) {
		t.Parallel()

		m, _ := newModule(t)
		require.Equal(t, "root", m.GetGrent(ctx, newBuffer()).Record.Entry.Name, "Setup: first group should be root")

		require.Equal(t, nss.StatusSuccess, m.EndSpent(ctx), "Endspent should succeed")
		require.Equal(t, "devs", m.GetGrent(ctx, newBuffer()).Record.Entry.Name, "Groups enumeration should continue")
	})
}

func TestBufferTooSmall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("Single_lookup_reports_the_required_size", func(t *testing.T) {
		t.Parallel()

		m, _ := newModule(t)

		res := m.GetPwnam(ctx, "bob", make([]byte, 8))
		require.Equal(t, nss.StatusTryAgain, res.Status, "Small buffer should ask to try again")
		require.Equal(t, unix.ERANGE, res.Errno, "Small buffer should report ERANGE")
		require.Equal(t, bobSize, res.Required, "Small buffer should report the required size")
		require.ErrorIs(t, res.Err(), unix.ERANGE, "Result error should match ERANGE")

		res = m.GetPwnam(ctx, "bob", make([]byte, res.Required))
		require.Equal(t, nss.StatusSuccess, res.Status, "A buffer of the required size should be enough")
		require.Equal(t, bobSize, res.Record.Size, "Record should use the whole buffer")
	})

	t.Run("Enumeration_does_not_skip_the_record", func(t *testing.T) {
		t.Parallel()

		m, b := newModule(t, testbackend.WithUsers(bob, alice))

		res := m.GetPwent(ctx, make([]byte, 8))
		require.Equal(t, nss.StatusTryAgain, res.Status, "Small buffer should ask to try again")
		require.Equal(t, bobSize, res.Required, "Small buffer should report the required size")
		require.True(t, m.HasPending(backend.CategoryUserGroup), "Record should be kept for the retry")
		require.True(t, m.IsOpen(backend.CategoryUserGroup), "Small buffer should keep the enumeration open")

		res = m.GetPwent(ctx, make([]byte, 8))
		require.Equal(t, nss.StatusTryAgain, res.Status, "Retrying with a small buffer should ask to try again")

		require.Equal(t, "bob", m.GetPwent(ctx, newBuffer()).Record.Entry.Name, "Retry should return the record that did not fit")
		require.False(t, m.HasPending(backend.CategoryUserGroup), "Returned record should not be kept")
		require.Equal(t, "alice", m.GetPwent(ctx, newBuffer()).Record.Entry.Name, "Enumeration should continue after the retry")
		require.Equal(t, nss.StatusNotFound, m.GetPwent(ctx, newBuffer()).Status, "Enumeration should end after the last record")

		require.Len(t, b.Calls(), 2, "Retries should not reopen nor prepare again")
	})
}

func TestUnavailableBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	refused := errors.New("connection refused")
	tests := map[string]struct {
		opts []testbackend.Option
		call func(*nss.Module) (nss.Status, unix.Errno)

		wantStatus nss.Status
		wantErrno  unix.Errno
	}{
		"Getpwnam_when_open_fails": {
			opts: []testbackend.Option{testbackend.WithOpenError(backend.CategoryUserGroup, refused)},
			call: func(m *nss.Module) (nss.Status, unix.Errno) {
				res := m.GetPwnam(ctx, "alice", newBuffer())
				return res.Status, res.Errno
			},
			wantStatus: nss.StatusUnavail, wantErrno: unix.ENOENT,
		},
		"Getgrent_when_open_fails": {
			opts: []testbackend.Option{testbackend.WithOpenError(backend.CategoryUserGroup, refused)},
			call: func(m *nss.Module) (nss.Status, unix.Errno) {
				res := m.GetGrent(ctx, newBuffer())
				return res.Status, res.Errno
			},
			wantStatus: nss.StatusUnavail, wantErrno: unix.ENOENT,
		},
		"Setspent_when_open_fails": {
			opts: []testbackend.Option{testbackend.WithOpenError(backend.CategoryShadow, refused)},
			call: func(m *nss.Module) (nss.Status, unix.Errno) {
				return m.SetSpent(ctx), 0
			},
			wantStatus: nss.StatusUnavail,
		},
		"Initgroups_dyn_when_open_fails": {
			opts: []testbackend.Option{testbackend.WithOpenError(backend.CategoryUserGroup, refused)},
			call: func(m *nss.Module) (nss.Status, unix.Errno) {
				res := m.InitGroupsDyn(ctx, "bob", 1001, nil, 0)
				return res.Status, res.Errno
			},
			wantStatus: nss.StatusUnavail, wantErrno: unix.ENOENT,
		},
		"Setpwent_when_prepare_fails": {
			opts: []testbackend.Option{testbackend.WithPrepareError(refused)},
			call: func(m *nss.Module) (nss.Status, unix.Errno) {
				return m.SetPwent(ctx), 0
			},
			wantStatus: nss.StatusUnavail,
		},
		"Getpwent_when_prepare_fails": {
			opts: []testbackend.Option{testbackend.WithPrepareError(refused)},
			call: func(m *nss.Module) (nss.Status, unix.Errno) {
				res := m.GetPwent(ctx, newBuffer())
				return res.Status, res.Errno
			},
			wantStatus: nss.StatusUnavail, wantErrno: unix.EIO,
		},
		"Getspent_when_reading_fails_with_an_errno": {
			opts: []testbackend.Option{testbackend.WithNextError(unix.ECONNRESET)},
			call: func(m *nss.Module) (nss.Status, unix.Errno) {
				res := m.GetSpent(ctx, newBuffer())
				return res.Status, res.Errno
			},
			wantStatus: nss.StatusUnavail, wantErrno: unix.ECONNRESET,
		},
		"Getgrgid_when_query_fails": {
			opts: []testbackend.Option{testbackend.WithLookupError(refused)},
			call: func(m *nss.Module) (nss.Status, unix.Errno) {
				res := m.GetGrgid(ctx, 0, newBuffer())
				return res.Status, res.Errno
			},
			wantStatus: nss.StatusUnavail, wantErrno: unix.EIO,
		},
		"Initgroups_dyn_when_query_fails": {
			opts: []testbackend.Option{testbackend.WithLookupError(unix.ETIMEDOUT)},
			call: func(m *nss.Module) (nss.Status, unix.Errno) {
				res := m.InitGroupsDyn(ctx, "bob", 1001, nil, 0)
				return res.Status, res.Errno
			},
			wantStatus: nss.StatusUnavail, wantErrno: unix.ETIMEDOUT,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m, _ := newModule(t, tc.opts...)

			status, errno := tc.call(m)
			require.Equal(t, tc.wantStatus, status, "Call should return the expected status")
			require.Equal(t, tc.wantErrno, errno, "Call should return the expected errno")

			for _, c := range backend.Categories {
				require.False(t, m.IsOpen(c), "Category %v should be closed after a failure", c)
				_, ok := m.ActiveQuery(c)
				require.False(t, ok, "No enumeration should survive a failure on %v", c)
			}
		})
	}
}

func TestUnavailableCategoryRecovers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, b := newModule(t, testbackend.WithOpenError(backend.CategoryShadow, errors.New("permission denied")))

	require.Equal(t, nss.StatusUnavail, m.GetSpnam(ctx, "alice", newBuffer()).Status, "Shadow lookup should be unavailable")
	require.Equal(t, nss.StatusSuccess, m.GetPwnam(ctx, "alice", newBuffer()).Status, "User lookup should not be affected")
	require.Equal(t, nss.StatusUnavail, m.GetSpent(ctx, newBuffer()).Status, "Shadow enumeration should be unavailable")

	require.Equal(t, []string{
		"open shadow",
		"open usergroup",
		"lookup usergroup alice",
		"close usergroup",
		"open shadow",
	}, b.Calls(), "Every call should try to open its category again")
}
