package nss_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ubuntu/nss-sql/internal/backend/testbackend"
	"github.com/ubuntu/nss-sql/internal/nss"
	"github.com/ubuntu/nss-sql/internal/users/types"
)

var (
	root  = types.UserEntry{Name: "root", Passwd: "x", UID: 0, GID: 0, Gecos: "root", Dir: "/root", Shell: "/bin/bash"}
	alice = types.UserEntry{Name: "alice", Passwd: "x", UID: 1000, GID: 1000, Gecos: "Alice", Dir: "/home/alice", Shell: "/bin/bash"}
	bob   = types.UserEntry{Name: "bob", Passwd: "x", UID: 1001, GID: 1001, Gecos: "Bob", Dir: "/home/bob", Shell: "/bin/bash"}

	rootGroup = types.GroupEntry{Name: "root", Passwd: "x", GID: 0}
	devs      = types.GroupEntry{Name: "devs", Passwd: "x", GID: 2000, Users: []string{"alice", "bob"}}
	ops       = types.GroupEntry{Name: "ops", Passwd: "x", GID: 2001, Users: []string{"bob"}}

	aliceShadow = types.ShadowEntry{Name: "alice", Passwd: "$6$salt$hash", LastPwdChange: 19000, MinPwdAge: 0,
		MaxPwdAge: 99999, PwdWarnPeriod: 7, PwdInactivity: -1, ExpirationDate: -1}
	bobShadow = types.ShadowEntry{Name: "bob", Passwd: "!", LastPwdChange: 19001, MinPwdAge: -1,
		MaxPwdAge: -1, PwdWarnPeriod: -1, PwdInactivity: -1, ExpirationDate: -1}
)

// bobSize is the number of bytes needed to pack bob.
const bobSize = len("bob") + len("x") + len("Bob") + len("/home/bob") + len("/bin/bash") + 5

// newModule returns a module over an in-memory backend holding the default fixtures,
// overridden by args.
func newModule(t *testing.T, args ...testbackend.Option) (*nss.Module, *testbackend.Backend) {
	t.Helper()

	opts := []testbackend.Option{
		testbackend.WithUsers(root, alice, bob),
		testbackend.WithGroups(rootGroup, devs, ops),
		testbackend.WithShadows(aliceShadow, bobShadow),
		testbackend.WithMembership("bob", 2000, 2001),
	}
	b := testbackend.New(append(opts, args...)...)

	m, err := nss.New(b)
	require.NoError(t, err, "Setup: New should not fail")
	t.Cleanup(func() { m.Close(context.Background()) })

	return m, b
}

func newBuffer() []byte {
	return make([]byte, nss.DefaultBufferSize)
}

// countingGuard counts the locks taken and records nested locking.
// It must only be used from a single goroutine.
type countingGuard struct {
	depth     int
	locks     int
	unlocks   int
	reentrant bool
}

func (g *countingGuard) Lock() {
	g.depth++
	g.locks++
	if g.depth > 1 {
		g.reentrant = true
	}
}

func (g *countingGuard) Unlock() {
	g.depth--
	g.unlocks++
}

type observation struct {
	op     string
	status nss.Status
}

type recordingObserver struct {
	mu           sync.Mutex
	observations []observation
}

func (o *recordingObserver) ObserveLookup(op string, status nss.Status, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observations = append(o.observations, observation{op: op, status: status})
}
