package nss

// lock acquires the guard and returns the state it protects.
//
// Every method of state assumes the guard is held. Entry points never call
// each other: logic shared between entry points lives on state, so that a
// call chain takes the guard exactly once.
func (m *Module) lock() *state {
	m.guard.Lock()
	return &m.st
}

func (m *Module) unlock() {
	m.guard.Unlock()
}
