package orchestrator

import (
	"sync"
	"testing"
	"time"
)

func TestLockAppReturnsSameMutexForSameApp(t *testing.T) {
	o := &Orchestrator{appLocks: make(map[string]*sync.Mutex)}

	a := o.lockApp("cam")
	b := o.lockApp("cam")
	if a != b {
		t.Fatal("lockApp returned distinct mutexes for the same app name")
	}
}

func TestLockAppSerializesSameApp(t *testing.T) {
	o := &Orchestrator{appLocks: make(map[string]*sync.Mutex)}

	lock := o.lockApp("cam")
	lock.Lock()

	unlocked := make(chan struct{})
	go func() {
		second := o.lockApp("cam")
		second.Lock()
		close(unlocked)
		second.Unlock()
	}()

	select {
	case <-unlocked:
		t.Fatal("second lockApp acquired the lock while the first held it")
	case <-time.After(50 * time.Millisecond):
	}

	lock.Unlock()

	select {
	case <-unlocked:
	case <-time.After(time.Second):
		t.Fatal("second lockApp never acquired the lock after release")
	}
}

func TestLockAppDoesNotSerializeDifferentApps(t *testing.T) {
	o := &Orchestrator{appLocks: make(map[string]*sync.Mutex)}

	camLock := o.lockApp("cam")
	camLock.Lock()
	defer camLock.Unlock()

	done := make(chan struct{})
	go func() {
		other := o.lockApp("mic")
		other.Lock()
		other.Unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for a different app was blocked by cam's lock")
	}
}
