package users

import "testing"

type fakePersist struct {
	inserted map[string]string
	fail     bool
}

func newFakePersist() *fakePersist {
	return &fakePersist{inserted: make(map[string]string)}
}

func (f *fakePersist) InsertUser(name, password string) error {
	if f.fail {
		return errFake
	}
	f.inserted[name] = password
	return nil
}

var errFake = fakeErr("insert failed")

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

func TestLoadAndCheck(t *testing.T) {
	s := New()
	s.Load(map[string]string{"alice": "secret"})

	if !s.Check("alice", "secret") {
		t.Error("expected alice/secret to check out")
	}
	if s.Check("alice", "wrong") {
		t.Error("expected wrong password to fail")
	}
	if s.Check("bob", "anything") {
		t.Error("expected unknown user to fail")
	}
}

func TestRegisterNewUser(t *testing.T) {
	s := New()
	p := newFakePersist()

	ok, err := s.Register(p, "carol", "hunter2")
	if err != nil || !ok {
		t.Fatalf("expected registration to succeed, got ok=%v err=%v", ok, err)
	}
	if !s.Check("carol", "hunter2") {
		t.Error("expected newly registered user to be checkable")
	}
	if p.inserted["carol"] != "hunter2" {
		t.Error("expected InsertUser to be called with the new credentials")
	}
}

func TestRegisterDuplicateNameRejected(t *testing.T) {
	s := New()
	s.Load(map[string]string{"dave": "orig"})
	p := newFakePersist()

	ok, err := s.Register(p, "dave", "newpass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected duplicate registration to be rejected")
	}
	if _, called := p.inserted["dave"]; called {
		t.Error("expected InsertUser not to be called for a duplicate name")
	}
	if !s.Check("dave", "orig") {
		t.Error("expected original credentials to remain unchanged")
	}
}

func TestRegisterPersistFailureDoesNotCache(t *testing.T) {
	s := New()
	p := newFakePersist()
	p.fail = true

	ok, err := s.Register(p, "erin", "pw")
	if err == nil {
		t.Fatal("expected an error from InsertUser to propagate")
	}
	if ok {
		t.Error("expected ok=false on persist failure")
	}
	if s.Exists("erin") {
		t.Error("expected failed registration not to be cached")
	}
}
