package handler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/searchktools/tinyhttpd/internal/httpfsm"
	"github.com/searchktools/tinyhttpd/internal/users"
)

type fakePersist struct{ calls int }

func (f *fakePersist) InsertUser(name, password string) error {
	f.calls++
	return nil
}

func writeRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{
		"register.html", "log.html", "picture.html", "video.html", "fans.html",
		"welcome.html", "logError.html", "registerError.html",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newConnWithURL(t *testing.T, docRoot, url, body string) *httpfsm.Connection {
	t.Helper()
	c := &httpfsm.Connection{}
	c.Init(docRoot)
	c.URL = url
	c.Body = body
	return c
}

func TestDispatchDigitRoutes(t *testing.T) {
	dir := writeRoot(t)
	d := &Dispatcher{DocRoot: dir, Users: users.New()}

	cases := map[string]string{
		"/0": "register.html",
		"/1": "log.html",
		"/5": "picture.html",
		"/6": "video.html",
		"/7": "fans.html",
	}
	for url, want := range cases {
		c := newConnWithURL(t, dir, url, "")
		outcome := d.Handle(c)
		if outcome != httpfsm.FileRequest {
			t.Fatalf("%s: expected FileRequest, got %v", url, outcome)
		}
		if string(c.FileMap) != want {
			t.Errorf("%s: expected body %q, got %q", url, want, c.FileMap)
		}
	}
}

func TestDispatchDirectFile(t *testing.T) {
	dir := writeRoot(t)
	d := &Dispatcher{DocRoot: dir, Users: users.New()}

	c := newConnWithURL(t, dir, "/welcome.html", "")
	if outcome := d.Handle(c); outcome != httpfsm.FileRequest {
		t.Fatalf("expected FileRequest, got %v", outcome)
	}
}

func TestLoginCheckSuccess(t *testing.T) {
	dir := writeRoot(t)
	store := users.New()
	store.Load(map[string]string{"alice": "secret"})
	d := &Dispatcher{DocRoot: dir, Users: store}

	c := newConnWithURL(t, dir, "/2", "user=alice&password=secret")
	outcome := d.Handle(c)
	if outcome != httpfsm.FileRequest || string(c.FileMap) != "welcome.html" {
		t.Fatalf("expected welcome.html, got outcome=%v body=%q", outcome, c.FileMap)
	}
}

func TestLoginCheckFailure(t *testing.T) {
	dir := writeRoot(t)
	store := users.New()
	store.Load(map[string]string{"alice": "secret"})
	d := &Dispatcher{DocRoot: dir, Users: store}

	c := newConnWithURL(t, dir, "/2", "user=alice&password=wrong")
	outcome := d.Handle(c)
	if outcome != httpfsm.FileRequest || string(c.FileMap) != "logError.html" {
		t.Fatalf("expected logError.html, got outcome=%v body=%q", outcome, c.FileMap)
	}
}

func TestRegisterCheckNewUser(t *testing.T) {
	dir := writeRoot(t)
	store := users.New()
	p := &fakePersist{}
	d := &Dispatcher{DocRoot: dir, Users: store, Persist: p}

	c := newConnWithURL(t, dir, "/3", "user=bob&password=pw123")
	outcome := d.Handle(c)
	if outcome != httpfsm.FileRequest || string(c.FileMap) != "log.html" {
		t.Fatalf("expected log.html, got outcome=%v body=%q", outcome, c.FileMap)
	}
	if p.calls != 1 {
		t.Errorf("expected InsertUser to be called once, got %d", p.calls)
	}
	if !store.Exists("bob") {
		t.Error("expected bob to be registered in the cache")
	}
}

func TestRegisterCheckAcceptsPasswdField(t *testing.T) {
	dir := writeRoot(t)
	store := users.New()
	p := &fakePersist{}
	d := &Dispatcher{DocRoot: dir, Users: store, Persist: p}

	c := newConnWithURL(t, dir, "/3", "user=alice&passwd=secret1")
	outcome := d.Handle(c)
	if outcome != httpfsm.FileRequest || string(c.FileMap) != "log.html" {
		t.Fatalf("expected log.html, got outcome=%v body=%q", outcome, c.FileMap)
	}
	if !store.Exists("alice") {
		t.Error("expected alice to be registered in the cache")
	}
}

func TestRegisterCheckDuplicateUser(t *testing.T) {
	dir := writeRoot(t)
	store := users.New()
	store.Load(map[string]string{"bob": "old"})
	p := &fakePersist{}
	d := &Dispatcher{DocRoot: dir, Users: store, Persist: p}

	c := newConnWithURL(t, dir, "/3", "user=bob&password=new")
	outcome := d.Handle(c)
	if outcome != httpfsm.FileRequest || string(c.FileMap) != "registerError.html" {
		t.Fatalf("expected registerError.html, got outcome=%v body=%q", outcome, c.FileMap)
	}
	if p.calls != 0 {
		t.Error("expected InsertUser not to be called for a duplicate name")
	}
}

func TestDecodeCredentialsMalformedBody(t *testing.T) {
	if _, _, ok := decodeCredentials("not-a-form-body"); ok {
		t.Error("expected malformed body to fail decoding")
	}
	if _, _, ok := decodeCredentials("user=onlyname"); ok {
		t.Error("expected a body missing the password field to fail decoding")
	}
}

func TestDecodeCredentialsHappyPath(t *testing.T) {
	name, password, ok := decodeCredentials("user=alice&password=secret")
	if !ok || name != "alice" || password != "secret" {
		t.Fatalf("got name=%q password=%q ok=%v", name, password, ok)
	}
}

func TestDecodeCredentialsAcceptsPasswdField(t *testing.T) {
	name, password, ok := decodeCredentials("user=alice&passwd=secret1")
	if !ok || name != "alice" || password != "secret1" {
		t.Fatalf("got name=%q password=%q ok=%v", name, password, ok)
	}
}
