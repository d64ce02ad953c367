package credentials

import (
	"os"
	"testing"
)

func TestSetGetDelete(t *testing.T) {
	t.Setenv(EnvToken, "")
	s := &Store{Dir: t.TempDir()}

	ti, err := s.Get()
	if err != nil || ti != nil {
		t.Fatalf("empty store: ti=%+v err=%v", ti, err)
	}

	if err := s.Set("Bearer abc123"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	info, err := os.Stat(s.path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm: got %o, want 600", perm)
	}

	tok, err := s.Token()
	if err != nil || tok != "abc123" {
		t.Fatalf("Token: got %q err=%v", tok, err)
	}

	if err := s.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
	if tok, _ := s.Token(); tok != "" {
		t.Errorf("token after delete: %q", tok)
	}
}

func TestEnvOverride(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	if err := s.Set("from-file"); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvToken, "bearer from-env")
	ti, err := s.Get()
	if err != nil {
		t.Fatal(err)
	}
	if ti.Token != "from-env" || ti.Source != "env" {
		t.Errorf("got %+v", ti)
	}
}

func TestSetEmpty(t *testing.T) {
	s := &Store{Dir: t.TempDir()}
	if err := s.Set("   "); err == nil {
		t.Fatal("expected error for blank token")
	}
}
