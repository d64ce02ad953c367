package remote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Makepad-fr/tada-sync/internal/model"
	"github.com/Makepad-fr/tada-sync/internal/remote"
	"github.com/Makepad-fr/tada-sync/internal/remote/remotetest"
)

func newClient(t *testing.T, srv *remotetest.Server, opts ...remote.Option) *remote.Client {
	t.Helper()
	ts := remotetest.Start(t, srv)
	c, err := remote.New(ts.URL, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "   ", "ftp://example.com", "://bad"} {
		if _, err := remote.New(u); err == nil {
			t.Errorf("New(%q): expected error", u)
		}
	}
}

func TestListReturnsServerItems(t *testing.T) {
	srv := remotetest.New(
		model.Item{ID: "1", Title: "buy milk"},
		model.Item{ID: "2", Title: "walk dog", Completed: true},
	)
	c := newClient(t, srv)

	items, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 || items[0].Title != "buy milk" || !items[1].Completed {
		t.Fatalf("List: got %+v", items)
	}
}

func TestListRejected(t *testing.T) {
	srv := remotetest.New()
	srv.Fail(remote.PathList, remotetest.FailReject)
	c := newClient(t, srv)

	_, err := c.List(context.Background())
	if !errors.Is(err, remote.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestListStatusError(t *testing.T) {
	srv := remotetest.New()
	srv.Fail(remote.PathList, remotetest.FailStatus)
	c := newClient(t, srv)

	_, err := c.List(context.Background())
	var se *remote.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusInternalServerError || se.Op != "list" {
		t.Errorf("StatusError: %+v", se)
	}
}

func TestListAcceptsNumericIDs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"initTodo":[{"id":1697712000000,"title":"legacy","completed":false}]}`))
	}))
	defer ts.Close()

	c, err := remote.New(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	items, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != "1697712000000" {
		t.Fatalf("List: got %+v", items)
	}
}

func TestListSchemaMismatch(t *testing.T) {
	bodies := []string{
		`{"initTodo":[]}`,
		`{"success":true,"initTodo":[{"title":"no id"}]}`,
		`{"success":"yes"}`,
		`not json`,
	}
	for _, body := range bodies {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c, err := remote.New(ts.URL)
		if err != nil {
			t.Fatal(err)
		}
		_, err = c.List(context.Background())
		var se *remote.SchemaError
		if !errors.As(err, &se) {
			t.Errorf("body %s: expected SchemaError, got %v", body, err)
		}
		ts.Close()
	}
}

func TestCreateSendsItem(t *testing.T) {
	srv := remotetest.New()
	c := newClient(t, srv)

	it := model.Item{ID: "abc", Title: "buy milk"}
	if err := c.Create(context.Background(), it); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	reqs := srv.Requests(remote.PathSubmit)
	if len(reqs) != 1 {
		t.Fatalf("requests: got %d, want 1", len(reqs))
	}
	body := reqs[0].Body
	if body["id"] != "abc" || body["title"] != "buy milk" || body["completed"] != false {
		t.Errorf("body: %+v", body)
	}
	if got := reqs[0].Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("content type: %q", got)
	}
}

func TestCreateRejected(t *testing.T) {
	srv := remotetest.New()
	srv.Fail(remote.PathSubmit, remotetest.FailReject)
	c := newClient(t, srv)

	err := c.Create(context.Background(), model.Item{ID: "1", Title: "x"})
	if !errors.Is(err, remote.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if len(srv.Items()) != 0 {
		t.Errorf("server stored rejected item")
	}
}

func TestUpdateToggleAndTitle(t *testing.T) {
	srv := remotetest.New(model.Item{ID: "1", Title: "buy milk"})
	c := newClient(t, srv)
	ctx := context.Background()

	if err := c.UpdateToggle(ctx, "1", true); err != nil {
		t.Fatalf("UpdateToggle failed: %v", err)
	}
	if err := c.UpdateTitle(ctx, "1", "buy bread"); err != nil {
		t.Fatalf("UpdateTitle failed: %v", err)
	}
	got := srv.Items()
	if !got[0].Completed || got[0].Title != "buy bread" {
		t.Fatalf("server items: %+v", got)
	}
	body := srv.Requests(remote.PathUpdateToggle)[0].Body
	if body["id"] != "1" || body["completed"] != true {
		t.Errorf("toggle body: %+v", body)
	}
}

func TestUpdateTitleExplicitRejection(t *testing.T) {
	srv := remotetest.New(model.Item{ID: "1", Title: "a"})
	srv.Fail(remote.PathUpdateTitle, remotetest.FailReject)
	c := newClient(t, srv)

	if err := c.UpdateTitle(context.Background(), "1", "b"); !errors.Is(err, remote.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestUpdateTitleNonJSONBodyIsSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()
	c, err := remote.New(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.UpdateTitle(context.Background(), "1", "b"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	srv := remotetest.New()
	c := newClient(t, srv, remote.WithToken(func() (string, error) { return "s3cret", nil }))

	if _, err := c.List(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := srv.Requests(remote.PathList)[0].Header.Get("Authorization"); got != "Bearer s3cret" {
		t.Errorf("Authorization: got %q", got)
	}
}

func TestTokenError(t *testing.T) {
	srv := remotetest.New()
	boom := errors.New("boom")
	c := newClient(t, srv, remote.WithToken(func() (string, error) { return "", boom }))

	if _, err := c.List(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected token error, got %v", err)
	}
	if len(srv.Requests("")) != 0 {
		t.Errorf("request sent despite token error")
	}
}

func TestTimeout(t *testing.T) {
	srv := remotetest.New()
	release := srv.Hold(remote.PathList)
	defer release()
	c := newClient(t, srv, remote.WithTimeout(50*time.Millisecond))

	_, err := c.List(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
