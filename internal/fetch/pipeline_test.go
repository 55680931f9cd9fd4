package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redoracle/webdoc/internal/model"
)

func pipelineTasks(base string, paths ...string) []Task {
	tasks := make([]Task, 0, len(paths))
	for i, p := range paths {
		tasks = append(tasks, Task{
			Entry: model.FrontierEntry{URL: base + p, Depth: i},
			Mode:  ModeStatic,
		})
	}
	return tasks
}

// TestPipelinePreservesTaskOrder verifies outcomes align with tasks
// even when completion order is scrambled.
func TestPipelinePreservesTaskOrder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Later paths answer faster, inverting completion order.
		switch r.URL.Path {
		case "/0":
			time.Sleep(120 * time.Millisecond)
		case "/1":
			time.Sleep(60 * time.Millisecond)
		}
		fmt.Fprintf(w, "page %s", r.URL.Path)
	}))
	defer srv.Close()

	p := NewPipeline(New(srv.Client()), WithConcurrency(3))
	outcomes := p.Run(context.Background(), pipelineTasks(srv.URL, "/0", "/1", "/2"))

	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Err != nil {
			t.Fatalf("outcome %d failed: %v", i, o.Err)
		}
		want := fmt.Sprintf("page /%d", i)
		if string(o.Response.Body) != want {
			t.Errorf("outcome %d body = %q, want %q", i, o.Response.Body, want)
		}
	}
}

// TestPipelineConcurrencyBound verifies no more than the configured
// number of fetches run at once.
func TestPipelineConcurrencyBound(t *testing.T) {
	t.Parallel()

	const bound = 2

	var inFlight, peak atomic.Int64
	var mu sync.Mutex

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		now := inFlight.Add(1)
		mu.Lock()
		if now > peak.Load() {
			peak.Store(now)
		}
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		inFlight.Add(-1)
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	p := NewPipeline(New(srv.Client()), WithConcurrency(bound))
	outcomes := p.Run(context.Background(),
		pipelineTasks(srv.URL, "/a", "/b", "/c", "/d", "/e", "/f"))

	for i, o := range outcomes {
		if o.Err != nil {
			t.Fatalf("outcome %d failed: %v", i, o.Err)
		}
	}
	if got := peak.Load(); got > bound {
		t.Errorf("peak concurrent fetches = %d, want <= %d", got, bound)
	}
}

// TestPipelineIsolatesFailures verifies one failing fetch doesn't
// affect its siblings.
func TestPipelineIsolatesFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	p := NewPipeline(New(srv.Client()), WithConcurrency(2))
	outcomes := p.Run(context.Background(), pipelineTasks(srv.URL, "/a", "/missing", "/b"))

	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Error("healthy fetches failed alongside the 404")
	}
	if outcomes[1].Err == nil {
		t.Error("404 fetch reported no error")
	}
	if outcomes[1].Entry.URL != srv.URL+"/missing" {
		t.Errorf("failed outcome entry = %q, want the 404 URL", outcomes[1].Entry.URL)
	}
}

// TestPipelineCancelledContext verifies unstarted tasks carry the
// context error.
func TestPipelineCancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(New(srv.Client()), WithConcurrency(1))
	outcomes := p.Run(ctx, pipelineTasks(srv.URL, "/a", "/b"))

	for i, o := range outcomes {
		if o.Err == nil {
			t.Errorf("outcome %d: expected context error on cancelled run", i)
		}
	}
}
