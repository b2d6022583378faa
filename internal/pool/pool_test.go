package pool

import (
	"sync"
	"testing"

	"github.com/distkv-io/partikv/internal/address"
	"github.com/distkv-io/partikv/internal/session"
)

func TestGetCreatesOncePerEndpoint(t *testing.T) {
	p := New()
	defer p.CloseAll()

	ep := address.Endpoint{IPv4: 0x7F000001, Port: 9999}

	s1 := p.Get(ep)
	s2 := p.Get(ep)
	if s1 != s2 {
		t.Fatal("Get must return the same session for the same endpoint")
	}
	if got := p.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}

func TestGetIsSafeUnderConcurrentFirstAccess(t *testing.T) {
	p := New()
	defer p.CloseAll()

	ep := address.Endpoint{IPv4: 0x7F000001, Port: 9998}

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[*session.Session]bool{}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := p.Get(ep)
			mu.Lock()
			seen[s] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 1 {
		t.Fatalf("expected exactly one distinct session, got %d", len(seen))
	}
}

func TestCloseAllClearsPool(t *testing.T) {
	p := New()
	ep1 := address.Endpoint{IPv4: 0x7F000001, Port: 9001}
	ep2 := address.Endpoint{IPv4: 0x7F000001, Port: 9002}
	p.Get(ep1)
	p.Get(ep2)
	if got := p.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	p.CloseAll()
	if got := p.Len(); got != 0 {
		t.Fatalf("Len() after CloseAll = %d, want 0", got)
	}
}
