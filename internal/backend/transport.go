package backend

import (
	"net/http"
	"sync"
)

// Interceptor rewrites an outbound request or refuses it. Implementations must
// not modify req; they return a clone when they change anything.
type Interceptor interface {
	Intercept(req *http.Request) (*http.Request, error)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(req *http.Request) (*http.Request, error)

func (f InterceptorFunc) Intercept(req *http.Request) (*http.Request, error) {
	return f(req)
}

// Transport runs the installed interceptors in installation order before
// handing the request to the base RoundTripper.
type Transport struct {
	base http.RoundTripper

	mu    sync.RWMutex
	seq   uint64
	slots []slot
}

type slot struct {
	name string
	id   uint64
	ic   Interceptor
}

// NewTransport wraps base. A nil base uses http.DefaultTransport.
func NewTransport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base}
}

// Install registers ic under name. Installing under a name already present
// replaces the previous interceptor in place, so the same name never runs twice.
// The returned func removes this registration and is a no-op once it has been
// replaced or removed.
func (t *Transport) Install(name string, ic Interceptor) (remove func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	id := t.seq
	replaced := false
	for i := range t.slots {
		if t.slots[i].name == name {
			t.slots[i] = slot{name: name, id: id, ic: ic}
			replaced = true
			break
		}
	}
	if !replaced {
		t.slots = append(t.slots, slot{name: name, id: id, ic: ic})
	}
	return func() { t.removeID(name, id) }
}

// Remove uninstalls the interceptor registered under name.
func (t *Transport) Remove(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].name == name {
			t.slots = append(t.slots[:i], t.slots[i+1:]...)
			return
		}
	}
}

func (t *Transport) removeID(name string, id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].name == name && t.slots[i].id == id {
			t.slots = append(t.slots[:i], t.slots[i+1:]...)
			return
		}
	}
}

// Installed lists interceptor names in execution order.
func (t *Transport) Installed() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, len(t.slots))
	for i, s := range t.slots {
		names[i] = s.name
	}
	return names
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.RLock()
	chain := make([]Interceptor, len(t.slots))
	for i, s := range t.slots {
		chain[i] = s.ic
	}
	t.mu.RUnlock()

	out := req
	for _, ic := range chain {
		next, err := ic.Intercept(out)
		if err != nil {
			if req.Body != nil {
				_ = req.Body.Close()
			}
			return nil, err
		}
		out = next
	}
	return t.base.RoundTrip(out)
}
