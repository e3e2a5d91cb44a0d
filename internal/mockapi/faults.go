package mockapi

import (
	"net/http"
	"sync"
)

// faults holds pending injected failures. Each request consumes at most
// one: drops first, then failures.
type faults struct {
	mu         sync.Mutex
	drop       int
	fail       int
	failStatus int
	requests   int
}

// FailNext makes the next n requests answer with status.
func (s *Server) FailNext(n, status int) {
	s.faults.mu.Lock()
	defer s.faults.mu.Unlock()
	s.faults.fail, s.faults.failStatus = n, status
}

// DropNext makes the next n requests close the connection without a
// response.
func (s *Server) DropNext(n int) {
	s.faults.mu.Lock()
	defer s.faults.mu.Unlock()
	s.faults.drop = n
}

// Requests returns how many requests reached the server.
func (s *Server) Requests() int {
	s.faults.mu.Lock()
	defer s.faults.mu.Unlock()
	return s.faults.requests
}

// take records a request and returns the fault it should suffer.
func (f *faults) take() (drop bool, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if f.drop > 0 {
		f.drop--
		return true, 0
	}
	if f.fail > 0 {
		f.fail--
		return false, f.failStatus
	}
	return false, 0
}

func (s *Server) faultMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		drop, status := s.faults.take()
		switch {
		case drop:
			s.logger.Debug("dropping connection", "path", r.URL.Path)
			hj, ok := w.(http.Hijacker)
			if !ok {
				panic(http.ErrAbortHandler)
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				panic(http.ErrAbortHandler)
			}
			conn.Close()
		case status != 0:
			s.logger.Debug("injecting failure", "path", r.URL.Path, "status", status)
			respondError(w, status, http.StatusText(status))
		default:
			next.ServeHTTP(w, r)
		}
	})
}
