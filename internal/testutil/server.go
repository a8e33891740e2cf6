package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// ShareServer is a mock public share backend. It serves the download token
// generation endpoint and a ranged content endpoint, recording every
// resolve call and every requested range for assertions.
type ShareServer struct {
	Server    *httptest.Server
	AccessKey string
	Content   []byte

	mu            sync.Mutex
	resolveCalls  int
	resolveBodies []string
	ranges        []string
}

// NewShareServer starts a mock backend serving content under the given
// access key. The caller must Close the server.
func NewShareServer(accessKey string, content []byte) *ShareServer {
	s := &ShareServer{
		AccessKey: accessKey,
		Content:   content,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v4/public/shares/downloads/"+accessKey, s.handleResolve)
	mux.HandleFunc("GET /downloads/content", s.handleContent)

	s.Server = httptest.NewServer(mux)
	return s
}

// Close shuts the mock backend down.
func (s *ShareServer) Close() {
	s.Server.Close()
}

// ResolveCalls returns how often the token generation endpoint was hit.
func (s *ShareServer) ResolveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveCalls
}

// ResolveBodies returns the raw request bodies of all resolve calls.
func (s *ShareServer) ResolveBodies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.resolveBodies...)
}

// Ranges returns the Range headers of all content requests, in order.
func (s *ShareServer) Ranges() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ranges...)
}

func (s *ShareServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.resolveCalls++
	s.resolveBodies = append(s.resolveBodies, string(body))
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"downloadUrl":%q}`, s.Server.URL+"/downloads/content")
}

func (s *ShareServer) handleContent(w http.ResponseWriter, r *http.Request) {
	rangeHeader := r.Header.Get("Range")

	s.mu.Lock()
	s.ranges = append(s.ranges, rangeHeader)
	s.mu.Unlock()

	var start, end int64
	if _, err := fmt.Sscanf(rangeHeader, "bytes=%d-%d", &start, &end); err != nil {
		http.Error(w, "bad range", http.StatusBadRequest)
		return
	}
	if start < 0 || end >= int64(len(s.Content)) || start > end {
		http.Error(w, "range out of bounds", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	w.WriteHeader(http.StatusPartialContent)
	_, _ = w.Write(s.Content[start : end+1])
}
