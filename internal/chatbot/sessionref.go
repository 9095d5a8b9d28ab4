package chatbot

import (
	"os"
	"strings"
	"sync"
)

// SessionRef is the durable association between a visitor's browsing
// context and their session id (sessionStorage in the web client). A
// missing or unreadable ref just means no session to resume.
type SessionRef interface {
	Get() string
	Set(id string)
	Clear()
}

// MemoryRef keeps the session id in process memory.
type MemoryRef struct {
	mu sync.Mutex
	id string
}

func (r *MemoryRef) Get() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func (r *MemoryRef) Set(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.id = id
}

func (r *MemoryRef) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.id = ""
}

// FileRef persists the session id to a file. Persistence failures are
// ignored, matching the web client's best-effort storage access.
type FileRef struct {
	Path string
}

func (r *FileRef) Get() string {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (r *FileRef) Set(id string) {
	_ = os.WriteFile(r.Path, []byte(id), 0600)
}

func (r *FileRef) Clear() {
	_ = os.Remove(r.Path)
}
