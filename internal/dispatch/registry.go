package dispatch

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"example.com/dirserve/internal/mimetype"
)

// TypeHandlerRegistry maps file extensions to ContentHandlers and is
// itself a ContentHandler: it dispatches on the extension of the resolved
// path and does nothing for unregistered extensions. It is the standard
// way to intercept specific file types before static serving.
type TypeHandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]ContentHandler
}

// NewTypeHandlerRegistry creates an empty registry.
func NewTypeHandlerRegistry() *TypeHandlerRegistry {
	return &TypeHandlerRegistry{
		handlers: make(map[string]ContentHandler),
	}
}

// Register associates a file extension (with or without the leading dot,
// case-insensitive) with a handler. Registering the same extension twice
// is an error.
func (r *TypeHandlerRegistry) Register(ext string, h ContentHandler) error {
	key := strings.ToLower(strings.TrimPrefix(ext, "."))
	if key == "" {
		return fmt.Errorf("extension cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("handler for extension %q cannot be nil", ext)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[key]; exists {
		return fmt.Errorf("extension %q already registered", key)
	}
	r.handlers[key] = h
	return nil
}

// Get retrieves the handler registered for an extension.
func (r *TypeHandlerRegistry) Get(ext string) (ContentHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return h, ok
}

// Handle implements ContentHandler.
func (r *TypeHandlerRegistry) Handle(rs *ResponseState, req *http.Request, resolvedPath string) error {
	h, ok := r.Get(mimetype.ExtractExtension(resolvedPath))
	if !ok {
		return nil
	}
	return h.Handle(rs, req, resolvedPath)
}
