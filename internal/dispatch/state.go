package dispatch

import "net/http"

// ResponseState wraps an http.ResponseWriter and records whether a
// response has been started. The dispatcher consults it before every
// write so that at most one response is produced per request, even when
// a content handler already responded. Tests can inspect exactly when a
// response was or wasn't written.
type ResponseState struct {
	w           http.ResponseWriter
	status      int
	wroteHeader bool
	bytes       int64
}

// NewResponseState wraps w.
func NewResponseState(w http.ResponseWriter) *ResponseState {
	return &ResponseState{w: w}
}

// Header returns the header map that will be sent with the response.
func (rs *ResponseState) Header() http.Header { return rs.w.Header() }

// WriteHeader starts the response with the given status code. Once a
// status has been set, further calls are ignored rather than overwriting
// it.
func (rs *ResponseState) WriteHeader(status int) {
	if rs.wroteHeader {
		return
	}
	rs.wroteHeader = true
	rs.status = status
	rs.w.WriteHeader(status)
}

// Write writes response body bytes, implying a 200 status if none was
// set.
func (rs *ResponseState) Write(p []byte) (int, error) {
	if !rs.wroteHeader {
		rs.wroteHeader = true
		rs.status = http.StatusOK
	}
	n, err := rs.w.Write(p)
	rs.bytes += int64(n)
	return n, err
}

// Written reports whether a response has been started.
func (rs *ResponseState) Written() bool { return rs.wroteHeader }

// Status returns the response status code, or 0 if none was written.
func (rs *ResponseState) Status() int { return rs.status }

// BytesWritten returns the number of body bytes written so far.
func (rs *ResponseState) BytesWritten() int64 { return rs.bytes }
