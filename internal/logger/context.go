package logger

import "context"

type contextKey struct{}

var requestScopeKey = contextKey{}

// Key constants for the fields RequestScope injects into log lines.
const (
	KeySession   = "session"
	KeyDatabase  = "database"
	KeyOperation = "operation"
	KeyPeer      = "peer"
)

// RequestScope holds request-scoped fields for the RPC handlers in
// cmd/confd: which session authenticated the call, which datastore and
// operation it targets, and the peer address — the NETCONF/IPC analogue
// of the teacher's per-NFS-call LogContext.
type RequestScope struct {
	Session   string
	Database  string
	Operation string
	Peer      string
}

// WithContext attaches rs to ctx for DebugCtx/InfoCtx/WarnCtx/ErrorCtx
// to pick up automatically.
func WithContext(ctx context.Context, rs *RequestScope) context.Context {
	return context.WithValue(ctx, requestScopeKey, rs)
}

// FromContext retrieves the RequestScope attached to ctx, or nil.
func FromContext(ctx context.Context) *RequestScope {
	if ctx == nil {
		return nil
	}
	rs, _ := ctx.Value(requestScopeKey).(*RequestScope)
	return rs
}

// WithOperation returns a copy of rs with Operation set.
func (rs *RequestScope) WithOperation(op string) *RequestScope {
	if rs == nil {
		return &RequestScope{Operation: op}
	}
	clone := *rs
	clone.Operation = op
	return &clone
}
