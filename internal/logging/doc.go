// Package logging provides structured, context-aware logging for memoryd.
//
// It wraps Zap with correlation fields extracted from context: the active
// trace span, the tenant handle, and the request id. All memoryd services
// log through this package so entries from one request line up across the
// embedding, store and ledger layers.
package logging
