// Package tenantstore binds a vector index to a single tenant handle.
//
// A Store is constructed eagerly: it verifies the shared ledger binding
// and opens the tenant's persistent index before returning, so a
// successfully constructed Store is ready to serve. Each Store serves
// exactly one tenant for its whole lifetime; writes are serialized per
// instance so that record ids assigned from the observed count cannot
// collide under concurrency.
package tenantstore
