// Package memory orchestrates memory creation and retrieval for one
// tenant store.
//
// The Service validates content, embeds it through the shared engine
// and writes it to the tenant's vector store. Searches embed the query,
// collect nearest hits and apply metadata filters after the fact;
// filtering may shrink the result set but never reorders it.
package memory
