// Package vectorindex provides per-tenant approximate nearest neighbor
// indexes over precomputed embeddings.
//
// An Index stores vectors with opaque string metadata under unsigned
// integer ids and answers k-nearest-neighbor queries by cosine
// distance. The chromem backend persists each tenant's index under its
// own directory. Tuning parameters are validated and recorded at open
// time so a future ANN backend can honor them.
package vectorindex
