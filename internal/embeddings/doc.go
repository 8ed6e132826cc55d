// Package embeddings converts text into fixed-length vectors.
//
// The Engine owns a single lazily-initialized model backend shared
// process-wide: the first caller triggers the load, concurrent callers
// wait on the same in-flight load, and a failed load is retried on the
// next call. Backends produce raw tensors (flat buffer plus dims) which
// the Engine validates against the model's declared dimensionality
// before handing vectors to callers.
package embeddings
