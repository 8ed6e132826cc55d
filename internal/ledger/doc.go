// Package ledger talks to the tenant registry chain over JSON-RPC.
//
// It provides a minimal client for the handful of calls memoryd needs
// (chain id, balance reads, store deployment, the development faucet)
// and the process-wide shared connection configuration that tenant
// stores bind at construction time. The shared configuration is built
// exactly once per process; concurrent first callers share one
// in-flight initialization and a failed attempt is retried by the next
// caller.
package ledger
