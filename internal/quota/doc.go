// Package quota gates memory mutations on the caller's subscription.
//
// The Gate checks a subscription record before a mutation is allowed
// and records usage after it succeeded. Usage recording is best-effort:
// a failed increment is logged and never undoes the mutation it
// followed.
package quota
