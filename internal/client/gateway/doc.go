// Package gateway contains the client-side contract with the remote
// task/package gateway.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface): login,
//     task fetch, expected-package manifest fetch/submit, package
//     create/patch/delete.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) that injects the
//     bearer token on every request, signals session teardown on 401 via a
//     hook, and maps HTTP statuses to sentinel errors.
//
// # Error Handling
//
// Conditions callers branch on are exposed as sentinel errors matched with
// errors.Is: gateway.ErrUnavailable (5xx or network failure),
// gateway.ErrBadRequest (400), common.ErrorUnauthorized (401/403),
// common.ErrorNotFound (404).
//
// A non-201 success on package creation is not an error: it is the gateway's
// way of saying the identifier already existed server-side, and CreatePackage
// surfaces it as created == false.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use once the token is set. All operations
// accept context.Context; scan writes are issued with uncancellable contexts
// by the caller so a recorded scan is never silently dropped.
package gateway
