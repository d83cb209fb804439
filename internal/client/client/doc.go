// Package client contains the client-side building blocks of clientkeeper.
//
// # Overview
//
// The package provides:
//  1. The API contract used by the CLI (see the Client interface).
//  2. A JSON-over-HTTP implementation (see HTTPClient) that injects the
//     bearer access token, transparently refreshes an expired token once
//     and retries the call, and maps HTTP statuses to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) for the
//     SQLite session store, using embedded goose migrations.
//
// # Error Handling
//
// Server answers are mapped onto the common sentinels (common.ErrorNotFound,
// common.ErrorForbidden, common.ErrorValidation, ...) plus ErrUnauthorized,
// ErrUnavailable and ErrNoSession from this package; match them with errors.Is.
//
// HTTPClient is safe for concurrent use. All operations accept a
// context.Context and honor cancellation.
package client
