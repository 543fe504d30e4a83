// Package api exposes the listings catalog over HTTP.
//
// Two endpoints are served under /api: GET /listings for filtered,
// paginated retrieval and PUT /upsert for bulk create-or-update. The
// transport layer only decodes and validates requests; all semantics
// live in the catalog package.
//
// Errors follow a fixed taxonomy: malformed encodings (bad integers,
// timestamps or JSON) yield 400, shape violations in upsert bodies 422,
// and store failures a generic 500 whose cause goes to the log only.
package api
