// Package catalog implements the core of the listings catalog service:
// filtered paginated queries over listings, hydration of listing rows
// into their denormalized response shape, and the batch upsert
// reconciler that keeps listings, dataset entities, property definitions
// and typed property values consistent.
//
// The data model stores listing→entity references and image hashes as
// denormalized array columns queried by overlap, and splits property
// values into a string and a boolean table routed by the property's
// declared type. Dataset-entity filtering is a two-stage containment
// match against the entities' jsonb documents.
//
// Upsert batches are atomic: the whole batch commits or rolls back as
// one transaction. After a successful commit the service publishes one
// change event per listing when a broker is configured.
package catalog
