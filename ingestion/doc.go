// Package ingestion turns submitted content into stored documents linked
// into the relevance graph.
//
// A Submitter handles one submission at a time:
//   - Content is addressed by its BLAKE2b digest, so duplicates are not re-embedded
//   - New content is embedded and upserted, files are kept in the upload store
//   - A balanced self-similarity query finds the submission's neighbors
//   - The relevance graph is connected and persisted before Submit returns
//
// The Pipeline fans many submissions out over a bounded worker pool.
package ingestion
