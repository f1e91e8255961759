// Package redis implements the storage interfaces on Redis.
//
// Documents are stored as hashes under <prefix><id> with the fields
// embedding (little-endian float32 bytes), data, type, normalized and
// inserted_at. A RediSearch index over those hashes serves KNN queries
// (HNSW, cosine) and keyword queries on the data field. The relevance graph
// snapshot is a single string key.
//
// The client must speak RESP2, which NewClient configures.
package redis
