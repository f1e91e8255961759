// Package repair heals drift between the document store and the relevance
// graph.
//
// A document can be stored without ever reaching the graph when a process
// dies between the two writes. The Repairer walks every stored document in
// batches, reruns the balanced self-similarity query for documents missing
// from the graph, and connects them. Progress is reported periodically and
// transient store failures are retried with exponential backoff.
package repair
