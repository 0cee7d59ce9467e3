// Package docstore defines the partitioned document-store capability that the
// chat, cache, and catalog services are built on.
//
// A Container groups JSON documents under hierarchical partition keys and
// provides point reads and writes, paginated queries with optional vector
// ranking, and transactional batches that commit or reject all operations
// within one partition as a single unit.
//
// Similarity convention: vector queries rank by cosine similarity where
// higher means more similar, ordered descending. Threshold filters are
// exclusive lower bounds on that score.
package docstore
