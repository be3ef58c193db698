// Package index loads the archive metadata document and provides ordered
// traversal and path lookup over it.
//
// The document is a JSON tree decoded once into asartype.Node values.
// Traversal is depth-first pre-order with children visited in name order,
// so file offsets assigned by the walker appear in ascending order.
package index
