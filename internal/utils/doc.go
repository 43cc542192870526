// Package utils provides shared low-level helpers for the manifold
// internals, currently [Ptr] for taking the address of a literal or computed
// value where optional call options expect a pointer.
package utils
