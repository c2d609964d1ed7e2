// Package memory provides allocation helpers for the hot path.
package memory
