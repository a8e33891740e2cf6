// Package download implements the public share download engine: per-chunk
// download URL resolution, ranged chunk fetching, and the plain and
// encrypted download pipelines.
package download
