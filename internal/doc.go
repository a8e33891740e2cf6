// Package internal contains implementation packages that are not part of
// the public API surface of the DRACOON client.
package internal
