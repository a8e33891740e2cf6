// Package dracoon provides a client for the DRACOON cloud-storage REST API,
// centered on public share transfers: chunked, range-addressed downloads of
// optionally end-to-end encrypted shares, and chunked uploads to public
// upload shares.
//
// A client is created with functional options:
//
//	client, err := dracoon.New(
//	    dracoon.WithBaseURL("https://dracoon.team"),
//	    dracoon.WithChunkSize(8*1024*1024),
//	)
//
// Downloads resolve a fresh single-use URL per chunk, fetch the chunk with a
// byte-range request, and either write it straight to the sink or feed it
// through the decrypting pipeline. Encrypted content is flushed only after
// the whole stream has been authenticated.
package dracoon
