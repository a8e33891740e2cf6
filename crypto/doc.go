// Package crypto implements the client-side cryptography of end-to-end
// encrypted shares: password-protected private key containers, RSA-wrapped
// symmetric file keys, and chunked AES-256-GCM content decryption with
// deferred authentication.
package crypto
