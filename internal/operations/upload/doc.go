// Package upload implements public share (file request) uploads: it opens
// an upload channel, transfers the content to the backend's storage, and
// finalizes the upload. S3 instances receive the content in parts via
// presigned URLs; NFS instances receive ranged chunks on the channel's
// upload URL. Encrypted shares are sealed client-side and the file key is
// wrapped for every share recipient.
package upload
