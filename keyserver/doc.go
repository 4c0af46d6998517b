// Package keyserver runs a development relayer: it serves public key material
// derived by a KMS and signs input proofs for ciphertexts that decrypt under it.
//
// Routes:
//
//	GET  /v1/keyurl
//	GET  /v1/keys/public-key
//	GET  /v1/keys/public-params/{size}
//	POST /v1/input-proof
//	GET  /api/admin/status    (threshold KMS only)
//	POST /api/admin/share     (threshold KMS only)
//	GET  /livez, /readyz, /drain, /undrain
//
// A threshold KMS answers key requests with 503 until enough administrator
// shares have been submitted, and /readyz reports "locked" meanwhile.
package keyserver
