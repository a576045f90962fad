// Package limits provides centralized size constants and validation functions
// for lengths a bridge peer declares on the wire.
//
// # Why Limits Exist
//
// The metadata exchange carries a checksum length and a file size chosen by the
// remote peer. The receiver allocates buffers of exactly those sizes, so both
// values are validated before allocation:
//
//   - MaxChecksumSize (64 bytes): large enough for any common digest. The bridge
//     uses 32-byte digests today.
//
//   - DefaultMaxFileSize (32 MiB): the default cap on a declared file size. Callers
//     that move larger files raise it through their options.
//
//   - MaxFileSize: the hard cap of the 4-byte file size field.
//
// # Validation Functions
//
//	if err := limits.ValidateChecksumSize(n); err != nil {
//	    // errors.Is(err, limits.ErrChecksumTooLarge)
//	}
//
//	if err := limits.ValidateFileSize(size, opts.MaxFileSize); err != nil {
//	    // errors.Is(err, limits.ErrFileTooLarge)
//	}
//
// Errors wrap the sentinels with the offending and permitted sizes.
package limits
