// Package header encodes and decodes the fixed 16-byte archive header.
//
// The header is four little-endian uint32 values:
//
//	[0:4)   tag, always 4
//	[4:8)   header size: 8 + aligned metadata size
//	[8:12)  padded metadata size: 4 + aligned metadata size
//	[12:16) exact metadata size
//
// The metadata document follows immediately and is zero padded to a 4-byte
// boundary. File data begins at 16 + aligned metadata size.
package header
