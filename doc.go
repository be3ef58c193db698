// Package asar reads and writes asar archives.
//
// An archive packs a directory tree into a single file:
//   - Header: 16 bytes, four little-endian uint32 fields
//   - Metadata: a JSON document describing the tree, padded to 4 bytes
//   - Data: the concatenated contents of every file, addressed by offset
//
// Walk and WalkPattern plan an archive from the file system, WriteArchive
// and Pack write it. OpenFile and New read one back; Archive implements
// fs.FS and related interfaces for stdlib compatibility.
package asar
