// Package xar reads and writes xar archives.
//
// An archive is laid out as:
//   - Header: 28 bytes, big-endian, starting with the magic "xar!"
//   - TOC: a zlib-compressed XML table of contents describing a tree of files
//   - Heap: the TOC checksum followed by file payloads, addressed by offsets
//     relative to the first byte after the TOC
//
// Archives are read through a RangeSource, so only the header, the TOC and
// the payloads actually requested are fetched. Local files, HTTP servers
// supporting range requests (package xar/http) and S3 objects (package
// xar/s3) can all back an Archive.
package xar
