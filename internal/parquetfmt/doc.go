// Package parquetfmt locates and decodes Parquet file footers.
//
// The footer is a Thrift compact protocol FileMetaData struct that sits
// between the last data page and an 8 byte trailer:
//
//	"PAR1" <data> <FileMetaData> <uint32 footer length, little endian> "PAR1"
//
// The decoder is schema driven. Every known field is checked against its
// declared wire type and required fields must be present, while unknown
// fields are skipped so files written by newer libraries still decode.
// Optional scalars decode to pointers so that an absent value is never
// confused with zero.
package parquetfmt
