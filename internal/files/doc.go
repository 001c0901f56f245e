// Package files supplies the byte sources a batch reads from and writes
// finished reports.
//
// A Source is a named io.ReaderAt with a known size. Sources come from
// local files (Open), memory (FromBytes), multipart uploads (FromMultipart)
// or S3 objects (S3Storage.Source), where reads become ranged GetObject
// calls so only the footer is downloaded.
//
// Discovery expands directory arguments into the Parquet files they
// contain, sorted by name. Manager writes report files atomically.
//
// Example usage:
//
//	paths, err := files.NewDiscovery("").Expand(os.Args[1:])
//	src, err := files.Open(paths[0])
//	defer src.Close()
package files
