// Package shared holds helpers used across pqmeta packages that belong to
// no single layer.
//
// The testutil subpackage provides:
//
//	- a buffered slog handler for asserting on log output
//	- a Thrift compact protocol writer for hand-crafted footers
//	- Parquet fixtures, both hand-encoded (SampleFile) and written with
//	  parquet-go (WriteParquet)
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, handler := testutil.NewTestLogger(t)
//	    src := files.FromBytes("a.parquet", testutil.SampleFile(2))
//	    ...
//	    testutil.AssertNoErrors(t, handler)
//	}
package shared
