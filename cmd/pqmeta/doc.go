// Command pqmeta extracts Parquet footer metadata from local files,
// directories or s3:// objects and writes a spreadsheet report.
//
//	pqmeta [-out report.xlsx] [-format xlsx|csv|parquet] [-json] [-config config.yaml] paths...
//
// Directories are expanded to the Parquet files they contain, without
// recursion. An s3:// URI ending in "/" lists every Parquet object under
// that prefix. Only the footer bytes of each object are downloaded.
//
// Files that cannot be read are recorded in the report's Summary sheet and
// do not fail the run. A batch containing a non-Parquet file name is
// rejected with exit status 2.
package main
