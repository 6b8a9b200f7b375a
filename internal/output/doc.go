// Package output writes exported pages to the public directory.
//
// Each route owns one directory holding index.html and, when the render
// produced data, page-data.json. Writes always overwrite. A page-data.json
// is never removed by a page write; callers clear files left by an earlier
// export with [RemoveData] once they know no render in the current run
// produced data for that directory.
package output
