// Package progress persists the resume cursor and the seen-identity set.
//
// The state is a single JSON document, {"cursor": n, "seen": [...]}, kept under
// one key in a Backend. Backings are a directory of atomically replaced files,
// a sqlite database, a Postgres table, or process memory for tests.
//
// The cursor says where the next run resumes in the current listing order;
// the seen set says which places must never be emitted again. Reset rewinds
// the former and keeps the latter.
package progress
