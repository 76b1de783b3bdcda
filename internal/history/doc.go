// Package history keeps a SQLite ledger of the commands a worker has run on
// behalf of jobs: what ran, for which job, how it exited, and where its job
// log lives. The CLI records an entry after every logged execution and lists
// recent entries for operators.
//
// The schema is applied from embedded, ordered migrations on Open.
package history
