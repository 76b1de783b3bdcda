// Package preflight provides readiness checks for the filesystem paths,
// certificates, and external tools a spark worker depends on.
//
// The CLI "check" command runs RunAll and renders the results; "exec" runs
// the same checks and refuses to start a job when one fails.
package preflight
