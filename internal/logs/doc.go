// Package logs locates per-run log files and tails them with bounded memory.
//
// It backs `driveingest logs`, which prints the last lines of the newest run
// log and can keep following it while a watch loop writes.
package logs
