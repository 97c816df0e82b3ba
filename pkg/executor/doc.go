// Package executor runs node tasks on a worker. It resolves the module
// reference, prepares a private working directory, wires the result sink
// and drives the module's execute/collect/cleanup phases, returning a
// discrete outcome code for every way a task can end.
package executor
