// Package modules defines the node module contract and the registry that
// resolves module references of the form "namespace/Name" to factories.
//
// A node module runs on a worker in three phases: Execute performs the
// measurement or action, Collect gathers its artifacts into the result
// sink, and Cleanup releases anything left over. Phase failures that are
// part of normal operation (a command exiting non-zero, a capture file
// missing) are reported as ModuleError; anything else is treated as an
// uncaught failure by the caller.
package modules
