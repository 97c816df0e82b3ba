// Package transfer moves result files from workers to the controller over
// a minimal raw TCP protocol: a fixed-length token prefix identifying a
// previously requested upload slot, followed by the file bytes until EOF.
// Tokens are single-use and bound to the repetition that was executing
// when the slot was requested, which is how incoming files are attributed.
package transfer
