// Package controller glues the execution core together: project import,
// run lifecycle, stop semantics and transfer slot requests, serialized by
// a short-timeout exclusivity lock.
package controller
