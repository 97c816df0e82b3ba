// Package config loads the controller and worker daemon configurations
// and parses project definition documents into the typed project graph.
package config
