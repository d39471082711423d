// Package mmfile provides platform-specific helpers for memory-mapping region files.
package mmfile
