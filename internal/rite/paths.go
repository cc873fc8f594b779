package rite

import (
	"log"
	"os"
	"path/filepath"
)

// FullPath returns path as an absolute, normalized path. A relative path
// is taken relative to the working directory.
func FullPath(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(Pwd(), path)
	}
	return NormalizePath(path)
}

// NormalizePath drops "." elements and resolves "..".
func NormalizePath(path string) string {
	return filepath.Clean(path)
}

// Pwd returns the working directory, or "." when it cannot be read.
func Pwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Printf("rite: cannot read working directory: %v", err)
		return "."
	}
	return wd
}
