// Package storage defines read access to the site content directory.
package storage

import "github.com/topwebdesignco/advanced-schema-manager/internal/models"

// Provider is the interface for reading content source files.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to the site root).
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to the site root).
	Read(path string) ([]byte, error)
}
