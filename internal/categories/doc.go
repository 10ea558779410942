// Package categories manages the media category registry: named
// directories that scope every media identity and batch operation.
package categories
