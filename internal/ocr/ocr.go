// Package ocr defines the text-recognition contract and the confidence-gated
// correction pass layered on top of it.
package ocr

import "context"

// Page is one page of a source file, referenced by its rendered image.
type Page struct {
	Index     int    // 0-based position within the source file
	ImagePath string // rendered page image on disk
}

// Recognition is the raw output of the recognition engine for one image.
type Recognition struct {
	Text       string
	Confidence float32 // 0..1, engine-reported average
}

// Engine is the external text-recognition collaborator. Engine internals
// (preprocessing, model choice) are outside this module.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) (Recognition, error)
}
