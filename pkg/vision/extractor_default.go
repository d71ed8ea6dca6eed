//go:build !gocv

package vision

// DefaultExtractor returns the extractor used when none is configured
func DefaultExtractor() ContourExtractor {
	return LabelExtractor{}
}
