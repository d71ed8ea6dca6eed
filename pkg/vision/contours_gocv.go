//go:build gocv

package vision

import (
	"image"

	"gocv.io/x/gocv"
)

// DefaultExtractor returns the OpenCV extractor in gocv builds
func DefaultExtractor() ContourExtractor {
	return OpenCVExtractor{}
}

// OpenCVExtractor runs cv::findContours with RETR_EXTERNAL on the mask
type OpenCVExtractor struct{}

func (OpenCVExtractor) ExternalBounds(mask *Mask) []image.Rectangle {
	if mask.Width == 0 || mask.Height == 0 {
		return nil
	}

	buf := make([]byte, len(mask.Pix))
	for i, v := range mask.Pix {
		if v != 0 {
			buf[i] = 255
		}
	}

	mat, err := gocv.NewMatFromBytes(mask.Height, mask.Width, gocv.MatTypeCV8UC1, buf)
	if err != nil {
		return LabelExtractor{}.ExternalBounds(mask)
	}
	defer mat.Close()

	contours := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	rects := make([]image.Rectangle, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		rects = append(rects, gocv.BoundingRect(contours.At(i)))
	}
	return rects
}
