package vision

import "image"

// ContourExtractor returns the bounding rectangles of the outermost
// contours of the foreground in a mask. Contours nested inside another
// foreground region are not reported.
type ContourExtractor interface {
	ExternalBounds(mask *Mask) []image.Rectangle
}

// ContourExtractorFunc adapts a function to ContourExtractor
type ContourExtractorFunc func(mask *Mask) []image.Rectangle

func (f ContourExtractorFunc) ExternalBounds(mask *Mask) []image.Rectangle {
	return f(mask)
}

// LabelExtractor finds external contours by connected-component labeling.
// Foreground is 8-connected and background 4-connected, so a foreground
// component is external exactly when it touches the image border or sits
// next to background that is reachable from the border.
type LabelExtractor struct{}

func (LabelExtractor) ExternalBounds(mask *Mask) []image.Rectangle {
	w, h := mask.Width, mask.Height
	if w == 0 || h == 0 {
		return nil
	}

	outside := floodOutside(mask)
	labels := make([]int32, w*h)
	var rects []image.Rectangle
	var stack []int32
	next := int32(0)

	for start := 0; start < w*h; start++ {
		if mask.Pix[start] == 0 || labels[start] != 0 {
			continue
		}
		next++
		labels[start] = next
		stack = append(stack[:0], int32(start))

		sx, sy := start%w, start/w
		box := image.Rect(sx, sy, sx+1, sy+1)
		external := false

		for len(stack) > 0 {
			p := int(stack[len(stack)-1])
			stack = stack[:len(stack)-1]
			x, y := p%w, p/w

			if x < box.Min.X {
				box.Min.X = x
			}
			if x+1 > box.Max.X {
				box.Max.X = x + 1
			}
			if y < box.Min.Y {
				box.Min.Y = y
			}
			if y+1 > box.Max.Y {
				box.Max.Y = y + 1
			}

			if !external {
				if x == 0 || y == 0 || x == w-1 || y == h-1 {
					external = true
				} else if outside[p-1] || outside[p+1] || outside[p-w] || outside[p+w] {
					external = true
				}
			}

			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if (dx == 0 && dy == 0) || nx < 0 || nx >= w {
						continue
					}
					q := ny*w + nx
					if mask.Pix[q] != 0 && labels[q] == 0 {
						labels[q] = next
						stack = append(stack, int32(q))
					}
				}
			}
		}

		if external {
			rects = append(rects, box)
		}
	}
	return rects
}

// floodOutside marks background pixels 4-connected to the image border
func floodOutside(mask *Mask) []bool {
	w, h := mask.Width, mask.Height
	outside := make([]bool, w*h)
	var stack []int32

	push := func(p int) {
		if mask.Pix[p] == 0 && !outside[p] {
			outside[p] = true
			stack = append(stack, int32(p))
		}
	}

	for x := 0; x < w; x++ {
		push(x)
		push((h-1)*w + x)
	}
	for y := 0; y < h; y++ {
		push(y * w)
		push(y*w + w - 1)
	}

	for len(stack) > 0 {
		p := int(stack[len(stack)-1])
		stack = stack[:len(stack)-1]
		x, y := p%w, p/w
		if x > 0 {
			push(p - 1)
		}
		if x < w-1 {
			push(p + 1)
		}
		if y > 0 {
			push(p - w)
		}
		if y < h-1 {
			push(p + w)
		}
	}
	return outside
}
