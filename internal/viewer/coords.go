// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package viewer

import "github.com/pdiddy/paper-reader/pkg/types"

// Matrix is a PDF affine transform [a b c d e f].
type Matrix [6]float64

// Multiply returns m followed by o.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

// Apply transforms the point (x, y).
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// RatioToPDF maps page-ratio coordinates (origin top-left, y down) to PDF
// user space (origin bottom-left, y up) for a page of the given size.
func RatioToPDF(view PageView) Matrix {
	scaleToPage := Matrix{view.Width, 0, 0, view.Height, 0, 0}
	flipY := Matrix{1, 0, 0, -1, 0, view.Height}
	return scaleToPage.Multiply(flipY)
}

// ToPDFPoint returns the top-left corner of box in PDF user space.
func ToPDFPoint(view PageView, box types.BoundingBox) (float64, float64) {
	return RatioToPDF(view).Apply(box.Left, box.Top)
}
