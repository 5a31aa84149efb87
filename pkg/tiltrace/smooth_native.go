//go:build !purego && !js

package tiltrace

import (
	"image"

	"gocv.io/x/gocv"
)

// boxcarSmooth returns the running boxcar average of a spectrum using
// the OpenCV backend.
func boxcarSmooth(spec []float64, width int) []float64 {
	out := make([]float64, len(spec))
	if width <= 1 || len(spec) == 0 {
		copy(out, spec)
		return out
	}
	src := gocv.NewMatWithSize(1, len(spec), gocv.MatTypeCV32F)
	defer src.Close()
	data, _ := src.DataPtrFloat32()
	for i, v := range spec {
		data[i] = float32(v)
	}
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Blur(src, &dst, image.Pt(width, 1))
	res, _ := dst.DataPtrFloat32()
	for i := range out {
		out[i] = float64(res[i])
	}
	return out
}

// medianSmooth3 returns the 3-wide running median of a spectrum.
func medianSmooth3(spec []float64) []float64 {
	out := make([]float64, len(spec))
	if len(spec) < 3 {
		copy(out, spec)
		return out
	}
	src := gocv.NewMatWithSize(1, len(spec), gocv.MatTypeCV32F)
	defer src.Close()
	data, _ := src.DataPtrFloat32()
	for i, v := range spec {
		data[i] = float32(v)
	}
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.MedianBlur(src, &dst, 3)
	res, _ := dst.DataPtrFloat32()
	for i := range out {
		out[i] = float64(res[i])
	}
	// Keep the raw end samples; the border reflection differs from the
	// truncated pure backend otherwise.
	out[0] = spec[0]
	out[len(spec)-1] = spec[len(spec)-1]
	return out
}
