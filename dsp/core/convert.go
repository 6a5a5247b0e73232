package core

// ToFloat32 converts src into dst, reusing dst capacity when possible.
func ToFloat32(dst []float32, src []float64) []float32 {
	if cap(dst) >= len(src) {
		dst = dst[:len(src)]
	} else {
		dst = make([]float32, len(src))
	}
	for i, v := range src {
		dst[i] = float32(v)
	}
	return dst
}

// ToFloat64 converts src into dst, reusing dst capacity when possible.
func ToFloat64(dst []float64, src []float32) []float64 {
	if cap(dst) >= len(src) {
		dst = dst[:len(src)]
	} else {
		dst = make([]float64, len(src))
	}
	for i, v := range src {
		dst[i] = float64(v)
	}
	return dst
}
