package mathx

// ScaleClamped clamps x into [inMin, inMax] and rescales it onto [0, span]
// with 32-bit intermediates: (x-inMin)*span/(inMax-inMin).
// The caller guarantees inMin < inMax.
func ScaleClamped(x, inMin, inMax, span uint16) uint16 {
	x = Clamp(x, inMin, inMax)
	num := uint32(x-inMin) * uint32(span)
	return uint16(num / uint32(inMax-inMin))
}
