package format

// Alignment utilities for heap pages.

// Align8 returns n aligned up to the next 8-byte boundary.
// Used for object sizes and every range written on a page.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(20) = 24
func Align8(n int) int {
	return (n + ObjectAlignmentMask) & ^ObjectAlignmentMask
}

// IsAligned8 reports whether n is a multiple of ObjectAlignment.
func IsAligned8(n int) bool {
	return n&ObjectAlignmentMask == 0
}

// AlignOSPage returns n aligned up to the next 4KB boundary.
//
// Example:
//
//	AlignOSPage(1)    = 4096
//	AlignOSPage(4096) = 4096
//	AlignOSPage(4128) = 8192
func AlignOSPage(n int) int {
	return (n + OSPageSizeMask) & ^OSPageSizeMask
}
