package mmapio

import "unsafe"

func unsafeSlice(addr uintptr, n uint64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}
