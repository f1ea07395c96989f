package culite

import (
	"fmt"
	"sync"
	"unsafe"
)

// allocKind distinguishes device allocations from pinned host allocations.
// On a CPU both live in the same memory; the split exists so MemFree and
// MemFreeHost catch mismatched release calls.
type allocKind int

const (
	allocDevice allocKind = iota
	allocHost
)

// DevicePtr represents a pointer to device memory. It provides type-safe
// access to device memory and supports pointer arithmetic through the
// Offset method. Use the type conversion methods (Int32, Float32, etc.)
// to access the underlying data with proper type safety.
type DevicePtr struct {
	ptr    unsafe.Pointer
	size   int
	offset int
}

// MemoryPool manages device memory allocation with efficient reuse.
// It maintains a free list of previously allocated blocks to reduce
// allocation overhead and memory fragmentation.
type MemoryPool struct {
	mu         sync.Mutex
	allocated  map[uintptr]*allocation
	freeList   []*allocation
	totalAlloc int64
	peakAlloc  int64
}

type allocation struct {
	buf  []byte // keeps the backing array reachable
	ptr  unsafe.Pointer
	size int
	kind allocKind
	used bool
}

// NewMemoryPool creates a new memory pool for efficient memory management.
// The pool tracks allocations and provides statistics on memory usage.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{
		allocated: make(map[uintptr]*allocation),
	}
}

// MemAlloc allocates device memory of the specified size in bytes.
// The memory is aligned to MemoryAlignment for SIMD-friendly access.
//
// Example:
//
//	d_a, err := ctx.MemAlloc(n * 4) // n int32s
//	if err != nil {
//	    return err
//	}
//	defer ctx.MemFree(d_a)
func (ctx *Context) MemAlloc(size int) (DevicePtr, error) {
	if err := ctx.alive(); err != nil {
		return DevicePtr{}, err
	}
	return ctx.memory.allocate(size, allocDevice)
}

// MemFree releases device memory allocated by MemAlloc.
// The memory may be retained in the pool for future allocations.
func (ctx *Context) MemFree(ptr DevicePtr) error {
	if err := ctx.alive(); err != nil {
		return err
	}
	return ctx.memory.free("MemFree", ptr, allocDevice)
}

// MemAllocHost allocates pinned host memory that is directly addressable
// by kernels, with no copy step. This is the unified-memory path: the
// returned DevicePtr doubles as the host view of the buffer.
//
// Example:
//
//	d_a, _ := ctx.MemAllocHost(n * 4)
//	a := d_a.Int32()
//	a[0] = 42 // visible to kernels without MemcpyHtoD
func (ctx *Context) MemAllocHost(size int) (DevicePtr, error) {
	if err := ctx.alive(); err != nil {
		return DevicePtr{}, err
	}
	return ctx.memory.allocate(size, allocHost)
}

// MemFreeHost releases pinned host memory allocated by MemAllocHost.
func (ctx *Context) MemFreeHost(ptr DevicePtr) error {
	if err := ctx.alive(); err != nil {
		return err
	}
	return ctx.memory.free("MemFreeHost", ptr, allocHost)
}

// MemcpyHtoD copies n bytes from a host slice to device memory.
// Supported host types: []byte, []int32, []int64, []float32, []float64.
// Like the synchronous driver copies, it waits for work already queued on
// the default stream before touching the buffers.
func (ctx *Context) MemcpyHtoD(dst DevicePtr, src interface{}, n int) error {
	if err := ctx.alive(); err != nil {
		return err
	}
	ctx.defaultStream.Synchronize()
	srcPtr, srcLen, err := hostPointer("MemcpyHtoD", src)
	if err != nil {
		return err
	}
	if n > srcLen {
		return NewInvalidArgError("MemcpyHtoD", fmt.Sprintf("copy of %d bytes exceeds host buffer of %d", n, srcLen))
	}
	if n > dst.size {
		return NewMemoryError("MemcpyHtoD", fmt.Sprintf("copy of %d bytes exceeds device buffer of %d", n, dst.size), nil)
	}
	memmove(dst.ptr, srcPtr, n)
	return nil
}

// MemcpyDtoH copies n bytes from device memory to a host slice. It waits
// for work already queued on the default stream, so a kernel launched
// before the copy is observed complete.
func (ctx *Context) MemcpyDtoH(dst interface{}, src DevicePtr, n int) error {
	if err := ctx.alive(); err != nil {
		return err
	}
	ctx.defaultStream.Synchronize()
	dstPtr, dstLen, err := hostPointer("MemcpyDtoH", dst)
	if err != nil {
		return err
	}
	if n > dstLen {
		return NewInvalidArgError("MemcpyDtoH", fmt.Sprintf("copy of %d bytes exceeds host buffer of %d", n, dstLen))
	}
	if n > src.size {
		return NewMemoryError("MemcpyDtoH", fmt.Sprintf("copy of %d bytes exceeds device buffer of %d", n, src.size), nil)
	}
	memmove(dstPtr, src.ptr, n)
	return nil
}

// MemcpyDtoD copies n bytes between device buffers, after draining the
// default stream.
func (ctx *Context) MemcpyDtoD(dst, src DevicePtr, n int) error {
	if err := ctx.alive(); err != nil {
		return err
	}
	ctx.defaultStream.Synchronize()
	if n > src.size || n > dst.size {
		return NewMemoryError("MemcpyDtoD", fmt.Sprintf("copy of %d bytes exceeds buffer bounds (%d dst, %d src)", n, dst.size, src.size), nil)
	}
	memmove(dst.ptr, src.ptr, n)
	return nil
}

// hostPointer extracts the base pointer and byte length of a host slice.
func hostPointer(op string, v interface{}) (unsafe.Pointer, int, error) {
	switch s := v.(type) {
	case []byte:
		if len(s) == 0 {
			return nil, 0, nil
		}
		return unsafe.Pointer(&s[0]), len(s), nil
	case []int32:
		if len(s) == 0 {
			return nil, 0, nil
		}
		return unsafe.Pointer(&s[0]), len(s) * 4, nil
	case []int64:
		if len(s) == 0 {
			return nil, 0, nil
		}
		return unsafe.Pointer(&s[0]), len(s) * 8, nil
	case []float32:
		if len(s) == 0 {
			return nil, 0, nil
		}
		return unsafe.Pointer(&s[0]), len(s) * 4, nil
	case []float64:
		if len(s) == 0 {
			return nil, 0, nil
		}
		return unsafe.Pointer(&s[0]), len(s) * 8, nil
	default:
		return nil, 0, NewInvalidArgError(op, fmt.Sprintf("unsupported host type: %T", v))
	}
}

func memmove(dst, src unsafe.Pointer, n int) {
	if dst == nil || src == nil || n <= 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}

// MemoryPool methods

// allocate hands out an aligned block, reusing a free-listed one when possible.
func (mp *MemoryPool) allocate(size int, kind allocKind) (DevicePtr, error) {
	if size <= 0 {
		return DevicePtr{}, ErrInvalidSize
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	alignedSize := size
	if alignedSize < MinAllocationSize {
		alignedSize = MinAllocationSize
	}
	alignedSize = (alignedSize + MemoryAlignment - 1) &^ (MemoryAlignment - 1)

	// Try to reuse from free list
	for i, alloc := range mp.freeList {
		if alloc.size >= alignedSize && alloc.kind == kind {
			mp.freeList = append(mp.freeList[:i], mp.freeList[i+1:]...)
			alloc.used = true

			mp.totalAlloc += int64(alloc.size)
			if mp.totalAlloc > mp.peakAlloc {
				mp.peakAlloc = mp.totalAlloc
			}

			return DevicePtr{ptr: alloc.ptr, size: size}, nil
		}
	}

	// Allocate new memory. Over-allocating by the alignment lets us place
	// the base pointer on an alignment boundary regardless of where the
	// runtime put the backing array.
	buf := make([]byte, alignedSize+MemoryAlignment)
	base := uintptr(unsafe.Pointer(&buf[0]))
	shift := 0
	if rem := int(base % MemoryAlignment); rem != 0 {
		shift = MemoryAlignment - rem
	}
	ptr := unsafe.Pointer(&buf[shift])

	alloc := &allocation{
		buf:  buf,
		ptr:  ptr,
		size: alignedSize,
		kind: kind,
		used: true,
	}
	mp.allocated[uintptr(ptr)] = alloc

	mp.totalAlloc += int64(alignedSize)
	if mp.totalAlloc > mp.peakAlloc {
		mp.peakAlloc = mp.totalAlloc
	}

	return DevicePtr{ptr: ptr, size: size}, nil
}

// free returns memory to the pool
func (mp *MemoryPool) free(op string, ptr DevicePtr, kind allocKind) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	alloc, ok := mp.allocated[uintptr(ptr.ptr)]
	if !ok {
		return NewMemoryError(op, "pointer not found in allocation pool", nil)
	}
	if alloc.kind != kind {
		return NewMemoryError(op, "allocation kind mismatch (device vs pinned host)", nil)
	}
	if !alloc.used {
		return ErrDoubleFree
	}

	alloc.used = false
	mp.freeList = append(mp.freeList, alloc)
	mp.totalAlloc -= int64(alloc.size)
	return nil
}

// GetStats returns memory pool statistics
func (mp *MemoryPool) GetStats() (allocated, peak int64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.totalAlloc, mp.peakAlloc
}

// MemGetInfo returns the current and peak pool allocation for the context.
func (ctx *Context) MemGetInfo() (allocated, peak int64, err error) {
	if err := ctx.alive(); err != nil {
		return 0, 0, err
	}
	allocated, peak = ctx.memory.GetStats()
	return allocated, peak, nil
}

// DevicePtr methods for convenience

// Int32 returns an int32 slice view of the device memory.
// The slice can be used directly for reading and writing data.
//
// Example:
//
//	d_a, _ := ctx.MemAlloc(10 * 4)
//	a := d_a.Int32()
//	a[0] = 42 // Direct access
func (d DevicePtr) Int32() []int32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*int32)(d.ptr), d.size/4)
}

// Int64 returns an int64 slice view of the device memory.
func (d DevicePtr) Int64() []int64 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*int64)(d.ptr), d.size/8)
}

// Float32 returns a float32 slice view of the device memory.
func (d DevicePtr) Float32() []float32 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float32)(d.ptr), d.size/4)
}

// Float64 returns a float64 slice view of the device memory.
func (d DevicePtr) Float64() []float64 {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float64)(d.ptr), d.size/8)
}

// Byte returns a byte slice view of the entire memory region.
func (d DevicePtr) Byte() []byte {
	if d.ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(d.ptr), d.size)
}

// Offset returns a new DevicePtr offset by the given number of bytes.
// The returned DevicePtr shares the same underlying memory.
//
// Example:
//
//	d_array, _ := ctx.MemAlloc(1024 * 4)
//	d_tail := d_array.Offset(512 * 4)
func (d DevicePtr) Offset(bytes int) DevicePtr {
	return DevicePtr{
		ptr:    unsafe.Pointer(uintptr(d.ptr) + uintptr(bytes)),
		size:   d.size - bytes,
		offset: d.offset + bytes,
	}
}

// Size returns the size in bytes of the memory region
func (d DevicePtr) Size() int {
	return d.size
}

// IsNil reports whether the pointer refers to no allocation.
func (d DevicePtr) IsNil() bool {
	return d.ptr == nil
}
