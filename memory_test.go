package culite

import (
	"math"
	"math/rand"
	"testing"
)

// Test basic memory allocation and deallocation
func TestMemoryAllocation(t *testing.T) {
	ctx := testContext(t)
	sizes := []int{100, 1000, 10000, 1000000}

	for _, size := range sizes {
		ptr, err := ctx.MemAlloc(size * 4)
		if err != nil {
			t.Fatalf("Failed to allocate %d bytes: %v", size*4, err)
		}

		// Verify we can access the memory
		slice := ptr.Int32()
		if len(slice) != size {
			t.Errorf("Expected slice length %d, got %d", size, len(slice))
		}

		// Write and read test
		for i := 0; i < min(100, size); i++ {
			slice[i] = int32(i)
		}
		for i := 0; i < min(100, size); i++ {
			if slice[i] != int32(i) {
				t.Errorf("Memory corruption at index %d", i)
			}
		}

		if err := ctx.MemFree(ptr); err != nil {
			t.Fatalf("Failed to free memory: %v", err)
		}
	}
}

func TestMemAllocInvalidSize(t *testing.T) {
	ctx := testContext(t)

	if _, err := ctx.MemAlloc(0); err == nil {
		t.Error("MemAlloc(0) should have failed")
	}
	if _, err := ctx.MemAlloc(-4); err == nil {
		t.Error("MemAlloc(-4) should have failed")
	}
}

// Test memory copy operations
func TestMemcpy(t *testing.T) {
	ctx := testContext(t)
	const N = 1000

	h_src := make([]float32, N)
	h_dst := make([]float32, N)
	for i := 0; i < N; i++ {
		h_src[i] = rand.Float32()
	}

	d_src := MemAllocOrFail(t, ctx, N*4)
	d_dst := MemAllocOrFail(t, ctx, N*4)
	defer ctx.MemFree(d_src)
	defer ctx.MemFree(d_dst)

	if err := ctx.MemcpyHtoD(d_src, h_src, N*4); err != nil {
		t.Fatalf("HtoD copy failed: %v", err)
	}
	if err := ctx.MemcpyDtoD(d_dst, d_src, N*4); err != nil {
		t.Fatalf("DtoD copy failed: %v", err)
	}
	if err := ctx.MemcpyDtoH(h_dst, d_dst, N*4); err != nil {
		t.Fatalf("DtoH copy failed: %v", err)
	}

	for i := 0; i < N; i++ {
		if math.Abs(float64(h_src[i]-h_dst[i])) > 1e-6 {
			t.Errorf("Data mismatch at index %d: %f vs %f", i, h_src[i], h_dst[i])
		}
	}
}

func TestMemcpyBounds(t *testing.T) {
	ctx := testContext(t)

	d := MemAllocOrFail(t, ctx, 16)
	defer ctx.MemFree(d)
	h := make([]int32, 4)

	if err := ctx.MemcpyHtoD(d, h, 32); err == nil {
		t.Error("HtoD copy past host buffer should have failed")
	}
	if err := ctx.MemcpyDtoH(h, d, 32); err == nil {
		t.Error("DtoH copy past device buffer should have failed")
	}
	if err := ctx.MemcpyHtoD(d, "not a slice", 16); err == nil {
		t.Error("HtoD copy from unsupported host type should have failed")
	}
	if !IsInvalidArgError(ctx.MemcpyHtoD(d, "not a slice", 16)) {
		t.Error("Expected an invalid argument error for unsupported host type")
	}
}

func TestPinnedHostMemory(t *testing.T) {
	ctx := testContext(t)
	const N = 256

	d, err := ctx.MemAllocHost(N * 4)
	if err != nil {
		t.Fatalf("MemAllocHost failed: %v", err)
	}

	// Host writes are directly device-visible.
	host := d.Int32()
	for i := range host {
		host[i] = int32(i)
	}

	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		idx := tid.Global()
		if idx < N {
			host[idx] *= 2
		}
	})
	LaunchOrFail(t, ctx, kernel, Dim1(1), Dim1(N))
	SynchronizeOrFail(t, ctx)

	for i := 0; i < N; i++ {
		if host[i] != int32(2*i) {
			t.Errorf("Unexpected value at %d: got %d", i, host[i])
		}
	}

	// Freeing pinned memory through the device path must be rejected.
	if err := ctx.MemFree(d); err == nil {
		t.Error("MemFree on pinned host memory should have failed")
	}
	if err := ctx.MemFreeHost(d); err != nil {
		t.Fatalf("MemFreeHost failed: %v", err)
	}
	if err := ctx.MemFreeHost(d); err == nil {
		t.Error("Double free should have failed")
	}
}

func TestDoubleFree(t *testing.T) {
	ctx := testContext(t)

	ptr := MemAllocOrFail(t, ctx, 100)
	if err := ctx.MemFree(ptr); err != nil {
		t.Fatalf("First free failed: %v", err)
	}
	err := ctx.MemFree(ptr)
	if err == nil {
		t.Error("Double free should have failed")
	}
	if !IsMemoryError(err) {
		t.Errorf("Expected a memory error, got %v", err)
	}
}

func TestDevicePtrOffset(t *testing.T) {
	ctx := testContext(t)
	const N = 1024

	d := MemAllocOrFail(t, ctx, N*4)
	defer ctx.MemFree(d)

	full := d.Int32()
	for i := range full {
		full[i] = int32(i)
	}

	tail := d.Offset(512 * 4)
	if tail.Size() != 512*4 {
		t.Errorf("Expected offset size %d, got %d", 512*4, tail.Size())
	}
	view := tail.Int32()
	if view[0] != 512 {
		t.Errorf("Expected first element 512, got %d", view[0])
	}
}

// Test memory pool statistics
func TestMemoryPoolStats(t *testing.T) {
	ctx := testContext(t)

	allocated1, _, err := ctx.MemGetInfo()
	if err != nil {
		t.Fatalf("MemGetInfo failed: %v", err)
	}

	ptrs := make([]DevicePtr, 10)
	for i := range ptrs {
		ptrs[i] = MemAllocOrFail(t, ctx, 1024*1024)
	}

	allocated2, peak2, _ := ctx.MemGetInfo()
	if allocated2 <= allocated1 {
		t.Error("Allocated memory should have increased")
	}
	if peak2 < allocated2 {
		t.Error("Peak should be at least current allocation")
	}

	for i := 0; i < 5; i++ {
		ctx.MemFree(ptrs[i])
	}

	allocated3, peak3, _ := ctx.MemGetInfo()
	if allocated3 >= allocated2 {
		t.Error("Allocated memory should have decreased")
	}
	if peak3 != peak2 {
		t.Error("Peak should not have changed")
	}

	for i := 5; i < 10; i++ {
		ctx.MemFree(ptrs[i])
	}
}

func TestPoolReusesFreedBlocks(t *testing.T) {
	ctx := testContext(t)

	a := MemAllocOrFail(t, ctx, 4096)
	if err := ctx.MemFree(a); err != nil {
		t.Fatalf("Free failed: %v", err)
	}

	// A same-size allocation should come back from the free list with the
	// same base pointer.
	b := MemAllocOrFail(t, ctx, 4096)
	defer ctx.MemFree(b)
	if a.Byte() == nil || b.Byte() == nil {
		t.Fatal("Expected non-nil views")
	}
	if &a.Byte()[0] != &b.Byte()[0] {
		t.Error("Expected the freed block to be reused")
	}
}
