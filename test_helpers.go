package culite

import (
	"testing"
)

// MemAllocOrFail allocates device memory and fails the test if unsuccessful
func MemAllocOrFail(t testing.TB, ctx *Context, size int) DevicePtr {
	t.Helper()
	ptr, err := ctx.MemAlloc(size)
	if err != nil {
		t.Fatalf("Failed to allocate %d bytes: %v", size, err)
	}
	return ptr
}

// MemcpyHtoDOrFail copies host data to the device and fails the test if unsuccessful
func MemcpyHtoDOrFail(t testing.TB, ctx *Context, dst DevicePtr, src interface{}, n int) {
	t.Helper()
	if err := ctx.MemcpyHtoD(dst, src, n); err != nil {
		t.Fatalf("MemcpyHtoD failed: %v", err)
	}
}

// MemcpyDtoHOrFail copies device data to the host and fails the test if unsuccessful
func MemcpyDtoHOrFail(t testing.TB, ctx *Context, dst interface{}, src DevicePtr, n int) {
	t.Helper()
	if err := ctx.MemcpyDtoH(dst, src, n); err != nil {
		t.Fatalf("MemcpyDtoH failed: %v", err)
	}
}

// LaunchOrFail launches a kernel function and fails the test if unsuccessful
func LaunchOrFail(t testing.TB, ctx *Context, fn KernelFunc, grid, block Dim3, args ...interface{}) {
	t.Helper()
	if err := ctx.LaunchFunc(fn, grid, block, nil, args...); err != nil {
		t.Fatalf("Kernel launch failed: %v", err)
	}
}

// SynchronizeOrFail synchronizes the context and fails the test if unsuccessful
func SynchronizeOrFail(t testing.TB, ctx *Context) {
	t.Helper()
	if err := ctx.Synchronize(); err != nil {
		t.Fatalf("Synchronize failed: %v", err)
	}
}

// testContext creates a context for tests and registers its cleanup.
func testContext(t testing.TB) *Context {
	t.Helper()
	Init()
	dev, err := DeviceGet(0)
	if err != nil {
		t.Fatalf("DeviceGet failed: %v", err)
	}
	ctx, err := CtxCreate(dev)
	if err != nil {
		t.Fatalf("CtxCreate failed: %v", err)
	}
	t.Cleanup(func() { ctx.Destroy() })
	return ctx
}
