// Package culite provides a driver-API-style compute runtime that executes
// on the host CPU.
//
// The API follows the shape of the low-level GPU driver interfaces: an
// explicit Init, device enumeration and attribute queries, contexts, kernel
// module loading with symbol resolution, device and pinned host memory,
// grid/block kernel launches, and stream synchronization. Kernels are Go
// functions executed in parallel across a grid of thread blocks.
//
// Example usage:
//
//	culite.Init()
//	dev, _ := culite.DeviceGet(0)
//	ctx, _ := culite.CtxCreate(dev)
//	defer ctx.Destroy()
//
//	mod, _ := ctx.LoadModuleData(image)
//	fn, _ := mod.Function("Sum")
//
//	d_a, _ := ctx.MemAlloc(n * 4)
//	ctx.MemcpyHtoD(d_a, h_a, n*4)
//
//	grid := culite.Dim3{X: (n + 255) / 256, Y: 1, Z: 1}
//	block := culite.Dim3{X: 256, Y: 1, Z: 1}
//	ctx.LaunchKernel(fn, grid, block, 0, nil, d_a, d_b, d_c, n)
//	ctx.StreamSynchronize(nil)
package culite
