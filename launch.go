package culite

import (
	"fmt"
	"runtime"
	"sync"
)

// Dim3 represents 3D dimensions for grid and block configurations.
// This matches the dim3 structure of GPU kernel launch parameters.
type Dim3 struct {
	X, Y, Z int
}

// Dim1 is a convenience constructor for one-dimensional launches.
func Dim1(x int) Dim3 {
	return Dim3{X: x, Y: 1, Z: 1}
}

// Size returns the total number of elements
func (d Dim3) Size() int {
	return d.X * d.Y * d.Z
}

// ThreadID identifies a thread's position within the execution hierarchy.
// It provides the same indexing semantics as the GPU built-in variables:
// blockIdx, threadIdx, blockDim, and gridDim.
type ThreadID struct {
	BlockIdx  Dim3 // Block index within the grid
	ThreadIdx Dim3 // Thread index within the block
	BlockDim  Dim3 // Dimensions of the block
	GridDim   Dim3 // Dimensions of the grid
}

// Global returns the global thread index along X
func (tid ThreadID) Global() int {
	return tid.BlockIdx.X*tid.BlockDim.X + tid.ThreadIdx.X
}

// GlobalY returns the global Y index
func (tid ThreadID) GlobalY() int {
	return tid.BlockIdx.Y*tid.BlockDim.Y + tid.ThreadIdx.Y
}

// GlobalZ returns the global Z index
func (tid ThreadID) GlobalZ() int {
	return tid.BlockIdx.Z*tid.BlockDim.Z + tid.ThreadIdx.Z
}

// Kernel represents a compute kernel that can be executed in parallel.
// Implementations must be safe for concurrent calls: Execute runs from
// multiple goroutines at once.
type Kernel interface {
	Execute(tid ThreadID, args ...interface{})
}

// KernelFunc is a function that can be launched as a kernel.
// It receives thread identification and variadic launch arguments.
type KernelFunc func(tid ThreadID, args ...interface{})

// Execute implements Kernel
func (fn KernelFunc) Execute(tid ThreadID, args ...interface{}) {
	fn(tid, args...)
}

// LaunchKernel executes a module function across a grid of thread blocks,
// mirroring the driver launch signature: grid and block dimensions, a
// shared-memory size, a stream, and the kernel arguments. A nil stream
// selects the default stream. The shared-memory size is accepted for API
// fidelity and ignored; CPU kernels address ordinary memory.
//
// Example:
//
//	ctx.LaunchKernel(fn, culite.Dim1((n+255)/256), culite.Dim1(256), 0, nil, d_a, d_b, d_c, n)
func (ctx *Context) LaunchKernel(f *Function, grid, block Dim3, sharedMem int, stream *Stream, args ...interface{}) error {
	if f == nil {
		return NewInvalidArgError("LaunchKernel", "nil function")
	}
	if f.mod.unloaded.Load() {
		return ErrModuleUnloaded
	}
	if sharedMem < 0 {
		return NewInvalidArgError("LaunchKernel", "negative shared memory size")
	}
	return ctx.LaunchFunc(f.fn, grid, block, stream, args...)
}

// LaunchFunc executes a raw kernel function without going through a module.
// A nil stream selects the default stream.
func (ctx *Context) LaunchFunc(fn KernelFunc, grid, block Dim3, stream *Stream, args ...interface{}) error {
	if err := ctx.alive(); err != nil {
		return err
	}
	if fn == nil {
		return NewInvalidArgError("LaunchFunc", "nil kernel")
	}
	if err := checkLaunchDims(grid, block); err != nil {
		return err
	}
	if stream == nil {
		stream = ctx.defaultStream
	}
	launchInternal(fn, grid, block, stream, args...)
	return nil
}

func checkLaunchDims(grid, block Dim3) error {
	for _, d := range []Dim3{grid, block} {
		if d.X < 0 || d.Y < 0 || d.Z < 0 {
			return NewInvalidArgError("LaunchKernel", fmt.Sprintf("negative dimension: %+v", d))
		}
	}
	if block.Size() > MaxThreadsPerBlock {
		return NewInvalidArgError("LaunchKernel",
			fmt.Sprintf("block of %d threads exceeds limit of %d", block.Size(), MaxThreadsPerBlock))
	}
	if block.X > MaxBlockDimX {
		return NewInvalidArgError("LaunchKernel",
			fmt.Sprintf("block X dimension %d exceeds limit of %d", block.X, MaxBlockDimX))
	}
	return nil
}

// launchInternal implements the core kernel execution logic
func launchInternal(
	kernelFunc func(ThreadID, ...interface{}),
	grid, block Dim3,
	stream *Stream,
	args ...interface{},
) {
	gridSize := grid.Size()
	blockSize := block.Size()

	// A zero-size grid still submits an empty task to maintain stream ordering.
	if gridSize == 0 || blockSize == 0 {
		stream.Submit(func() {})
		return
	}

	numWorkers := runtime.NumCPU()
	if gridSize < numWorkers {
		numWorkers = gridSize
	}

	// Cache-aware scheduling: each worker processes a contiguous range of
	// blocks to maximize cache reuse.
	blocksPerWorker := (gridSize + numWorkers - 1) / numWorkers

	stream.Submit(func() {
		var wg sync.WaitGroup
		wg.Add(numWorkers)

		for workerID := 0; workerID < numWorkers; workerID++ {
			startBlock := workerID * blocksPerWorker
			endBlock := startBlock + blocksPerWorker
			if endBlock > gridSize {
				endBlock = gridSize
			}

			go func(start, end int) {
				defer wg.Done()

				for blockID := start; blockID < end; blockID++ {
					blockIdx := linearTo3D(blockID, grid)

					// Threads within a block run sequentially on one
					// worker. This maximizes cache reuse and avoids
					// per-thread synchronization.
					for threadID := 0; threadID < blockSize; threadID++ {
						tid := ThreadID{
							BlockIdx:  blockIdx,
							ThreadIdx: linearTo3D(threadID, block),
							BlockDim:  block,
							GridDim:   grid,
						}
						kernelFunc(tid, args...)
					}
				}
			}(startBlock, endBlock)
		}

		wg.Wait()
	})
}

// linearTo3D converts a linear index to 3D coordinates
func linearTo3D(linear int, dim Dim3) Dim3 {
	z := linear / (dim.X * dim.Y)
	y := (linear % (dim.X * dim.Y)) / dim.X
	x := linear % dim.X
	return Dim3{X: x, Y: y, Z: z}
}
