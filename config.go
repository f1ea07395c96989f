// Package culite configuration constants
package culite

// Emulated compute capability reported through device attributes.
// The major version tracks the format version of kernel module images
// this runtime can load.
const (
	ComputeCapabilityMajor = 1
	ComputeCapabilityMinor = 0
)

// Thread and block dimensions
const (
	// Default block size for kernels
	DefaultBlockSize = 256

	// Maximum threads along the X dimension of a block
	MaxBlockDimX = 1024

	// Maximum total threads per block
	MaxThreadsPerBlock = 1024

	// Maximum grid dimension along any axis
	MaxGridDim = 1 << 31 - 1
)

// Memory pool parameters
const (
	// Memory alignment for allocations, one cache line
	MemoryAlignment = 64

	// Minimum allocation size to prevent fragmentation
	MinAllocationSize = 64
)

// fallbackSystemMemory is reported as the device total memory when the
// platform offers no way to query it.
const fallbackSystemMemory = 16 * 1024 * 1024 * 1024
