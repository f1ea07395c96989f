// Command vectoradd performs a parallel vector addition through the
// explicit device-memory path: allocate device buffers, copy the inputs
// over, launch the Sum kernel, and copy the result back for verification.
package main

import (
	"flag"
	"fmt"
	"os"

	culite "github.com/culite/culite"
)

const kernelName = "Sum"

func check(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Driver error: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	n := flag.Int("n", 10, "number of vector elements")
	modulePath := flag.String("module", "", "kernel module image to load (default: builtin image)")
	flag.Parse()

	fmt.Println("- Initializing...")
	check(culite.Init())

	count, err := culite.DeviceGetCount()
	check(err)
	if count == 0 {
		fmt.Fprintln(os.Stderr, "Error: no compute devices available")
		os.Exit(1)
	}

	dev, err := culite.DeviceGet(0)
	check(err)
	fmt.Printf("> Using device 0: %s\n", dev.Name)

	major, err := dev.Attribute(culite.AttrComputeCapabilityMajor)
	check(err)
	minor, err := dev.Attribute(culite.AttrComputeCapabilityMinor)
	check(err)
	fmt.Printf("> Device has compute capability %d.%d\n", major, minor)

	fmt.Printf("  Total amount of global memory:   %d bytes\n", dev.TotalMem)
	addr64 := "NO"
	if dev.TotalMem > 4*1024*1024*1024 {
		addr64 = "YES"
	}
	fmt.Printf("  64-bit Memory Address:           %s\n", addr64)

	ctx, err := culite.CtxCreate(dev)
	check(err)
	defer ctx.Destroy()

	var mod *culite.Module
	if *modulePath != "" {
		mod, err = ctx.LoadModule(*modulePath)
	} else {
		var image []byte
		image, err = culite.BuiltinImage()
		check(err)
		mod, err = ctx.LoadModuleData(image)
	}
	check(err)

	fn, err := mod.Function(kernelName)
	check(err)

	// Initialize host arrays.
	a := make([]int32, *n)
	b := make([]int32, *n)
	c := make([]int32, *n)
	for i := 0; i < *n; i++ {
		a[i] = int32(*n - i)
		b[i] = int32(i * i)
	}

	// Allocate device memory and copy the addends over.
	bytes := *n * 4
	dA, err := ctx.MemAlloc(bytes)
	check(err)
	dB, err := ctx.MemAlloc(bytes)
	check(err)
	dC, err := ctx.MemAlloc(bytes)
	check(err)

	check(ctx.MemcpyHtoD(dA, a, bytes))
	check(ctx.MemcpyHtoD(dB, b, bytes))

	blockSize, err := dev.Attribute(culite.AttrMaxBlockDimX)
	check(err)
	grid := culite.Dim1((*n + blockSize - 1) / blockSize)
	block := culite.Dim1(blockSize)

	fmt.Println("# Running the kernel...")
	check(ctx.LaunchKernel(fn, grid, block, 0, nil, dA, dB, dC, *n))
	fmt.Println("# Kernel complete.")

	// Copy results to host and report.
	check(ctx.MemcpyDtoH(c, dC, bytes))

	ok := true
	for i := 0; i < *n; i++ {
		if c[i] != a[i]+b[i] {
			fmt.Printf("* Error at array position %d: Expected %d, Got %d\n", i, a[i]+b[i], c[i])
			ok = false
		}
	}

	fmt.Println("- Finalizing...")
	check(ctx.MemFree(dA))
	check(ctx.MemFree(dB))
	check(ctx.MemFree(dC))

	if !ok {
		fmt.Println("*** Result incorrect.")
		os.Exit(1)
	}
	fmt.Println("*** All checks complete.")
}
