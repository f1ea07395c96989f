// Command vectoradd-unified performs a parallel vector addition through
// pinned host memory: the kernel reads and writes host-visible buffers
// directly, so no explicit copy step is needed. It synchronizes the
// default stream before inspecting the result.
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

	uva, err := dev.Attribute(culite.AttrUnifiedAddressing)
	check(err)
	if uva == 0 {
		fmt.Fprintln(os.Stderr, "Unified addressing is not supported on this device")
		os.Exit(1)
	}
	fmt.Println("  Unified addressing is supported on this device")

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

	// Allocate pinned host memory; the kernel addresses it directly.
	bytes := *n * 4
	dA, err := ctx.MemAllocHost(bytes)
	check(err)
	dB, err := ctx.MemAllocHost(bytes)
	check(err)
	dC, err := ctx.MemAllocHost(bytes)
	check(err)

	a := dA.Int32()
	b := dB.Int32()
	c := dC.Int32()
	for i := 0; i < *n; i++ {
		a[i] = int32(*n - i)
		b[i] = int32(i * i)
	}

	// No copy step: the buffers are already device-visible.

	blockSize, err := dev.Attribute(culite.AttrMaxBlockDimX)
	check(err)
	grid := culite.Dim1((*n + blockSize - 1) / blockSize)
	block := culite.Dim1(blockSize)

	fmt.Println("# Running the kernel...")
	check(ctx.LaunchKernel(fn, grid, block, 0, nil, dA, dB, dC, *n))

	// Wait for the default stream, or the computation may not be done yet.
	check(ctx.StreamSynchronize(nil))
	fmt.Println("# Kernel complete.")

	ok := true
	for i := 0; i < *n; i++ {
		if c[i] != a[i]+b[i] {
			fmt.Printf("* Error at array position %d: Expected %d, Got %d\n", i, a[i]+b[i], c[i])
			ok = false
		}
	}

	fmt.Println("- Finalizing...")
	check(ctx.MemFreeHost(dA))
	check(ctx.MemFreeHost(dB))
	check(ctx.MemFreeHost(dC))

	if !ok {
		fmt.Println("*** Result incorrect.")
		os.Exit(1)
	}
	fmt.Println("*** All checks complete.")
}
