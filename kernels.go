// Package culite builtin kernels available to module manifests
package culite

import (
	"github.com/culite/culite/kimage"
)

// Builtin elementwise kernels. All follow the launch argument convention
// (dst/src buffers as DevicePtr, element count as int) and bounds-check the
// global thread index, since the grid usually overshoots the element count.

func init() {
	mustRegisterKernel("Sum", sumInt32)
	mustRegisterKernel("SumFloat32", sumFloat32)
	mustRegisterKernel("SumFloat64", sumFloat64)
	mustRegisterKernel("Scale", scaleFloat32)
}

// sumInt32 computes c[i] = a[i] + b[i] over int32 elements.
// Args: a, b, c DevicePtr, n int.
func sumInt32(tid ThreadID, args ...interface{}) {
	i := tid.Global()
	n := args[3].(int)
	if i >= n {
		return
	}
	a := args[0].(DevicePtr).Int32()
	b := args[1].(DevicePtr).Int32()
	c := args[2].(DevicePtr).Int32()
	c[i] = a[i] + b[i]
}

// sumFloat32 computes c[i] = a[i] + b[i] over float32 elements.
// Args: a, b, c DevicePtr, n int.
func sumFloat32(tid ThreadID, args ...interface{}) {
	i := tid.Global()
	n := args[3].(int)
	if i >= n {
		return
	}
	a := args[0].(DevicePtr).Float32()
	b := args[1].(DevicePtr).Float32()
	c := args[2].(DevicePtr).Float32()
	c[i] = a[i] + b[i]
}

// sumFloat64 computes c[i] = a[i] + b[i] over float64 elements.
// Args: a, b, c DevicePtr, n int.
func sumFloat64(tid ThreadID, args ...interface{}) {
	i := tid.Global()
	n := args[3].(int)
	if i >= n {
		return
	}
	a := args[0].(DevicePtr).Float64()
	b := args[1].(DevicePtr).Float64()
	c := args[2].(DevicePtr).Float64()
	c[i] = a[i] + b[i]
}

// scaleFloat32 computes x[i] *= alpha over float32 elements.
// Args: x DevicePtr, alpha float32, n int.
func scaleFloat32(tid ThreadID, args ...interface{}) {
	i := tid.Global()
	n := args[2].(int)
	if i >= n {
		return
	}
	x := args[0].(DevicePtr).Float32()
	alpha := args[1].(float32)
	x[i] *= alpha
}

// BuiltinManifest describes the kernels registered by this package, in the
// form a module image carries. Demos and the kmodpack tool build loadable
// images from it without shipping a module file.
func BuiltinManifest() *kimage.Manifest {
	return &kimage.Manifest{
		Name:    "culite-builtin",
		Version: ComputeCapabilityMajor,
		Symbols: []kimage.Symbol{
			{Name: "Sum", Elem: "int32", Args: 4, Doc: "c[i] = a[i] + b[i]"},
			{Name: "SumFloat32", Elem: "float32", Args: 4, Doc: "c[i] = a[i] + b[i]"},
			{Name: "SumFloat64", Elem: "float64", Args: 4, Doc: "c[i] = a[i] + b[i]"},
			{Name: "Scale", Elem: "float32", Args: 3, Doc: "x[i] *= alpha"},
		},
	}
}

// BuiltinImage assembles an in-memory module image exporting the builtin
// kernels, suitable for LoadModuleData.
func BuiltinImage() ([]byte, error) {
	return kimage.Build(BuiltinManifest(), kimage.FlagCompZSTD)
}
