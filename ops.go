package culite

// Convenience wrappers over the builtin kernels. These launch on the
// default stream with DefaultBlockSize threads per block; callers still
// synchronize explicitly.

// Add computes c[i] = a[i] + b[i] for n int32 elements.
//
// Example:
//
//	ctx.Add(d_a, d_b, d_c, n)
//	ctx.StreamSynchronize(nil)
func (ctx *Context) Add(a, b, c DevicePtr, n int) error {
	return ctx.LaunchFunc(sumInt32, elementwiseGrid(n), Dim1(DefaultBlockSize), nil, a, b, c, n)
}

// AddFloat32 computes c[i] = a[i] + b[i] for n float32 elements.
func (ctx *Context) AddFloat32(a, b, c DevicePtr, n int) error {
	return ctx.LaunchFunc(sumFloat32, elementwiseGrid(n), Dim1(DefaultBlockSize), nil, a, b, c, n)
}

// AddFloat64 computes c[i] = a[i] + b[i] for n float64 elements.
func (ctx *Context) AddFloat64(a, b, c DevicePtr, n int) error {
	return ctx.LaunchFunc(sumFloat64, elementwiseGrid(n), Dim1(DefaultBlockSize), nil, a, b, c, n)
}

// Scale computes x[i] *= alpha for n float32 elements.
func (ctx *Context) Scale(alpha float32, x DevicePtr, n int) error {
	return ctx.LaunchFunc(scaleFloat32, elementwiseGrid(n), Dim1(DefaultBlockSize), nil, x, alpha, n)
}

func elementwiseGrid(n int) Dim3 {
	return Dim1((n + DefaultBlockSize - 1) / DefaultBlockSize)
}
