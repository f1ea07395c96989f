package culite

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/culite/culite/kimage"
)

// Module represents a loaded kernel module. Its manifest declares the
// kernel symbols the module exports; resolving a symbol binds the manifest
// entry to a kernel registered in this process.
type Module struct {
	ctx      *Context
	manifest *kimage.Manifest
	unloaded atomic.Bool
}

// Function is a handle to a kernel resolved from a module, ready to launch.
type Function struct {
	mod  *Module
	name string
	fn   KernelFunc
}

// Name returns the kernel name the function was resolved under.
func (f *Function) Name() string {
	return f.name
}

// Kernel registry. Module images carry symbol manifests, not code; a
// symbol resolves only if a kernel with the same name has been registered.
var kernelRegistry = struct {
	sync.RWMutex
	fns map[string]KernelFunc
}{fns: make(map[string]KernelFunc)}

// RegisterKernel makes a kernel available for resolution from module
// manifests. Registering a name twice is an error.
func RegisterKernel(name string, fn KernelFunc) error {
	if name == "" {
		return NewInvalidArgError("RegisterKernel", "empty kernel name")
	}
	if fn == nil {
		return NewInvalidArgError("RegisterKernel", "nil kernel")
	}
	kernelRegistry.Lock()
	defer kernelRegistry.Unlock()
	if _, exists := kernelRegistry.fns[name]; exists {
		return NewInvalidArgError("RegisterKernel", fmt.Sprintf("kernel %q already registered", name))
	}
	kernelRegistry.fns[name] = fn
	return nil
}

func mustRegisterKernel(name string, fn KernelFunc) {
	if err := RegisterKernel(name, fn); err != nil {
		panic(err)
	}
}

func registeredKernel(name string) (KernelFunc, bool) {
	kernelRegistry.RLock()
	defer kernelRegistry.RUnlock()
	fn, ok := kernelRegistry.fns[name]
	return fn, ok
}

// LoadModule loads a kernel module image from a file.
//
// Example:
//
//	mod, err := ctx.LoadModule("vecadd.kmod")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fn, err := mod.Function("Sum")
func (ctx *Context) LoadModule(path string) (*Module, error) {
	if err := ctx.alive(); err != nil {
		return nil, err
	}
	r, err := kimage.Open(path)
	if err != nil {
		return nil, NewModuleError("LoadModule", fmt.Sprintf("loading %s", path), err)
	}
	return ctx.loadModule(r)
}

// LoadModuleData loads a kernel module image from memory, the analog of
// loading a module from an embedded or generated image.
func (ctx *Context) LoadModuleData(data []byte) (*Module, error) {
	if err := ctx.alive(); err != nil {
		return nil, err
	}
	r, err := kimage.NewReader(data)
	if err != nil {
		return nil, NewModuleError("LoadModuleData", "parsing image", err)
	}
	return ctx.loadModule(r)
}

func (ctx *Context) loadModule(r *kimage.Reader) (*Module, error) {
	manifest, err := r.Manifest()
	if err != nil {
		return nil, NewModuleError("LoadModule", "reading manifest", err)
	}
	if len(manifest.Symbols) == 0 {
		return nil, NewModuleError("LoadModule", fmt.Sprintf("module %q exports no symbols", manifest.Name), nil)
	}
	return &Module{ctx: ctx, manifest: manifest}, nil
}

// Name returns the module name from its manifest.
func (m *Module) Name() string {
	return m.manifest.Name
}

// Symbols returns the names of the kernels the module exports.
func (m *Module) Symbols() []string {
	names := make([]string, len(m.manifest.Symbols))
	for i, s := range m.manifest.Symbols {
		names[i] = s.Name
	}
	return names
}

// Function resolves an exported kernel by name.
func (m *Module) Function(name string) (*Function, error) {
	if m.unloaded.Load() {
		return nil, ErrModuleUnloaded
	}
	if _, ok := m.manifest.Lookup(name); !ok {
		return nil, NewModuleError("Function",
			fmt.Sprintf("module %q does not export %q", m.manifest.Name, name), ErrSymbolNotFound)
	}
	fn, ok := registeredKernel(name)
	if !ok {
		return nil, NewModuleError("Function",
			fmt.Sprintf("kernel %q is not registered in this process", name), nil)
	}
	return &Function{mod: m, name: name, fn: fn}, nil
}

// Unload releases the module. Functions resolved from it can no longer be
// launched.
func (m *Module) Unload() error {
	if !m.unloaded.CompareAndSwap(false, true) {
		return ErrModuleUnloaded
	}
	return nil
}
