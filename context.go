package culite

import (
	"sync"
	"sync/atomic"
)

// Context represents an execution context bound to a device. It owns the
// memory pool and the streams on which kernels execute. A Context must be
// created before memory or launch operations and destroyed when no longer
// needed.
type Context struct {
	device        *Device
	mu            sync.Mutex
	streams       map[int]*Stream
	streamID      int32
	memory        *MemoryPool
	defaultStream *Stream
	destroyed     atomic.Bool
}

// CtxCreate creates an execution context on the given device.
//
// Example:
//
//	dev, _ := culite.DeviceGet(0)
//	ctx, err := culite.CtxCreate(dev)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Destroy()
func CtxCreate(dev *Device) (*Context, error) {
	stateMu.RLock()
	ok := initialized
	stateMu.RUnlock()
	if !ok {
		return nil, ErrNotInitialized
	}
	if dev == nil {
		return nil, NewInvalidArgError("CtxCreate", "nil device")
	}
	ctx := &Context{
		device:  dev,
		streams: make(map[int]*Stream),
		memory:  NewMemoryPool(),
	}
	ctx.defaultStream = ctx.newStream()
	return ctx, nil
}

// Device returns the device this context is bound to.
func (ctx *Context) Device() *Device {
	return ctx.device
}

// Destroy synchronizes and releases all context resources. Any further
// operation on the context fails with ErrContextDestroyed.
func (ctx *Context) Destroy() error {
	if !ctx.destroyed.CompareAndSwap(false, true) {
		return ErrContextDestroyed
	}
	ctx.mu.Lock()
	streams := make([]*Stream, 0, len(ctx.streams))
	for _, s := range ctx.streams {
		streams = append(streams, s)
	}
	ctx.mu.Unlock()
	for _, s := range streams {
		s.Synchronize()
		s.close()
	}
	return nil
}

// alive reports whether the context is still usable.
func (ctx *Context) alive() error {
	if ctx.destroyed.Load() {
		return ErrContextDestroyed
	}
	return nil
}

// StreamCreate creates a new execution stream.
func (ctx *Context) StreamCreate() (*Stream, error) {
	if err := ctx.alive(); err != nil {
		return nil, err
	}
	return ctx.newStream(), nil
}

func (ctx *Context) newStream() *Stream {
	id := int(atomic.AddInt32(&ctx.streamID, 1))
	stream := newStream(id)
	ctx.mu.Lock()
	ctx.streams[id] = stream
	ctx.mu.Unlock()
	return stream
}

// StreamSynchronize blocks until all work submitted to the stream has
// completed. A nil stream means the default stream, matching the driver
// convention of stream handle 0.
func (ctx *Context) StreamSynchronize(s *Stream) error {
	if err := ctx.alive(); err != nil {
		return err
	}
	if s == nil {
		s = ctx.defaultStream
	}
	s.Synchronize()
	return nil
}

// Synchronize waits for all streams in the context to complete.
func (ctx *Context) Synchronize() error {
	if err := ctx.alive(); err != nil {
		return err
	}
	ctx.mu.Lock()
	streams := make([]*Stream, 0, len(ctx.streams))
	for _, s := range ctx.streams {
		streams = append(streams, s)
	}
	ctx.mu.Unlock()
	for _, s := range streams {
		s.Synchronize()
	}
	return nil
}
