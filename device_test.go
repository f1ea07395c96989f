package culite

import (
	"testing"
)

func TestDeviceEnumeration(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	count, err := DeviceGetCount()
	if err != nil {
		t.Fatalf("DeviceGetCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 device, got %d", count)
	}

	dev, err := DeviceGet(0)
	if err != nil {
		t.Fatalf("DeviceGet(0) failed: %v", err)
	}
	if dev.Name == "" {
		t.Error("Device name should not be empty")
	}
	if dev.NumCores < 1 {
		t.Errorf("Expected at least one core, got %d", dev.NumCores)
	}
	if dev.TotalMem == 0 {
		t.Error("Total memory should not be zero")
	}

	if _, err := DeviceGet(1); err == nil {
		t.Error("DeviceGet(1) should have failed")
	}
	if _, err := DeviceGet(-1); err == nil {
		t.Error("DeviceGet(-1) should have failed")
	}
}

func TestDeviceAttributes(t *testing.T) {
	Init()
	dev, err := DeviceGet(0)
	if err != nil {
		t.Fatalf("DeviceGet failed: %v", err)
	}

	cases := []struct {
		attr DeviceAttribute
		want int
	}{
		{AttrComputeCapabilityMajor, ComputeCapabilityMajor},
		{AttrComputeCapabilityMinor, ComputeCapabilityMinor},
		{AttrMaxBlockDimX, MaxBlockDimX},
		{AttrMaxThreadsPerBlock, MaxThreadsPerBlock},
		{AttrUnifiedAddressing, 1},
		{AttrMultiprocessorCount, dev.NumCores},
	}
	for _, tc := range cases {
		got, err := dev.Attribute(tc.attr)
		if err != nil {
			t.Fatalf("Attribute(%d) failed: %v", tc.attr, err)
		}
		if got != tc.want {
			t.Errorf("Attribute(%d) = %d, want %d", tc.attr, got, tc.want)
		}
	}

	if _, err := dev.Attribute(DeviceAttribute(999)); err == nil {
		t.Error("Unknown attribute should have failed")
	}
}

func TestContextLifecycle(t *testing.T) {
	Init()
	dev, _ := DeviceGet(0)

	ctx, err := CtxCreate(dev)
	if err != nil {
		t.Fatalf("CtxCreate failed: %v", err)
	}
	if ctx.Device() != dev {
		t.Error("Context bound to wrong device")
	}

	if err := ctx.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if err := ctx.Destroy(); err == nil {
		t.Error("Second Destroy should have failed")
	}

	// All operations must fail on a destroyed context.
	if _, err := ctx.MemAlloc(64); err == nil {
		t.Error("MemAlloc on destroyed context should have failed")
	}
	if _, err := ctx.StreamCreate(); err == nil {
		t.Error("StreamCreate on destroyed context should have failed")
	}
	if err := ctx.Synchronize(); err == nil {
		t.Error("Synchronize on destroyed context should have failed")
	}

	if _, err := CtxCreate(nil); err == nil {
		t.Error("CtxCreate(nil) should have failed")
	}
}
