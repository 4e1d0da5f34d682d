package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	glyphatlas "github.com/jason5122/glyph-atlas"
)

// Instance layout constants. The vertex attribute layouts in pipeline.go
// depend on these exact sizes and offsets.
const (
	// instanceStride is the byte size of one geometry instance record:
	// grid coords (2x uint16), glyph box (4x int16), uv rect (4x float32).
	instanceStride = 28

	// attribStride is the byte size of one color/flags record:
	// fg rgb + flags (4x uint8), bg rgba (4x unorm8).
	attribStride = 8

	// MaxInstances is the per-batch instance capacity. A full batch is
	// flushed to the GPU before accumulation continues.
	MaxInstances = 4096
)

// quadIndices is the unit quad index pattern shared by all instances.
// Vertex 0 = top right, 1 = bottom right, 2 = bottom left, 3 = top left.
var quadIndices = [6]uint16{0, 1, 3, 1, 2, 3}

// InstanceRecord is one glyph cell prepared for GPU submission.
type InstanceRecord struct {
	// Col and Row are grid coordinates.
	Col uint16
	Row uint16

	// GlyphLeft and GlyphTop offset the glyph box within the cell.
	// GlyphWidth and GlyphHeight are the box dimensions in pixels.
	GlyphLeft   int16
	GlyphTop    int16
	GlyphWidth  int16
	GlyphHeight int16

	// UV rectangle in normalized atlas coordinates.
	UVLeft   float32
	UVBot    float32
	UVWidth  float32
	UVHeight float32

	// Fg is the foreground color, Flags the cell flags; both travel in
	// the companion attribute record.
	Fg    glyphatlas.RGB
	Flags glyphatlas.CellFlags

	// Bg is the background color, BgAlpha its opacity.
	Bg      glyphatlas.RGB
	BgAlpha float32
}

// encodeGeometry writes the 28-byte geometry record at buf[0:28].
func (r *InstanceRecord) encodeGeometry(buf []byte) {
	binary.LittleEndian.PutUint16(buf[0:2], r.Col)
	binary.LittleEndian.PutUint16(buf[2:4], r.Row)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(r.GlyphLeft))
	binary.LittleEndian.PutUint16(buf[6:8], uint16(r.GlyphTop))
	binary.LittleEndian.PutUint16(buf[8:10], uint16(r.GlyphWidth))
	binary.LittleEndian.PutUint16(buf[10:12], uint16(r.GlyphHeight))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(r.UVLeft))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(r.UVBot))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(r.UVWidth))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(r.UVHeight))
}

// encodeAttribs writes the 8-byte color/flags record at buf[0:8].
func (r *InstanceRecord) encodeAttribs(buf []byte) {
	buf[0] = r.Fg.R
	buf[1] = r.Fg.G
	buf[2] = r.Fg.B
	buf[3] = byte(r.Flags)
	buf[4] = r.Bg.R
	buf[5] = r.Bg.G
	buf[6] = r.Bg.B
	buf[7] = unormByte(r.BgAlpha)
}

// unormByte converts a 0..1 float to a rounded unorm8.
func unormByte(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}

// InstanceBuffer accumulates instance records on the CPU and owns the
// GPU-side vertex and index buffers the grid pipeline draws from. A
// batch holds at most MaxInstances records; the renderer flushes a full
// batch mid-frame and keeps accumulating.
//
// InstanceBuffer is not safe for concurrent use; the Renderer serializes
// access to it.
type InstanceBuffer struct {
	device hal.Device
	queue  hal.Queue

	geometry hal.Buffer // instanceStride bytes per instance
	attribs  hal.Buffer // attribStride bytes per instance
	indices  hal.Buffer // quadIndices, uint16

	geomStaging   []byte
	attribStaging []byte
	count         int
}

// NewInstanceBuffer allocates the GPU buffers for one instance batch.
func NewInstanceBuffer(device hal.Device, queue hal.Queue) (*InstanceBuffer, error) {
	geometry, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "grid_instance_geometry",
		Size:  uint64(MaxInstances * instanceStride),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create instance geometry buffer: %w", err)
	}

	attribs, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "grid_instance_attribs",
		Size:  uint64(MaxInstances * attribStride),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		device.DestroyBuffer(geometry)
		return nil, fmt.Errorf("create instance attrib buffer: %w", err)
	}

	indexData := make([]byte, len(quadIndices)*2)
	for i, idx := range quadIndices {
		binary.LittleEndian.PutUint16(indexData[i*2:], idx)
	}
	indices, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "grid_quad_indices",
		Size:  uint64(len(indexData)),
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		device.DestroyBuffer(geometry)
		device.DestroyBuffer(attribs)
		return nil, fmt.Errorf("create quad index buffer: %w", err)
	}
	queue.WriteBuffer(indices, 0, indexData)

	return &InstanceBuffer{
		device:        device,
		queue:         queue,
		geometry:      geometry,
		attribs:       attribs,
		indices:       indices,
		geomStaging:   make([]byte, MaxInstances*instanceStride),
		attribStaging: make([]byte, MaxInstances*attribStride),
	}, nil
}

// Push appends a record to the batch. It reports whether the batch is
// now full and must be flushed before the next Push.
func (b *InstanceBuffer) Push(rec InstanceRecord) bool {
	rec.encodeGeometry(b.geomStaging[b.count*instanceStride:])
	rec.encodeAttribs(b.attribStaging[b.count*attribStride:])
	b.count++
	return b.count == MaxInstances
}

// Len returns the number of records accumulated in the current batch.
func (b *InstanceBuffer) Len() int {
	return b.count
}

// Upload copies the accumulated records to the GPU buffers. The batch
// stays intact so the caller can draw it; Reset starts the next batch.
func (b *InstanceBuffer) Upload() {
	if b.count == 0 {
		return
	}
	b.queue.WriteBuffer(b.geometry, 0, b.geomStaging[:b.count*instanceStride])
	b.queue.WriteBuffer(b.attribs, 0, b.attribStaging[:b.count*attribStride])
}

// Reset discards the accumulated records.
func (b *InstanceBuffer) Reset() {
	b.count = 0
}

// Bind sets the vertex and index buffers on a render pass. Slot 0 is
// the geometry record, slot 1 the color/flags record.
func (b *InstanceBuffer) Bind(rp hal.RenderPassEncoder) {
	rp.SetVertexBuffer(0, b.geometry, 0)
	rp.SetVertexBuffer(1, b.attribs, 0)
	rp.SetIndexBuffer(b.indices, gputypes.IndexFormatUint16, 0)
}

// Destroy releases the GPU buffers.
func (b *InstanceBuffer) Destroy() {
	if b.geometry != nil {
		b.device.DestroyBuffer(b.geometry)
		b.geometry = nil
	}
	if b.attribs != nil {
		b.device.DestroyBuffer(b.attribs)
		b.attribs = nil
	}
	if b.indices != nil {
		b.device.DestroyBuffer(b.indices)
		b.indices = nil
	}
}
