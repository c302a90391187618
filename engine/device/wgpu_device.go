package device

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/cache"
	"github.com/cogentcore/webgpu/wgpu"
)

// copyBufferAlignment is the byte alignment WebGPU requires for WriteBuffer offsets and sizes.
const copyBufferAlignment = 4

// ErrNoSurface is returned by BeginFrame on a headless device. It is permanent.
var ErrNoSurface = errors.New("headless device has no surface to render into")

var (
	errNoFrame    = errors.New("no frame in progress, call BeginFrame first")
	errNoPipeline = errors.New("no pipeline in use, call UsePipeline first")
)

type wgpuBuffer struct {
	buf    *wgpu.Buffer
	size   uint64
	target Target
}

// wgpuResource is what a resource slot holds until the next draw assembles it into a bind group.
type wgpuResource struct {
	kind    ResourceKind
	handle  Handle
	texture *WGPUTexture
}

// WGPUDevice is a Device backed by WebGPU. Buffers bound with Bind are applied to the render pass
// opened by BeginFrame; binding outside a frame only records the index buffer for the next draw.
type WGPUDevice struct {
	mu *sync.Mutex

	label                string
	forceFallbackAdapter bool
	powerPreference      wgpu.PowerPreference
	clearColor           [4]float64

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode

	next     Handle
	buffers  map[Handle]*wgpuBuffer
	uploaded int

	boundIndex Handle

	pipeline *WGPUPipeline
	nextID   uint64

	resources  map[ResourceSlot]wgpuResource
	bindGroups *cache.Cache[string, *wgpu.BindGroup]

	// Frame state, valid between BeginFrame and EndFrame.
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ Device = &WGPUDevice{}
var _ Aligner = &WGPUDevice{}
var _ Binder = &WGPUDevice{}

// NewWGPUDevice requests an adapter and device compatible with the given surface.
// A nil surfaceDescriptor creates a headless device that can allocate and upload but not present.
//
// Parameters:
//   - surfaceDescriptor: the platform surface to render into, or nil
//   - options: functional options for the device
//
// Returns:
//   - *WGPUDevice: the new device
//   - error: an error if no adapter or device could be acquired
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...WGPUDeviceBuilderOption) (*WGPUDevice, error) {
	runtime.LockOSThread()

	d := &WGPUDevice{
		mu:          &sync.Mutex{},
		label:       "oxy-gl",
		clearColor:  [4]float64{0, 0, 0, 1},
		presentMode: wgpu.PresentModeFifo,
		buffers:     make(map[Handle]*wgpuBuffer),
		resources:   make(map[ResourceSlot]wgpuResource),
		bindGroups:  cache.New(cache.WithRelease[string](func(bg *wgpu.BindGroup) { bg.Release() })),
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	if surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(surfaceDescriptor)
	}

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		PowerPreference:      d.powerPreference,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Destroy()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = adapter

	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: d.label + " Device",
	})
	if err != nil {
		d.Destroy()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	common.Logger().Info("wgpu device created", "label", d.label, "headless", d.surface == nil, "power", d.powerPreference)
	return d, nil
}

// CopyAlignment returns the byte alignment required for range uploads.
func (d *WGPUDevice) CopyAlignment() int {
	return copyBufferAlignment
}

// ConfigureSurface sizes the swapchain. Call it once after creation and again whenever the window resizes.
//
// Parameters:
//   - width: the new width of the surface in pixels
//   - height: the new height of the surface in pixels
func (d *WGPUDevice) ConfigureSurface(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.surface == nil || width <= 0 || height <= 0 {
		return
	}

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]

	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

// SurfaceFormat returns the texture format of the configured surface.
func (d *WGPUDevice) SurfaceFormat() wgpu.TextureFormat {
	return d.surfaceFormat
}

func (d *WGPUDevice) Allocate(sizeBytes int, usage UsageHint, target Target) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if sizeBytes < 0 {
		return 0, &AllocationError{Size: sizeBytes, Err: fmt.Errorf("negative size")}
	}

	// WebGPU has no usage hints; every buffer is a copy destination.
	bufUsage := wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	switch target {
	case TargetIndex:
		bufUsage = wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	case TargetUniform:
		bufUsage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	}

	size := alignUp(max(sizeBytes, copyBufferAlignment), copyBufferAlignment)
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            fmt.Sprintf("%s %s %s Buffer", d.label, usage, target),
		Size:             uint64(size),
		Usage:            bufUsage,
		MappedAtCreation: false,
	})
	if err != nil {
		return 0, &AllocationError{Size: sizeBytes, Err: err}
	}

	d.next++
	d.buffers[d.next] = &wgpuBuffer{buf: buf, size: uint64(size), target: target}
	return d.next, nil
}

func (d *WGPUDevice) UploadFull(h Handle, data []byte) error {
	return d.write("upload full", h, 0, data)
}

func (d *WGPUDevice) UploadRange(h Handle, byteOffset int, data []byte) error {
	return d.write("upload range", h, byteOffset, data)
}

// write queues a buffer write, zero-padding the tail so the size meets the copy alignment.
func (d *WGPUDevice) write(op string, h Handle, byteOffset int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[h]
	if !ok {
		return &DeviceError{Op: op, Handle: h, Err: ErrUnknownHandle}
	}
	if byteOffset%copyBufferAlignment != 0 {
		return &DeviceError{Op: op, Handle: h, Err: fmt.Errorf("offset %d is not %d-byte aligned", byteOffset, copyBufferAlignment)}
	}
	if len(data)%copyBufferAlignment != 0 {
		padded := make([]byte, alignUp(len(data), copyBufferAlignment))
		copy(padded, data)
		data = padded
	}
	if uint64(byteOffset+len(data)) > b.size {
		return &DeviceError{Op: op, Handle: h, Err: fmt.Errorf("range [%d, %d) exceeds buffer size %d", byteOffset, byteOffset+len(data), b.size)}
	}
	if err := d.queue.WriteBuffer(b.buf, uint64(byteOffset), data); err != nil {
		return &DeviceError{Op: op, Handle: h, Err: err}
	}
	d.uploaded += len(data)
	return nil
}

// UploadedBytes returns the total bytes written to buffers, including alignment padding.
func (d *WGPUDevice) UploadedBytes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uploaded
}

func (d *WGPUDevice) Bind(h Handle, point BindPoint) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[h]
	if !ok {
		common.Logger().Warn("bind of unknown buffer ignored", "handle", h)
		return
	}
	switch b.target {
	case TargetIndex:
		// The index format is only known at draw time.
		d.boundIndex = h
		return
	case TargetUniform:
		common.Logger().Warn("uniform buffer bound as a vertex buffer, use BindUniform", "handle", h)
		return
	}
	if d.framePass == nil {
		common.Logger().Warn("vertex buffer bound outside a frame", "handle", h, "point", point)
		return
	}
	d.framePass.SetVertexBuffer(uint32(point), b.buf, 0, wgpu.WholeSize)
}

func (d *WGPUDevice) Release(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[h]
	if !ok {
		return
	}
	b.buf.Release()
	delete(d.buffers, h)
	if d.boundIndex == h {
		d.boundIndex = 0
	}
	if b.target == TargetUniform {
		for slot, r := range d.resources {
			if r.kind == ResourceUniform && r.handle == h {
				delete(d.resources, slot)
			}
		}
		d.bindGroups.Clear()
	}
}

// BindUniform attaches a uniform buffer to a resource slot for the following draws.
func (d *WGPUDevice) BindUniform(slot ResourceSlot, h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buffers[h]
	if !ok || b.target != TargetUniform {
		common.Logger().Warn("uniform bind ignored", "handle", h, "group", slot.Group, "binding", slot.Binding)
		return
	}
	d.resources[slot] = wgpuResource{kind: ResourceUniform, handle: h}
}

// BindTexture attaches the view of a texture returned by UploadTexture to a resource slot.
func (d *WGPUDevice) BindTexture(slot ResourceSlot, tex common.Releaser) {
	d.bindTextureResource(slot, ResourceTexture, tex)
}

// BindSampler attaches the sampler of a texture returned by UploadTexture to a resource slot.
func (d *WGPUDevice) BindSampler(slot ResourceSlot, tex common.Releaser) {
	d.bindTextureResource(slot, ResourceSampler, tex)
}

func (d *WGPUDevice) bindTextureResource(slot ResourceSlot, kind ResourceKind, tex common.Releaser) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := tex.(*WGPUTexture)
	if !ok {
		common.Logger().Warn("texture bind ignored, not a WebGPU texture", "kind", kind, "type", fmt.Sprintf("%T", tex))
		return
	}
	d.resources[slot] = wgpuResource{kind: kind, texture: t}
}

// CompileModule compiles WGSL source into a shader module.
//
// Parameters:
//   - label: the debug label of the module
//   - code: the WGSL source
//
// Returns:
//   - common.Releaser: the *wgpu.ShaderModule
//   - error: the compilation error, if any
func (d *WGPUDevice) CompileModule(label, code string) (common.Releaser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: code,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader %q: %w", label, err)
	}
	return m, nil
}

// PipelineDescriptor describes a render pipeline built from two compiled modules.
type PipelineDescriptor struct {
	Label string
	// Vertex and Fragment are modules returned by CompileModule.
	Vertex, Fragment common.Releaser
	// VertexEntry and FragmentEntry default to "vs_main" and "fs_main".
	VertexEntry, FragmentEntry string
	Buffers                    []wgpu.VertexBufferLayout
	// Bindings lists the uniform, texture and sampler bindings the modules declare.
	Bindings []BindingLayout
	Mode     Mode
	Blend    bool
}

// WGPUPipeline is a render pipeline with the bind group layouts its resources are attached through.
type WGPUPipeline struct {
	Pipeline *wgpu.RenderPipeline
	Mode     Mode

	id       uint64
	dev      *WGPUDevice
	groups   [][]BindingLayout
	layouts  []*wgpu.BindGroupLayout
	released bool
}

// Release releases the pipeline, its bind group layouts and the bind groups built for it.
func (p *WGPUPipeline) Release() {
	if p.released {
		return
	}
	p.released = true
	p.dev.mu.Lock()
	if p.dev.pipeline == p {
		p.dev.pipeline = nil
	}
	p.dev.bindGroups.Clear()
	p.dev.mu.Unlock()

	for _, l := range p.layouts {
		l.Release()
	}
	p.layouts = nil
	if p.Pipeline != nil {
		p.Pipeline.Release()
		p.Pipeline = nil
	}
}

// CreatePipeline builds a render pipeline targeting the configured surface format, with one bind
// group layout per group named in desc.Bindings.
//
// Parameters:
//   - desc: the pipeline description
//
// Returns:
//   - *WGPUPipeline: the created pipeline
//   - error: an error if the modules are not WebGPU modules, the mode is unsupported or creation fails
func (d *WGPUDevice) CreatePipeline(desc PipelineDescriptor) (*WGPUPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, ok := desc.Vertex.(*wgpu.ShaderModule)
	if !ok {
		return nil, fmt.Errorf("pipeline %q: vertex module is %T, not a WebGPU shader module", desc.Label, desc.Vertex)
	}
	fs, ok := desc.Fragment.(*wgpu.ShaderModule)
	if !ok {
		return nil, fmt.Errorf("pipeline %q: fragment module is %T, not a WebGPU shader module", desc.Label, desc.Fragment)
	}
	topology, err := topologyOf(desc.Mode)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", desc.Label, err)
	}
	groups, err := groupBindings(desc.Bindings)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", desc.Label, err)
	}

	d.nextID++
	p := &WGPUPipeline{Mode: desc.Mode, id: d.nextID, dev: d, groups: groups}
	for g, entries := range groups {
		bgl, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s Group %d Layout", desc.Label, g),
			Entries: bindGroupLayoutEntries(entries),
		})
		if err != nil {
			for _, l := range p.layouts {
				l.Release()
			}
			return nil, fmt.Errorf("pipeline %q: group %d layout: %w", desc.Label, g, err)
		}
		p.layouts = append(p.layouts, bgl)
	}

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: p.layouts,
	})
	if err != nil {
		for _, l := range p.layouts {
			l.Release()
		}
		return nil, err
	}
	defer layout.Release()

	target := wgpu.ColorTargetState{
		Format:    d.surfaceFormat,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
	if desc.Blend {
		// Straight alpha blending.
		target.Blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	}

	p.Pipeline, err = d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: common.Coalesce(desc.VertexEntry, "vs_main"),
			Buffers:    desc.Buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: common.Coalesce(desc.FragmentEntry, "fs_main"),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		for _, l := range p.layouts {
			l.Release()
		}
		return nil, err
	}
	return p, nil
}

// UsePipeline selects the pipeline for subsequent draws. Draws must use the pipeline's mode.
//
// Parameters:
//   - p: the pipeline returned by CreatePipeline
func (d *WGPUDevice) UsePipeline(p *WGPUPipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pipeline == p {
		return
	}
	d.pipeline = p
	if d.framePass != nil && p != nil {
		d.framePass.SetPipeline(p.Pipeline)
	}
}

// applyBindGroups sets one bind group per group of the pipeline in use, assembled from the
// resources bound to its slots. Bind groups are reused while the same resources stay bound.
func (d *WGPUDevice) applyBindGroups() error {
	for g, layouts := range d.pipeline.groups {
		group := uint32(g)
		entries := make([]wgpu.BindGroupEntry, 0, len(layouts))
		var key strings.Builder
		fmt.Fprintf(&key, "%d/%d", d.pipeline.id, group)

		for _, l := range layouts {
			r, ok := d.resources[l.ResourceSlot]
			if !ok || r.kind != l.Kind {
				return fmt.Errorf("group %d binding %d: no %s bound", group, l.Binding, l.Kind)
			}
			entry := wgpu.BindGroupEntry{Binding: l.Binding}
			switch r.kind {
			case ResourceUniform:
				b, ok := d.buffers[r.handle]
				if !ok {
					return fmt.Errorf("group %d binding %d: %w", group, l.Binding, ErrUnknownHandle)
				}
				entry.Buffer = b.buf
				entry.Size = b.size
				fmt.Fprintf(&key, "/u%d", r.handle)
			case ResourceTexture:
				if r.texture.View == nil {
					return fmt.Errorf("group %d binding %d: texture released", group, l.Binding)
				}
				entry.TextureView = r.texture.View
				fmt.Fprintf(&key, "/t%d", r.texture.id)
			case ResourceSampler:
				if r.texture.Sampler == nil {
					return fmt.Errorf("group %d binding %d: sampler released", group, l.Binding)
				}
				entry.Sampler = r.texture.Sampler
				fmt.Fprintf(&key, "/s%d", r.texture.id)
			}
			entries = append(entries, entry)
		}

		bg, err := d.bindGroups.GetOrCreate(key.String(), func() (*wgpu.BindGroup, error) {
			return d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
				Label:   fmt.Sprintf("%s Group %d", d.label, group),
				Layout:  d.pipeline.layouts[g],
				Entries: entries,
			})
		})
		if err != nil {
			return fmt.Errorf("group %d: %w", group, err)
		}
		d.framePass.SetBindGroup(group, bg, nil)
	}
	return nil
}

// groupBindings sorts bindings into groups 0..max, each ordered by binding. Groups without
// bindings stay empty so the pipeline layout has no holes.
func groupBindings(bindings []BindingLayout) ([][]BindingLayout, error) {
	if len(bindings) == 0 {
		return nil, nil
	}
	maxGroup := uint32(0)
	seen := make(map[ResourceSlot]bool, len(bindings))
	for _, b := range bindings {
		if seen[b.ResourceSlot] {
			return nil, fmt.Errorf("group %d binding %d declared twice", b.Group, b.Binding)
		}
		seen[b.ResourceSlot] = true
		maxGroup = max(maxGroup, b.Group)
	}

	groups := make([][]BindingLayout, maxGroup+1)
	for _, b := range bindings {
		groups[b.Group] = append(groups[b.Group], b)
	}
	for _, g := range groups {
		slices.SortFunc(g, func(a, b BindingLayout) int { return int(a.Binding) - int(b.Binding) })
	}
	return groups, nil
}

// bindGroupLayoutEntries describes one group's bindings to WebGPU. Every resource is visible to
// both stages; textures are filterable float 2D textures.
func bindGroupLayoutEntries(bindings []BindingLayout) []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(bindings))
	for _, b := range bindings {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    b.Binding,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		}
		switch b.Kind {
		case ResourceUniform:
			entry.Buffer = wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: b.MinSize,
			}
		case ResourceTexture:
			entry.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			}
		case ResourceSampler:
			entry.Sampler = wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeFiltering,
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// WGPUTexture is a 2D RGBA texture with its default view and sampler.
type WGPUTexture struct {
	id uint64

	Texture *wgpu.Texture
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler
	Width   uint32
	Height  uint32
}

// Release releases the sampler, view and texture.
func (t *WGPUTexture) Release() {
	if t.Sampler != nil {
		t.Sampler.Release()
		t.Sampler = nil
	}
	if t.View != nil {
		t.View.Release()
		t.View = nil
	}
	if t.Texture != nil {
		t.Texture.Release()
		t.Texture = nil
	}
}

// UploadTexture creates a texture from RGBA8 staging data, with a sampler using the staged filter.
//
// Parameters:
//   - label: the debug label
//   - data: the pixels, size and filter
//
// Returns:
//   - common.Releaser: the *WGPUTexture
//   - error: an error if texture, view or sampler creation fails
func (d *WGPUDevice) UploadTexture(label string, data common.TextureStagingData) (common.Releaser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	size := wgpu.Extent3D{
		Width:              data.Width,
		Height:             data.Height,
		DepthOrArrayLayers: 1,
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", label, err)
	}
	d.nextID++
	out := &WGPUTexture{id: d.nextID, Texture: tex, Width: data.Width, Height: data.Height}

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&size,
	)

	out.View, err = tex.CreateView(nil)
	if err != nil {
		out.Release()
		return nil, fmt.Errorf("failed to create texture view %q: %w", label, err)
	}

	filter := wgpu.FilterModeNearest
	if data.Filter == common.FilterLinear {
		filter = wgpu.FilterModeLinear
	}
	out.Sampler, err = d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		out.Release()
		return nil, fmt.Errorf("failed to create sampler %q: %w", label, err)
	}
	return out, nil
}

// BeginFrame acquires the swapchain texture and opens the render pass, cleared to the clear color.
//
// Returns:
//   - error: an error if a frame is already open or the surface texture cannot be acquired
func (d *WGPUDevice) BeginFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.surface == nil {
		return ErrNoSurface
	}
	if d.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: d.clearColor[0], G: d.clearColor[1], B: d.clearColor[2], A: d.clearColor[3],
				},
			},
		},
	})
	if d.pipeline != nil {
		pass.SetPipeline(d.pipeline.Pipeline)
	}

	d.frameEncoder = encoder
	d.framePass = pass
	d.frameSurface = surfaceTexture
	d.frameView = view
	return nil
}

// DrawArrays issues a non-indexed draw in the open frame.
//
// Parameters:
//   - mode: the primitive mode, which must match the pipeline in use
//   - count: the number of vertices
//   - instances: the number of instances
//
// Returns:
//   - error: an error if no frame or pipeline is active or the mode does not match
func (d *WGPUDevice) DrawArrays(mode Mode, count, instances int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkDraw(mode); err != nil {
		return err
	}
	if err := d.applyBindGroups(); err != nil {
		return fmt.Errorf("draw %s: %w", mode, err)
	}
	d.framePass.Draw(uint32(count), uint32(instances), 0, 0)
	return nil
}

// DrawIndexed issues an indexed draw in the open frame using the bound index buffer.
//
// Parameters:
//   - mode: the primitive mode, which must match the pipeline in use
//   - format: the element type of the index buffer
//   - count: the number of indices
//   - instances: the number of instances
//
// Returns:
//   - error: an error if no frame, pipeline or index buffer is active, or the format is unsupported
func (d *WGPUDevice) DrawIndexed(mode Mode, format IndexFormat, count, instances int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkDraw(mode); err != nil {
		return err
	}
	b, ok := d.buffers[d.boundIndex]
	if !ok {
		return fmt.Errorf("draw %s: no index buffer bound", mode)
	}
	if format != IndexUint16 {
		return fmt.Errorf("draw %s: WebGPU only supports 16 and 32-bit indices", mode)
	}
	if err := d.applyBindGroups(); err != nil {
		return fmt.Errorf("draw %s: %w", mode, err)
	}
	d.framePass.SetIndexBuffer(b.buf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	d.framePass.DrawIndexed(uint32(count), uint32(instances), 0, 0, 0)
	return nil
}

func (d *WGPUDevice) checkDraw(mode Mode) error {
	if d.framePass == nil {
		return fmt.Errorf("draw %s: %w", mode, errNoFrame)
	}
	if d.pipeline == nil {
		return fmt.Errorf("draw %s: %w", mode, errNoPipeline)
	}
	if mode != d.pipeline.Mode {
		return fmt.Errorf("draw %s: pipeline in use was created for %s", mode, d.pipeline.Mode)
	}
	return nil
}

// EndFrame ends the render pass and submits the recorded commands.
//
// Returns:
//   - error: an error if no frame is open or the command buffer cannot be finished
func (d *WGPUDevice) EndFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.framePass == nil {
		return errNoFrame
	}
	d.framePass.End()
	d.framePass.Release()
	d.framePass = nil

	commandBuffer, err := d.frameEncoder.Finish(nil)
	d.frameEncoder.Release()
	d.frameEncoder = nil
	if err != nil {
		d.releaseFrameSurface()
		return err
	}

	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

// Present displays the submitted frame and releases the swapchain texture.
func (d *WGPUDevice) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface == nil {
		return
	}
	d.surface.Present()
	d.releaseFrameSurface()
}

func (d *WGPUDevice) releaseFrameSurface() {
	if d.frameView != nil {
		d.frameView.Release()
		d.frameView = nil
	}
	if d.frameSurface != nil {
		d.frameSurface.Release()
		d.frameSurface = nil
	}
}

// Destroy releases every buffer and the device itself.
func (d *WGPUDevice) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.bindGroups.Clear()
	clear(d.resources)
	for h, b := range d.buffers {
		b.buf.Release()
		delete(d.buffers, h)
	}
	d.releaseFrameSurface()
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func topologyOf(mode Mode) (wgpu.PrimitiveTopology, error) {
	switch mode {
	case ModePoints:
		return wgpu.PrimitiveTopologyPointList, nil
	case ModeLines:
		return wgpu.PrimitiveTopologyLineList, nil
	case ModeLineStrip:
		return wgpu.PrimitiveTopologyLineStrip, nil
	case ModeTriangles:
		return wgpu.PrimitiveTopologyTriangleList, nil
	case ModeTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip, nil
	}
	return wgpu.PrimitiveTopologyTriangleList, fmt.Errorf("draw mode %s is not supported by WebGPU", mode)
}

func alignUp(n, align int) int {
	if r := n % align; r != 0 {
		return n + align - r
	}
	return n
}
