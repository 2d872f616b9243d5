// Package registry maps slide file extensions to format plugins, per
// §4.7. It mirrors the teacher's preference for a small lazily-built
// global singleton (cf. internal/tilecache.GlobalCacheManager) over a
// dependency-injected container: slide formats are a closed, compiled-in
// set, not something assembled per request.
package registry

import (
	"log"
	"strings"
	"sync"

	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
)

// Capability is one bit of a format's capability set.
type Capability uint32

const (
	CapTiled Capability = 1 << iota
	CapPyramidal
	CapSpectral
	CapAssociatedImages
	CapLabelLayers
	CapCompressed
	CapRandomAccess
	CapStreaming
)

func (c Capability) Has(bit Capability) bool { return c&bit != 0 }

// Factory constructs a Reader for path, optionally wired to an
// externally supplied cache.
type Factory func(cache slidemodel.TileCache, path string) (slidemodel.Reader, error)

// FormatDescriptor describes one pluggable slide format.
type FormatDescriptor struct {
	PrimaryExtension     string
	Aliases              []string
	FormatName           string
	Capabilities         Capability
	Version              string
	RequiredCapabilities []string // external codec names this format's factory needs, e.g. "jpeg2000"
	Factory              Factory
}

// PluginLoadContext filters which built-in descriptors get registered.
type PluginLoadContext struct {
	AvailableCodecs    map[string]bool
	AvailableHardware  map[string]bool
	Version            string
}

// HasCodec reports whether a required capability name is available. An
// absent map treats everything as available, so callers that don't care
// about codec gating can pass a zero-value context.
func (c PluginLoadContext) HasCodec(name string) bool {
	if c.AvailableCodecs == nil {
		return true
	}
	return c.AvailableCodecs[name]
}

// Registry is an extension-keyed map of format descriptors.
type Registry struct {
	mu   sync.RWMutex
	byExt map[string]FormatDescriptor
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byExt: make(map[string]FormatDescriptor)}
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// RegisterFormat inserts or replaces the descriptor for its primary
// extension. Re-registering the same descriptor is idempotent in effect:
// the map ends up in the same state either way.
func (r *Registry) RegisterFormat(d FormatDescriptor) {
	ext := normalizeExt(d.PrimaryExtension)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byExt[ext] = d
}

// GetFormat looks up the descriptor for an extension, matching primary
// extension or any alias.
func (r *Registry) GetFormat(extension string) (FormatDescriptor, error) {
	ext := normalizeExt(extension)
	if ext == "" {
		return FormatDescriptor{}, slideerr.New("registry.GetFormat", slideerr.NotFound, "empty extension")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.byExt[ext]; ok {
		return d, nil
	}
	for _, d := range r.byExt {
		for _, alias := range d.Aliases {
			if normalizeExt(alias) == ext {
				return d, nil
			}
		}
	}
	return FormatDescriptor{}, slideerr.New("registry.GetFormat", slideerr.NotFound, "no format registered for extension "+ext)
}

// SupportsExtension reports whether extension resolves to a descriptor.
func (r *Registry) SupportsExtension(extension string) bool {
	_, err := r.GetFormat(extension)
	return err == nil
}

// SupportsCapability reports whether the format for extension has cap.
func (r *Registry) SupportsCapability(extension string, cap Capability) bool {
	d, err := r.GetFormat(extension)
	if err != nil {
		return false
	}
	return d.Capabilities.Has(cap)
}

// ListFormats returns every registered descriptor.
func (r *Registry) ListFormats() []FormatDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]FormatDescriptor, 0, len(r.byExt))
	for _, d := range r.byExt {
		out = append(out, d)
	}
	return out
}

// ListFormatsByCapability returns descriptors that have cap set.
func (r *Registry) ListFormatsByCapability(cap Capability) []FormatDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []FormatDescriptor
	for _, d := range r.byExt {
		if d.Capabilities.Has(cap) {
			out = append(out, d)
		}
	}
	return out
}

// GetSupportedExtensions returns every primary extension and alias known
// to the registry.
func (r *Registry) GetSupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for ext, d := range r.byExt {
		out = append(out, ext)
		for _, alias := range d.Aliases {
			out = append(out, normalizeExt(alias))
		}
	}
	return out
}

// Clear removes every registered descriptor.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byExt = make(map[string]FormatDescriptor)
}

// CreateReader resolves path's extension and invokes the matching
// factory.
func (r *Registry) CreateReader(path string, cache slidemodel.TileCache) (slidemodel.Reader, error) {
	ext := extensionOf(path)
	d, err := r.GetFormat(ext)
	if err != nil {
		return nil, err
	}
	return d.Factory(cache, path)
}

func extensionOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i:]
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide default registry, lazily initialized
// and populated by RegisterBuiltinFormats with an all-available plugin
// load context.
func Global() *Registry {
	globalOnce.Do(func() {
		global = New()
		RegisterBuiltinFormats(global, PluginLoadContext{})
	})
	return global
}

// RegisterBuiltinFormats registers the MRXS, Aperio/SVS and QPTIFF
// descriptors, skipping (with a logged diagnostic, not an error) any
// whose required capabilities are unavailable in ctx.
func RegisterBuiltinFormats(r *Registry, ctx PluginLoadContext) {
	for _, d := range builtinDescriptors() {
		missing := missingCapabilities(d, ctx)
		if len(missing) > 0 {
			log.Printf("registry: skipping format %s: missing required capabilities %v", d.FormatName, missing)
			continue
		}
		r.RegisterFormat(d)
	}
}

func missingCapabilities(d FormatDescriptor, ctx PluginLoadContext) []string {
	var missing []string
	for _, req := range d.RequiredCapabilities {
		if !ctx.HasCodec(req) {
			missing = append(missing, req)
		}
	}
	return missing
}
