package registry

import (
	"testing"

	"github.com/Grescilla/fastslide-sub001/internal/slideerr"
	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
)

func dummyFactory(cache slidemodel.TileCache, path string) (slidemodel.Reader, error) {
	return nil, nil
}

func TestRegisterFormatIdempotence(t *testing.T) {
	r := New()
	d := FormatDescriptor{PrimaryExtension: ".svs", FormatName: "aperio", Factory: dummyFactory}
	r.RegisterFormat(d)
	r.RegisterFormat(d)

	if got := len(r.ListFormats()); got != 1 {
		t.Fatalf("expected 1 registered format after duplicate registration, got %d", got)
	}
	got, err := r.GetFormat(".svs")
	if err != nil {
		t.Fatal(err)
	}
	if got.FormatName != "aperio" {
		t.Fatalf("got %q", got.FormatName)
	}
}

func TestGetFormatCaseInsensitiveAndAlias(t *testing.T) {
	r := New()
	r.RegisterFormat(FormatDescriptor{PrimaryExtension: ".qptiff", Aliases: []string{".qtiff"}, FormatName: "qptiff", Factory: dummyFactory})

	if _, err := r.GetFormat("QPTIFF"); err != nil {
		t.Fatalf("case-insensitive lookup without dot failed: %v", err)
	}
	if _, err := r.GetFormat(".QPTIFF"); err != nil {
		t.Fatalf("case-insensitive lookup failed: %v", err)
	}
	if _, err := r.GetFormat(".qtiff"); err != nil {
		t.Fatalf("alias lookup failed: %v", err)
	}
}

func TestGetFormatEmptyExtensionIsNotFound(t *testing.T) {
	r := New()
	if _, err := r.GetFormat(""); !slideerr.Is(err, slideerr.NotFound) {
		t.Fatalf("expected NotFound for empty extension, got %v", err)
	}
}

func TestSupportsCapability(t *testing.T) {
	r := New()
	r.RegisterFormat(FormatDescriptor{PrimaryExtension: ".mrxs", FormatName: "mrxs", Capabilities: CapTiled | CapPyramidal, Factory: dummyFactory})

	if !r.SupportsCapability(".mrxs", CapPyramidal) {
		t.Fatal("expected CapPyramidal to be set")
	}
	if r.SupportsCapability(".mrxs", CapStreaming) {
		t.Fatal("did not expect CapStreaming to be set")
	}
}

func TestClear(t *testing.T) {
	r := New()
	r.RegisterFormat(FormatDescriptor{PrimaryExtension: ".svs", Factory: dummyFactory})
	r.Clear()
	if len(r.ListFormats()) != 0 {
		t.Fatal("expected empty registry after Clear")
	}
}

func TestRegisterBuiltinFormatsSkipsMissingCapability(t *testing.T) {
	r := New()
	ctx := PluginLoadContext{AvailableCodecs: map[string]bool{}}
	RegisterBuiltinFormats(r, ctx)
	// Every built-in descriptor lists at least one required capability
	// that this empty-codec context lacks, so nothing should register.
	if got := len(r.ListFormats()); got != 0 {
		t.Fatalf("expected 0 formats with no codecs available, got %d", got)
	}
}

func TestRegisterBuiltinFormatsAllAvailable(t *testing.T) {
	r := New()
	RegisterBuiltinFormats(r, PluginLoadContext{})
	names := map[string]bool{}
	for _, d := range r.ListFormats() {
		names[d.FormatName] = true
	}
	for _, want := range []string{"mrxs", "aperio", "qptiff"} {
		if !names[want] {
			t.Fatalf("expected built-in format %q to be registered, got %v", want, names)
		}
	}
}
