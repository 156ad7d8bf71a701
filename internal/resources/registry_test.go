package resources

import (
	"context"
	"errors"
	"testing"

	"github.com/flowmesh-dev/mcp-peer/internal/protocol"
)

type stubProvider struct {
	def  protocol.ResourceDefinition
	read func(ctx context.Context) (*protocol.Resource, error)
}

func (s stubProvider) Definition() protocol.ResourceDefinition { return s.def }

func (s stubProvider) Read(ctx context.Context) (*protocol.Resource, error) {
	return s.read(ctx)
}

func TestRegistry_RegisterAndRead(t *testing.T) {
	t.Parallel()

	r := New()
	provider := stubProvider{
		def: protocol.ResourceDefinition{URI: "file:///a.txt", Name: "a"},
		read: func(ctx context.Context) (*protocol.Resource, error) {
			return &protocol.Resource{URI: "file:///a.txt", Text: "hello"}, nil
		},
	}
	if err := r.Register("file:///a.txt", provider); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	res, err := r.Read(context.Background(), "file:///a.txt")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if res.Text != "hello" {
		t.Fatalf("Read() text = %q, want %q", res.Text, "hello")
	}
}

func TestRegistry_ReadUnknownURI(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Read(context.Background(), "file:///missing.txt")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_DuplicateRegister(t *testing.T) {
	t.Parallel()

	r := New()
	provider := stubProvider{def: protocol.ResourceDefinition{URI: "file:///a.txt"}}
	if err := r.Register("file:///a.txt", provider); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := r.Register("file:///a.txt", provider); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second Register() error = %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegistry_ReadPropagatesProviderFailure(t *testing.T) {
	t.Parallel()

	r := New()
	boom := errors.New("disk error")
	provider := stubProvider{
		def: protocol.ResourceDefinition{URI: "file:///broken.txt"},
		read: func(ctx context.Context) (*protocol.Resource, error) {
			return nil, boom
		},
	}
	if err := r.Register("file:///broken.txt", provider); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := r.Read(context.Background(), "file:///broken.txt")
	if !errors.Is(err, ErrReadFailed) {
		t.Fatalf("Read() error = %v, want ErrReadFailed", err)
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	t.Parallel()

	r := New()
	uris := []string{"file:///z.txt", "file:///a.txt", "file:///m.txt"}
	for _, uri := range uris {
		if err := r.Register(uri, stubProvider{def: protocol.ResourceDefinition{URI: uri}}); err != nil {
			t.Fatalf("Register(%q) error = %v", uri, err)
		}
	}

	defs := r.List()
	want := []string{"file:///a.txt", "file:///m.txt", "file:///z.txt"}
	for i, d := range defs {
		if d.URI != want[i] {
			t.Fatalf("List()[%d].URI = %q, want %q", i, d.URI, want[i])
		}
	}
}

func TestRegistry_Templates(t *testing.T) {
	t.Parallel()

	r := New()
	tmpl := protocol.ResourceTemplate{URITemplate: "file:///{name}.txt", Name: "file"}
	r.RegisterTemplate(tmpl)

	got := r.ListTemplates()
	if len(got) != 1 || got[0] != tmpl {
		t.Fatalf("ListTemplates() = %+v, want [%+v]", got, tmpl)
	}
}

func TestRegistry_UnregisterRemovesResource(t *testing.T) {
	t.Parallel()

	r := New()
	if err := r.Register("file:///a.txt", stubProvider{def: protocol.ResourceDefinition{URI: "file:///a.txt"}}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	r.Unregister("file:///a.txt")

	if _, err := r.Read(context.Background(), "file:///a.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read() after Unregister error = %v, want ErrNotFound", err)
	}
}
