package templates

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/multierr"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "templates.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func names(es []Entry) []string {
	var out []string
	for _, e := range es {
		out = append(out, e.Name)
	}
	return out
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if err := s.Save(ctx, "fast", "ffmpeg -i {INPUT} -c:v libx264 -preset veryfast {OUTPUT}", "quick x264"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, "copy", "ffmpeg -i {INPUT} -c copy {OUTPUT}", ""); err != nil {
		t.Fatalf("Save: %v", err)
	}

	e, err := s.Load(ctx, "fast")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if e.Description != "quick x264" || e.CreatedAt.IsZero() {
		t.Errorf("entry = %+v", e)
	}
	tmpl, err := e.Template()
	if err != nil || len(tmpl.Args()) != 7 {
		t.Errorf("Template() = %q, %v", tmpl.Args(), err)
	}

	if err := s.Save(ctx, "fast", "ffmpeg -i {INPUT} -c:v libx264 -preset ultrafast {OUTPUT}", "quicker"); err != nil {
		t.Fatalf("update: %v", err)
	}
	e, _ = s.Load(ctx, "fast")
	if !strings.Contains(e.Command, "ultrafast") || e.Description != "quicker" {
		t.Errorf("update not applied: %+v", e)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names(list), []string{"copy", "fast"}) {
		t.Errorf("List = %q", names(list))
	}

	if err := s.Delete(ctx, "copy"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, "copy"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "copy"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestStore_SaveValidates(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	for _, tc := range []struct{ name, cmd string }{
		{"", "ffmpeg -i {INPUT} {OUTPUT}"},
		{"bad", "ffmpeg -vf 'unterminated"},
		{"empty", "   "},
	} {
		if err := s.Save(ctx, tc.name, tc.cmd, ""); err == nil {
			t.Errorf("Save(%q, %q) succeeded", tc.name, tc.cmd)
		}
	}
}

func TestStore_ExportImport(t *testing.T) {
	ctx := context.Background()
	src := openStore(t)
	_ = src.Save(ctx, "a", `ffmpeg -i {INPUT} -metadata 'title=It'\''s' {OUTPUT}`, "quoted")
	_ = src.Save(ctx, "b", "HandBrakeCLI -i {INPUT} -o {OUTPUT}", "")

	var buf bytes.Buffer
	n, err := src.Export(ctx, &buf)
	if err != nil || n != 2 {
		t.Fatalf("Export = %d, %v", n, err)
	}
	if !strings.Contains(buf.String(), "[[template]]") {
		t.Errorf("export is not TOML tables:\n%s", buf.String())
	}

	dst := openStore(t)
	_ = dst.Save(ctx, "b", "ffmpeg -i {INPUT} {OUTPUT}", "local")
	res, err := dst.Import(ctx, bytes.NewReader(buf.Bytes()), false)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !reflect.DeepEqual(res.Imported, []string{"a"}) || !reflect.DeepEqual(res.Skipped, []string{"b"}) {
		t.Errorf("result = %+v", res)
	}
	a, _ := dst.Load(ctx, "a")
	orig, _ := src.Load(ctx, "a")
	if a.Command != orig.Command {
		t.Errorf("command changed in transit: %q != %q", a.Command, orig.Command)
	}
	b, _ := dst.Load(ctx, "b")
	if b.Description != "local" {
		t.Errorf("existing template overwritten without overwrite flag")
	}

	res, err = dst.Import(ctx, bytes.NewReader(buf.Bytes()), true)
	if err != nil || len(res.Imported) != 2 {
		t.Fatalf("overwrite import = %+v, %v", res, err)
	}
}

func TestStore_ImportCollectsErrors(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	doc := `
[[template]]
name = ""
command = "ffmpeg -i {INPUT} {OUTPUT}"

[[template]]
name = "ok"
command = "ffmpeg -i {INPUT} {OUTPUT}"

[[template]]
name = "broken"
command = "ffmpeg 'x"
`
	res, err := s.Import(ctx, strings.NewReader(doc), false)
	if err == nil {
		t.Fatal("expected errors")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Errorf("got %d errors, want 2: %v", got, err)
	}
	if !reflect.DeepEqual(res.Imported, []string{"ok"}) {
		t.Errorf("Imported = %q", res.Imported)
	}

	if _, err := s.Import(ctx, strings.NewReader("[[template]]\nnmae = 'typo'\n"), false); err == nil {
		t.Error("unknown field accepted")
	}
}
