package pattern

import (
	"errors"
	"reflect"
	"testing"
)

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
		reason   string
	}{
		{name: "empty name", template: "data/{}.txt", reason: "empty wildcard name"},
		{name: "invalid name", template: "data/{a b}.txt", reason: "invalid wildcard name"},
		{name: "leading digit", template: "data/{1x}.txt", reason: "invalid wildcard name"},
		{name: "duplicate name", template: "{x}/{x}.txt", reason: "duplicate wildcard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.template)
			if err == nil {
				t.Fatalf("Compile(%q) succeeded, want error", tt.template)
			}
			var malformed *MalformedError
			if !errors.As(err, &malformed) {
				t.Fatalf("Compile(%q) = %v, want MalformedError", tt.template, err)
			}
			if malformed.Template != tt.template {
				t.Errorf("Template = %q, want %q", malformed.Template, tt.template)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		template string
		path     string
		want     map[string]string
		ok       bool
	}{
		{
			name:     "single wildcard",
			template: "data/{sample}.raw",
			path:     "data/s1.raw",
			want:     map[string]string{"sample": "s1"},
			ok:       true,
		},
		{
			name:     "wildcard spans separators",
			template: "{path}.txt",
			path:     "a/b/c.txt",
			want:     map[string]string{"path": "a/b/c"},
			ok:       true,
		},
		{
			name:     "two wildcards",
			template: "{dir}/{file}.o",
			path:     "obj/main.o",
			want:     map[string]string{"dir": "obj", "file": "main"},
			ok:       true,
		},
		{
			name:     "anchored at start",
			template: "data/{s}.raw",
			path:     "xdata/s1.raw",
			ok:       false,
		},
		{
			name:     "anchored at end",
			template: "data/{s}.raw",
			path:     "data/s1.raw.bak",
			ok:       false,
		},
		{
			name:     "dot is literal",
			template: "a.txt",
			path:     "axtxt",
			ok:       false,
		},
		{
			name:     "wildcard must be non-empty",
			template: "{s}.txt",
			path:     ".txt",
			ok:       false,
		},
		{
			name:     "no wildcards exact",
			template: "Makefile",
			path:     "Makefile",
			want:     map[string]string{},
			ok:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.template)
			if err != nil {
				t.Fatalf("Compile(%q): %v", tt.template, err)
			}
			got, ok := p.Match(tt.path)
			if ok != tt.ok {
				t.Fatalf("Match(%q) ok = %v, want %v", tt.path, ok, tt.ok)
			}
			if tt.ok && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		template string
		binding  map[string]string
		want     string
	}{
		{
			name:     "single",
			template: "data/{sample}.raw",
			binding:  map[string]string{"sample": "s1"},
			want:     "data/s1.raw",
		},
		{
			name:     "multi",
			template: "{dir}/{file}.o",
			binding:  map[string]string{"dir": "obj", "file": "main"},
			want:     "obj/main.o",
		},
		{
			name:     "extra names in binding are ignored",
			template: "out/{x}.txt",
			binding:  map[string]string{"x": "a", "y": "b"},
			want:     "out/a.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.template)
			if err != nil {
				t.Fatalf("Compile(%q): %v", tt.template, err)
			}
			got, err := p.Format(tt.binding)
			if err != nil {
				t.Fatalf("Format: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Format = %q, want %q", got, tt.want)
			}

			// Matching the formatted path must recover the binding,
			// projected onto the template's names.
			back, ok := p.Match(got)
			if !ok {
				t.Fatalf("Match(%q) failed after Format", got)
			}
			for _, name := range p.Names() {
				if back[name] != tt.binding[name] {
					t.Errorf("round trip %s = %q, want %q", name, back[name], tt.binding[name])
				}
			}
		})
	}
}

func TestFormatUnbound(t *testing.T) {
	p, err := Compile("data/{sample}.raw")
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Format(map[string]string{"other": "x"})
	var unbound *UnboundError
	if !errors.As(err, &unbound) {
		t.Fatalf("Format = %v, want UnboundError", err)
	}
	if unbound.Name != "sample" {
		t.Errorf("Name = %q, want %q", unbound.Name, "sample")
	}
}

func TestNames(t *testing.T) {
	p, err := Compile("{a}/{b}/{c}.txt")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c"}
	if got := p.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		template string
		values   map[string]string
		want     string
		wantErr  bool
	}{
		{
			name:     "basic",
			template: "compiling {name} from {input}",
			values:   map[string]string{"name": "app", "input": "main.c"},
			want:     "compiling app from main.c",
		},
		{
			name:     "non-identifier braces are literal",
			template: `echo '{"a": 1}' > {output}`,
			values:   map[string]string{"output": "out.json"},
			want:     `echo '{"a": 1}' > out.json`,
		},
		{
			name:     "unbound name",
			template: "hello {who}",
			values:   map[string]string{},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Substitute(tt.template, tt.values)
			if tt.wantErr {
				var unbound *UnboundError
				if !errors.As(err, &unbound) {
					t.Fatalf("Substitute = %v, want UnboundError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Substitute: %v", err)
			}
			if got != tt.want {
				t.Errorf("Substitute = %q, want %q", got, tt.want)
			}
		})
	}
}
