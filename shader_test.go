package gpuimage

import (
	"errors"
	"strings"
	"testing"
)

func TestParseUniforms(t *testing.T) {
	decls, err := parseUniforms(convolution3x3Shader)
	if err != nil {
		t.Fatalf("parseUniforms: %v", err)
	}
	want := []uniformDecl{
		{"TexelWidth", "float"},
		{"TexelHeight", "float"},
		{"ConvolutionMatrix", "[9]float"},
	}
	if len(decls) != len(want) {
		t.Fatalf("decls = %v, want %v", decls, want)
	}
	for i := range want {
		if decls[i] != want[i] {
			t.Errorf("decls[%d] = %v, want %v", i, decls[i], want[i])
		}
	}
}

func TestParseUniformsErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no package", "func Fragment(dst vec4, src vec2, color vec4) vec4 { return color }", "package"},
		{"no entry", "package main\n", "Fragment"},
		{"unexported", "package main\nvar scale float\nfunc Fragment(dst vec4, src vec2, color vec4) vec4 { return color }\n", "exported"},
		{"malformed", "package main\nvar Scale\nfunc Fragment(dst vec4, src vec2, color vec4) vec4 { return color }\n", "malformed"},
	}
	for _, tt := range tests {
		_, err := parseUniforms(&ShaderSource{Name: tt.name, Kage: tt.src})
		var ce *CompileError
		if !errors.As(err, &ce) {
			t.Errorf("%s: err = %v, want *CompileError", tt.name, err)
			continue
		}
		if ce.Program != tt.name || !strings.Contains(ce.Log, tt.want) {
			t.Errorf("%s: err = %v, want log containing %q", tt.name, ce, tt.want)
		}
	}
}

func TestBuiltinShadersParse(t *testing.T) {
	for _, src := range builtinShaders() {
		if _, err := parseUniforms(src); err != nil {
			t.Errorf("%s: %v", src.Name, err)
		}
		if src.Kernel == nil {
			t.Errorf("%s: no software kernel", src.Name)
		}
		if !strings.HasPrefix(src.Kage, "//kage:unit pixels") {
			t.Errorf("%s: missing pixel unit directive", src.Name)
		}
	}
}

func TestOffsetShadersSampleBilinearly(t *testing.T) {
	srcs := append([]*ShaderSource{convolution3x3Shader, boxBlurShader}, dilationShaders[:]...)
	for _, src := range srcs {
		if !strings.Contains(src.Kage, "func linearAt(") {
			t.Errorf("%s: missing bilinear sampler", src.Name)
		}
		if strings.Contains(src.Kage, "imageSrc0UnsafeAt(src") {
			t.Errorf("%s: reads offset taps with nearest sampling", src.Name)
		}
	}
}

func TestDilationShaderVariants(t *testing.T) {
	for r := 1; r <= 4; r++ {
		src := dilationShaders[r-1]
		if want := "dilation" + string(rune('0'+r)); src.Name != want {
			t.Errorf("variant %d name = %q, want %q", r, src.Name, want)
		}
		if got := strings.Count(src.Kage, "linearAt(src"); got != 2*r+1 {
			t.Errorf("variant %d has %d taps, want %d", r, got, 2*r+1)
		}
	}
	two := dilationShaders[1].Kage
	if !strings.Contains(two, "offset*2.0") || strings.Contains(two, "offset*3.0") {
		t.Errorf("radius 2 variant reads the wrong taps:\n%s", two)
	}
}

func TestCompileProgramWrapsDeviceError(t *testing.T) {
	withFrame(t, func(f *Frame) {
		src := &ShaderSource{Name: "cpu-less", Kage: identityShaderSrc}
		_, err := compileProgram(f, src)
		var ce *CompileError
		if !errors.As(err, &ce) || ce.Program != "cpu-less" {
			t.Errorf("err = %v, want *CompileError for cpu-less", err)
		}
	})
}

func TestProgramLocations(t *testing.T) {
	withFrame(t, func(f *Frame) {
		p, err := compileProgram(f, boxBlurShader)
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		if loc, ok := p.Location("TexelHeightOffset"); !ok || loc != 1 {
			t.Errorf("Location(TexelHeightOffset) = %d, %v; want 1, true", loc, ok)
		}
		if _, ok := p.Location("Brightness"); ok {
			t.Error("Location(Brightness) should not be declared")
		}
		if err := p.Delete(f); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := p.Delete(f); err != nil {
			t.Errorf("second Delete: %v", err)
		}
	})
}
