package gpuimage

import (
	"errors"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func builtinShaders() []*ShaderSource {
	srcs := []*ShaderSource{
		identityShader, brightnessShader, convolution3x3Shader, boxBlurShader,
		dissolveBlendShader, alphaBlendShader,
	}
	return append(srcs, dilationShaders[:]...)
}

func TestBuiltinShadersCompileAsKage(t *testing.T) {
	for _, src := range builtinShaders() {
		t.Run(src.Name, func(t *testing.T) {
			s, err := ebiten.NewShader([]byte(src.Kage))
			if err != nil {
				t.Fatalf("NewShader: %v", err)
			}
			s.Deallocate()
		})
	}
}

func TestEbitenCompileProgramReportsCompileError(t *testing.T) {
	dev, _ := NewEbitenDevice()
	_, err := dev.CompileProgram(&ShaderSource{Name: "broken", Kage: "//kage:unit pixels\npackage main\n\nfunc Fragment() {}\n"})
	var ce *CompileError
	if !errors.As(err, &ce) || ce.Program != "broken" {
		t.Errorf("err = %v, want *CompileError for broken", err)
	}
}

func TestEbitenReadPixelsNeedsGameLoop(t *testing.T) {
	if gameLoopRunning.Load() {
		t.Skip("game loop already marked running")
	}
	dev, _ := NewEbitenDevice()
	if err := dev.ReadPixels(nil, make([]byte, 4)); !errors.Is(err, ErrNoGameLoop) {
		t.Errorf("err = %v, want ErrNoGameLoop", err)
	}
}
