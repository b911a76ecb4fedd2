package display

import (
	"fmt"
	"log/slog"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/smazurov/circam/internal/shape"
)

// SDL is the go-sdl2 implementation of Backend.
type SDL struct {
	logger   *slog.Logger
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	surface  *sdl.Surface
	inited   bool
}

// NewSDL creates an uninitialized SDL backend.
func NewSDL(logger *slog.Logger) *SDL {
	return &SDL{logger: logger}
}

// Init initializes the SDL video subsystem.
func (s *SDL) Init() error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("display init: %w", err)
	}
	s.inited = true
	return nil
}

// CreateWindow creates the resizable shaped window.
func (s *SDL) CreateWindow(cfg WindowConfig) error {
	flags := uint32(sdl.WINDOW_RESIZABLE)
	if cfg.AlwaysOnTop {
		flags |= sdl.WINDOW_ALWAYS_ON_TOP
	}
	window, err := sdl.CreateShapedWindow(cfg.Title,
		sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		uint32(cfg.Size), uint32(cfg.Size), flags)
	if err != nil {
		return fmt.Errorf("create shaped window: %w", err)
	}
	s.window = window
	// Shaped windows do not always inherit the resizable flag.
	s.window.SetResizable(true)
	return nil
}

// CreateRenderer creates the accelerated renderer.
func (s *SDL) CreateRenderer() error {
	renderer, err := sdl.CreateRenderer(s.window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	s.renderer = renderer
	return nil
}

// CreateTexture creates a streaming texture in packed 4:2:2 (YUY2).
func (s *SDL) CreateTexture(width, height int) error {
	texture, err := s.renderer.CreateTexture(sdl.PIXELFORMAT_YUY2,
		sdl.TEXTUREACCESS_STREAMING, int32(width), int32(height))
	if err != nil {
		return fmt.Errorf("create texture: %w", err)
	}
	s.texture = texture
	return nil
}

// UpdateTexture uploads one raw frame.
func (s *SDL) UpdateTexture(pixels []byte, pitch int) error {
	return s.texture.Update(nil, pixels, pitch)
}

// RenderFrame draws the square crop scaled to the window.
func (s *SDL) RenderFrame(srcX, srcY, srcSide, dstSide int) {
	src := sdl.Rect{X: int32(srcX), Y: int32(srcY), W: int32(srcSide), H: int32(srcSide)}
	dst := sdl.Rect{X: 0, Y: 0, W: int32(dstSide), H: int32(dstSide)}
	_ = s.renderer.Clear()
	_ = s.renderer.Copy(s.texture, &src, &dst)
	s.renderer.Present()
}

// ApplyShape replaces the window's shape with the given mask. The
// previous shape surface is freed only after the new one applied.
func (s *SDL) ApplyShape(mask *shape.Mask) error {
	surface, err := sdl.CreateRGBSurfaceWithFormat(0,
		int32(mask.Side), int32(mask.Side), 32, sdl.PIXELFORMAT_RGBA32)
	if err != nil {
		return fmt.Errorf("create shape surface: %w", err)
	}
	copy(surface.Pixels(), mask.Pix)

	shapeMode := sdl.WindowShapeMode{
		Mode:       sdl.ShapeModeBinarizeAlpha,
		Parameters: sdl.WindowShapeParams{BinarizationCutoff: 255},
	}
	if err := s.window.SetShape(surface, shapeMode); err != nil {
		surface.Free()
		return fmt.Errorf("set window shape: %w", err)
	}

	if s.surface != nil {
		s.surface.Free()
	}
	s.surface = surface
	return nil
}

// SetWindowSize resizes the window to size x size.
func (s *SDL) SetWindowSize(size int) {
	s.window.SetSize(int32(size), int32(size))
}

// GetWindowSize reads back the actual window size.
func (s *SDL) GetWindowSize() (int, int) {
	w, h := s.window.GetSize()
	return int(w), int(h)
}

// SetWindowPosition moves the window in screen coordinates.
func (s *SDL) SetWindowPosition(x, y int) {
	s.window.SetPosition(int32(x), int32(y))
}

// GetWindowPosition returns the window position in screen coordinates.
func (s *SDL) GetWindowPosition() (int, int) {
	x, y := s.window.GetPosition()
	return int(x), int(y)
}

// GlobalMouseState returns the pointer position in screen coordinates.
func (s *SDL) GlobalMouseState() (int, int) {
	x, y, _ := sdl.GetGlobalMouseState()
	return int(x), int(y)
}

// PollEvent translates the next pending SDL event. Unmapped events are
// swallowed so the caller only sees events it acts on.
func (s *SDL) PollEvent() Event {
	for {
		ev := sdl.PollEvent()
		if ev == nil {
			return nil
		}
		switch e := ev.(type) {
		case *sdl.QuitEvent:
			return QuitEvent{}
		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN {
				continue
			}
			switch e.Keysym.Sym {
			case sdl.K_ESCAPE:
				return KeyDownEvent{Key: KeyEscape}
			case sdl.K_PLUS, sdl.K_EQUALS:
				return KeyDownEvent{Key: KeyPlus}
			case sdl.K_MINUS:
				return KeyDownEvent{Key: KeyMinus}
			}
		case *sdl.MouseButtonEvent:
			if e.Button == sdl.BUTTON_LEFT {
				return MouseButtonEvent{Pressed: e.Type == sdl.MOUSEBUTTONDOWN}
			}
		case *sdl.MouseMotionEvent:
			return MouseMotionEvent{}
		case *sdl.MouseWheelEvent:
			if e.Y != 0 {
				return WheelEvent{Ticks: int(e.Y)}
			}
		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				return WindowSizeChangedEvent{Width: int(e.Data1), Height: int(e.Data2)}
			}
		}
	}
}

// Ticks returns milliseconds since SDL init.
func (s *SDL) Ticks() uint64 {
	return sdl.GetTicks64()
}

// Destroy releases resources in reverse creation order. Partial
// initialization is fine; only what exists is released.
func (s *SDL) Destroy() {
	if s.texture != nil {
		_ = s.texture.Destroy()
		s.texture = nil
	}
	if s.surface != nil {
		s.surface.Free()
		s.surface = nil
	}
	if s.renderer != nil {
		_ = s.renderer.Destroy()
		s.renderer = nil
	}
	if s.window != nil {
		_ = s.window.Destroy()
		s.window = nil
	}
	if s.inited {
		sdl.Quit()
		s.inited = false
	}
}
