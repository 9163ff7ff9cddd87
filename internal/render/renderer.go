package render

import (
	"sort"
	"strings"

	"codeberg.org/mutker/pipdrain/internal/errors"
	"codeberg.org/mutker/pipdrain/internal/logger"
	"codeberg.org/mutker/pipdrain/internal/media"
)

// Size is a canvas geometry in pixels.
type Size struct {
	Width  int
	Height int
}

// Renderer paints into frames of the size it asks for. The size is queried
// before every frame is made, so it must stay stable for a renderer's life.
type Renderer interface {
	PreferredCanvasSize() Size
	Render(frame *media.Frame)
}

type constructor func(log logger.Logger) Renderer

var registry = map[string]constructor{
	"fill": func(log logger.Logger) Renderer { return NewFillRenderer(log) },
}

// New returns the renderer registered under name.
func New(name string, log logger.Logger) (Renderer, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, errors.New().WithData(errors.ErrInvalidRenderer, name).
			WithMessage("Unknown renderer, expected one of " + strings.Join(Names(), ", "))
	}

	return ctor(log), nil
}

// Names lists the registered renderers in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
