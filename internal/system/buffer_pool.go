package system

import (
	"image"
	"sync"
)

// Raw RGBA frames dominate export allocations. Recycling them through
// size-keyed pools keeps the garbage collector out of the frame loop.

type frameKey struct {
	w, h int
}

type framePool struct {
	mu    sync.Mutex
	pools map[frameKey]*sync.Pool
}

var frames = framePool{pools: make(map[frameKey]*sync.Pool)}

// GetFrame returns an RGBA buffer of the given size. Contents are
// unspecified; callers are expected to overwrite every pixel.
func GetFrame(width, height int) *image.RGBA {
	return frames.get(frameKey{w: width, h: height})
}

// PutFrame recycles a buffer obtained from GetFrame. The caller must not
// touch it afterwards.
func PutFrame(img *image.RGBA) {
	if img == nil {
		return
	}
	frames.put(frameKey{w: img.Rect.Dx(), h: img.Rect.Dy()}, img)
}

func (p *framePool) get(key frameKey) *image.RGBA {
	p.mu.Lock()
	pool, ok := p.pools[key]
	if !ok {
		pool = &sync.Pool{
			New: func() any {
				return image.NewRGBA(image.Rect(0, 0, key.w, key.h))
			},
		}
		p.pools[key] = pool
	}
	p.mu.Unlock()
	return pool.Get().(*image.RGBA)
}

func (p *framePool) put(key frameKey, img *image.RGBA) {
	p.mu.Lock()
	pool, ok := p.pools[key]
	p.mu.Unlock()
	if ok {
		pool.Put(img)
	}
}
