package middleware

import (
	"fmt"
	"sync"

	"github.com/km-arc/go-kernel/framework/container"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/resolver"
)

// Next continues the chain with a (possibly replaced) request and response.
type Next func(req *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error)

// Frame is one layer of the pipeline. It may call next zero or one time and
// must return a response or an error.
//
//	func Auth(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
//	    if req.BearerToken() == "" {
//	        return res.Unauthorized()
//	    }
//	    return next(req.WithAttribute("user", "alice"), res)
//	}
type Frame func(req *gohttp.Request, res *gohttp.Response, next Next) (*gohttp.Response, error)

// Pipeline composes frames around a kernel. The last frame added runs first.
//
// The chain cannot change while a dispatch is in flight: Dispatch holds a
// read lock for its whole duration and Add fails with ErrLocked instead of
// waiting. Concurrent Add calls outside a dispatch wait for each other.
type Pipeline struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	kernel  Next
	frames  []Frame
	chain   Next
}

// New returns a pipeline seeded with kernel. A nil kernel leaves it unseeded
// until Seed is called.
func New(kernel Next) *Pipeline {
	p := &Pipeline{kernel: kernel}
	p.rebuild()
	return p
}

// Seed sets the innermost frame. It fails if the pipeline is already seeded.
func (p *Pipeline) Seed(kernel Next) error {
	if kernel == nil {
		panic("middleware: nil kernel passed to Seed")
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if !p.mu.TryLock() {
		return ErrLocked
	}
	defer p.mu.Unlock()

	if p.kernel != nil {
		return ErrSeeded
	}
	p.kernel = kernel
	p.rebuild()
	return nil
}

// Seeded reports whether a kernel is set.
func (p *Pipeline) Seeded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.kernel != nil
}

// Add pushes frame on top of the chain.
func (p *Pipeline) Add(frame Frame) error {
	if frame == nil {
		panic("middleware: nil frame passed to Add")
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if !p.mu.TryLock() {
		return ErrLocked
	}
	defer p.mu.Unlock()

	p.frames = append(p.frames, frame)
	p.rebuild()
	return nil
}

// Len returns the number of frames, excluding the kernel.
func (p *Pipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.frames)
}

// Dispatch runs the chain from the outermost frame.
func (p *Pipeline) Dispatch(req *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.kernel == nil {
		return nil, ErrNotSeeded
	}
	return p.chain(req, res)
}

// rebuild folds frames right to left over the kernel. Callers hold the write
// lock or own p exclusively.
func (p *Pipeline) rebuild() {
	if p.kernel == nil {
		p.chain = nil
		return
	}

	next := p.kernel
	for i, frame := range p.frames {
		next = link(i, frame, next)
	}
	p.chain = next
}

func link(index int, frame Frame, next Next) Next {
	return func(req *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error) {
		out, err := frame(req, res, next)
		if err == nil && out == nil {
			return nil, fmt.Errorf("%w: frame %d returned no response", ErrContractViolation, index)
		}
		return out, err
	}
}

// Defer returns a frame that resolves ref through c every time it runs.
// ref may be a Frame, a func literal with the Frame signature, or a
// "name:method" / "name" reference.
func Defer(ref any, c *container.Container) Frame {
	d := resolver.Defer[Frame](ref, c)
	return func(req *gohttp.Request, res *gohttp.Response, next Next) (*gohttp.Response, error) {
		frame, err := d.Resolve()
		if err != nil {
			return nil, err
		}
		return frame(req, res, next)
	}
}
