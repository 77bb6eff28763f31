package pulse

import (
	"fmt"

	"github.com/oliverbestmann/stereorizer/glm"
	"golang.org/x/exp/constraints"
)

type numeric interface {
	constraints.Float | uint32
}

type Rectangle2u = Rectangle2[uint32]

// Rectangle2 is an axis aligned rectangle, Min inclusive and Max exclusive.
type Rectangle2[T numeric] struct {
	Min glm.Vec2[T]
	Max glm.Vec2[T]
}

func RectangleFromXYWH[T numeric](x, y, w, h T) Rectangle2[T] {
	return Rectangle2[T]{
		Min: glm.Vec2[T]{x, y},
		Max: glm.Vec2[T]{x + w, y + h},
	}
}

func (r Rectangle2[T]) Size() glm.Vec2[T] {
	return r.Max.Sub(r.Min)
}

func (r Rectangle2[T]) Width() T {
	return r.Max[0] - r.Min[0]
}

func (r Rectangle2[T]) Height() T {
	return r.Max[1] - r.Min[1]
}

func (r Rectangle2[T]) Empty() bool {
	return r.Width() == 0 || r.Height() == 0
}

func (r Rectangle2[T]) XYWH() (T, T, T, T) {
	x, y := r.Min.XY()
	w, h := r.Size().XY()
	return x, y, w, h
}

func (r Rectangle2[T]) String() string {
	x, y, w, h := r.XYWH()
	return fmt.Sprintf("[%v,%v %vx%v]", x, y, w, h)
}
