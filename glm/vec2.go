package glm

type Vec2[T numeric] [2]T

func (lhs Vec2[T]) Sub(rhs Vec2[T]) Vec2[T] {
	return Vec2[T]{
		lhs[0] - rhs[0],
		lhs[1] - rhs[1],
	}
}

func (lhs Vec2[T]) XY() (x, y T) {
	return lhs[0], lhs[1]
}
