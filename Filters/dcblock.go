package Filters

// DCBlocker is a one pole high-pass, y = g*(x - x1) + r*y1 with r = 1-alpha.
type DCBlocker struct {
	r, g   float64
	x1, y1 complex128
}

func NewDCBlocker(alpha float64) *DCBlocker {
	r := 1 - alpha
	return &DCBlocker{r: r, g: (1 + r) / 2}
}

func (b *DCBlocker) Process(x complex128) complex128 {
	y := x - b.x1 + complex(b.r, 0)*b.y1
	b.x1 = x
	b.y1 = y
	return complex(b.g, 0) * y
}

func (b *DCBlocker) Reset() {
	b.x1, b.y1 = 0, 0
}
