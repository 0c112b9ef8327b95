package mask

// Kind identifies what a source was loaded from.
type Kind int

const (
	KindUnknown Kind = iota
	KindSVG          // Vector drawing, one mask per fill color
	KindBitmap       // Plain raster image, a single mask
)

func (k Kind) String() string {
	switch k {
	case KindSVG:
		return "SVG"
	case KindBitmap:
		return "Bitmap"
	default:
		return "Unknown"
	}
}

// Source produces masks for a generation request.
//
// Colors lists the fill colors a caller may isolate, in first-seen order;
// bitmap sources have none. Mask with color "" returns the source's full ink
// mask; with a color it isolates that fill (all other fills and all strokes
// become empty). Every mask of one source has the same Size.
type Source interface {
	Kind() Kind
	Colors() []string
	Size() (width, height int)
	Mask(color string) (*Mask, error)
}
