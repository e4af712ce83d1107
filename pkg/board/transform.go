package board

// Translate returns a copy of e moved by dx,dy. Shape line points are relative to the
// shape origin and so stay put.
func Translate(e Entity, dx, dy float64) Entity {
	switch v := e.(type) {
	case Stroke:
		v = v.clone()
		for i := 0; i+1 < len(v.Points); i += 2 {
			v.Points[i] += dx
			v.Points[i+1] += dy
		}
		return v
	case Shape:
		v = v.clone()
		v.X += dx
		v.Y += dy
		return v
	case Image:
		v.X += dx
		v.Y += dy
		return v
	case Text:
		v.X += dx
		v.Y += dy
		return v
	}
	return e
}
