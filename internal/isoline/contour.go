package isoline

// IndexPoint is a position in fractional lattice coordinates.
type IndexPoint struct {
	Row float64
	Col float64
}

// IndexLine is an ordered run of index points. A closed loop repeats its
// first point at the end.
type IndexLine []IndexPoint

type segment struct{ a, b int }

// Contours traces the iso-level of f with marching squares. A node counts
// as inside when its value is >= level. Saddle cells are resolved with the
// average of their four corners. Output order depends only on the field, so
// identical fields always give identical lines.
func Contours(f *Field, level float64) []IndexLine {
	if f.Rows < 2 || f.Cols < 2 {
		return nil
	}

	points := make(map[int]IndexPoint)
	var segs []segment

	for r := 0; r < f.Rows-1; r++ {
		for c := 0; c < f.Cols-1; c++ {
			tl, tr := f.At(r, c), f.At(r, c+1)
			bl, br := f.At(r+1, c), f.At(r+1, c+1)
			inTL, inTR, inBL, inBR := tl >= level, tr >= level, bl >= level, br >= level

			top, bottom := hEdge(f.Cols, r, c), hEdge(f.Cols, r+1, c)
			left, right := vEdge(f.Cols, r, c), vEdge(f.Cols, r, c+1)

			var crossed []int
			if inTL != inTR {
				crossed = append(crossed, top)
				points[top] = crossing(level, IndexPoint{float64(r), float64(c)}, tl, IndexPoint{float64(r), float64(c + 1)}, tr)
			}
			if inTR != inBR {
				crossed = append(crossed, right)
				points[right] = crossing(level, IndexPoint{float64(r), float64(c + 1)}, tr, IndexPoint{float64(r + 1), float64(c + 1)}, br)
			}
			if inBR != inBL {
				crossed = append(crossed, bottom)
				points[bottom] = crossing(level, IndexPoint{float64(r + 1), float64(c)}, bl, IndexPoint{float64(r + 1), float64(c + 1)}, br)
			}
			if inBL != inTL {
				crossed = append(crossed, left)
				points[left] = crossing(level, IndexPoint{float64(r), float64(c)}, tl, IndexPoint{float64(r + 1), float64(c)}, bl)
			}

			switch len(crossed) {
			case 2:
				segs = append(segs, segment{crossed[0], crossed[1]})
			case 4:
				centre := (tl+tr+bl+br)/4 >= level
				if inTL == centre {
					segs = append(segs, segment{top, right}, segment{bottom, left})
				} else {
					segs = append(segs, segment{left, top}, segment{right, bottom})
				}
			}
		}
	}

	return chain(segs, points)
}

func hEdge(cols, r, c int) int { return 2 * (r*cols + c) }
func vEdge(cols, r, c int) int { return 2*(r*cols+c) + 1 }

// crossing linearly interpolates the level position between two nodes.
func crossing(level float64, pa IndexPoint, va float64, pb IndexPoint, vb float64) IndexPoint {
	t := 0.5
	if vb != va {
		t = (level - va) / (vb - va)
	}
	return IndexPoint{
		Row: pa.Row + t*(pb.Row-pa.Row),
		Col: pa.Col + t*(pb.Col-pa.Col),
	}
}

// chain joins segments sharing an edge crossing into polylines. Segments are
// visited in creation order; the adjacency map is only used for lookup.
func chain(segs []segment, points map[int]IndexPoint) []IndexLine {
	adj := make(map[int][]int, len(segs)*2)
	for i, s := range segs {
		adj[s.a] = append(adj[s.a], i)
		adj[s.b] = append(adj[s.b], i)
	}
	used := make([]bool, len(segs))

	extend := func(from int) []int {
		var keys []int
		cur := from
		for {
			next := -1
			for _, j := range adj[cur] {
				if !used[j] {
					next = j
					break
				}
			}
			if next < 0 {
				return keys
			}
			used[next] = true
			if segs[next].a == cur {
				cur = segs[next].b
			} else {
				cur = segs[next].a
			}
			keys = append(keys, cur)
		}
	}

	var lines []IndexLine
	for i, s := range segs {
		if used[i] {
			continue
		}
		used[i] = true
		forward := extend(s.b)
		backward := extend(s.a)

		keys := make([]int, 0, len(backward)+2+len(forward))
		for k := len(backward) - 1; k >= 0; k-- {
			keys = append(keys, backward[k])
		}
		keys = append(keys, s.a, s.b)
		keys = append(keys, forward...)

		line := make(IndexLine, len(keys))
		for k, key := range keys {
			line[k] = points[key]
		}
		lines = append(lines, line)
	}
	return lines
}
