package geometry

import "github.com/paulmach/orb"

// Merge joins lines that meet end to end at a point shared by exactly two
// line ends, like a line-merge over the endpoint graph. Closed rings and
// lines meeting at junctions of three or more ends are left as they are.
// Lines are visited in input order, so the output is deterministic.
func Merge(mls orb.MultiLineString) orb.MultiLineString {
	if len(mls) == 0 {
		return nil
	}

	degree := make(map[orb.Point]int)
	ends := make(map[orb.Point][]int)
	for i, ls := range mls {
		if len(ls) < 2 || isClosed(ls) {
			continue
		}
		first, last := ls[0], ls[len(ls)-1]
		degree[first]++
		degree[last]++
		ends[first] = append(ends[first], i)
		if last != first {
			ends[last] = append(ends[last], i)
		}
	}

	used := make([]bool, len(mls))
	next := func(p orb.Point) int {
		if degree[p] != 2 {
			return -1
		}
		for _, j := range ends[p] {
			if !used[j] {
				return j
			}
		}
		return -1
	}

	var out orb.MultiLineString
	for i, ls := range mls {
		if used[i] {
			continue
		}
		used[i] = true
		cur := ls.Clone()
		if len(cur) < 2 || isClosed(cur) {
			out = append(out, cur)
			continue
		}

		for {
			p := cur[len(cur)-1]
			j := next(p)
			if j < 0 {
				break
			}
			used[j] = true
			seg := mls[j].Clone()
			if seg[0] != p {
				seg.Reverse()
			}
			cur = append(cur, seg[1:]...)
		}
		for {
			p := cur[0]
			j := next(p)
			if j < 0 {
				break
			}
			used[j] = true
			seg := mls[j].Clone()
			if seg[len(seg)-1] != p {
				seg.Reverse()
			}
			cur = append(seg[:len(seg)-1], cur...)
		}
		out = append(out, cur)
	}
	return out
}
