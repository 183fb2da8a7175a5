package cluster

// dsu is a union-find over string labels with path compression and union by
// rank. Labels get indices in the order they are first seen.
type dsu struct {
	root   []int
	rank   []int
	labels map[string]int
}

func newDSU() *dsu {
	return &dsu{labels: make(map[string]int)}
}

func (d *dsu) add(label string) int {
	i := len(d.root)
	d.root = append(d.root, i)
	d.rank = append(d.rank, 0)
	d.labels[label] = i
	return i
}

func (d *dsu) find(x int) int {
	if d.root[x] == x {
		return x
	}
	d.root[x] = d.find(d.root[x])
	return d.root[x]
}

// findOrCreate returns the root of label's set, adding label as a singleton
// when it is new.
func (d *dsu) findOrCreate(label string) int {
	i, ok := d.labels[label]
	if !ok {
		return d.add(label)
	}
	return d.find(i)
}

func (d *dsu) union(x, y int) {
	rx, ry := d.find(x), d.find(y)
	if rx == ry {
		return
	}
	switch {
	case d.rank[rx] > d.rank[ry]:
		d.root[ry] = rx
	case d.rank[rx] < d.rank[ry]:
		d.root[rx] = ry
	default:
		d.root[ry] = rx
		d.rank[rx]++
	}
}
