package env

// levelQueue is a min-heap of node indices ordered by level, then index.
// It implements container/heap.Interface.
type levelQueue struct {
	env   *Environment
	items []int
}

func (q *levelQueue) Len() int { return len(q.items) }

func (q *levelQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if q.env.nodes[a].level != q.env.nodes[b].level {
		return q.env.nodes[a].level < q.env.nodes[b].level
	}
	return a < b
}

func (q *levelQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *levelQueue) Push(x any) { q.items = append(q.items, x.(int)) }

func (q *levelQueue) Pop() any {
	n := len(q.items)
	x := q.items[n-1]
	q.items = q.items[:n-1]
	return x
}
