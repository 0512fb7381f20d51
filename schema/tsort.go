package schema

// topologicalSort performs a dependency-ordered DFS topological sort,
// returning the sorted items and false if a circular dependency was
// detected (in which case the returned slice is empty). Used to compute
// table depth (maximum FK chain length from roots, spec §3) and to order
// DDL/DML batches by that depth.
//
// Adapted from the teacher's generic DDL-ordering sort: same three-color
// DFS shape, generalized from statement-dependency strings to schema
// table names.
func topologicalSort[T any](items []T, dependencies map[string][]string, getID func(T) string) ([]T, bool) {
	var sorted []T
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	itemMap := make(map[string]T)

	for _, item := range items {
		itemMap[getID(item)] = item
	}

	var visit func(string) bool
	visit = func(id string) bool {
		if visiting[id] {
			return false
		}
		if visited[id] {
			return true
		}
		visiting[id] = true
		for _, dep := range dependencies[id] {
			if _, exists := itemMap[dep]; exists {
				if !visit(dep) {
					return false
				}
			}
		}
		visiting[id] = false
		visited[id] = true
		if item, exists := itemMap[id]; exists {
			sorted = append(sorted, item)
		}
		return true
	}

	for _, item := range items {
		id := getID(item)
		if !visited[id] {
			if !visit(id) {
				return nil, false
			}
		}
	}
	return sorted, true
}
