package scheduler

// locks tracks which running task holds each mutex resource. It is only
// touched by the coordinator goroutine.
type locks map[string]string

// tryAcquire takes every resource for holder, or none of them.
func (l locks) tryAcquire(holder string, resources []string) bool {
	for _, r := range resources {
		if _, held := l[r]; held {
			return false
		}
	}
	for _, r := range resources {
		l[r] = holder
	}
	return true
}

func (l locks) release(holder string, resources []string) {
	for _, r := range resources {
		if l[r] == holder {
			delete(l, r)
		}
	}
}
