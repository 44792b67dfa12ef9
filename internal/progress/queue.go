package progress

import "sync"

// LevelQueue holds level-ups per user until no achievement notification is
// waiting to be acknowledged, so the chest never opens over an achievement.
type LevelQueue struct {
	mu      sync.Mutex
	pending map[int64][]int
	holds   map[int64]int
	// announced levels whose chest has not been opened yet
	earned map[int64][]int
}

func NewLevelQueue() *LevelQueue {
	return &LevelQueue{
		pending: make(map[int64][]int),
		holds:   make(map[int64]int),
		earned:  make(map[int64][]int),
	}
}

func (q *LevelQueue) Push(userID int64, level int) {
	q.mu.Lock()
	q.pending[userID] = append(q.pending[userID], level)
	q.mu.Unlock()
}

// Hold records n achievement notifications the user still has to dismiss.
func (q *LevelQueue) Hold(userID int64, n int) {
	if n <= 0 {
		return
	}
	q.mu.Lock()
	q.holds[userID] += n
	q.mu.Unlock()
}

// Flush returns the highest pending level and clears the queue, unless
// notifications are still held.
func (q *LevelQueue) Flush(userID int64) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flushLocked(userID)
}

// Ack clears all held notifications and flushes.
func (q *LevelQueue) Ack(userID int64) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.holds, userID)
	return q.flushLocked(userID)
}

func (q *LevelQueue) flushLocked(userID int64) (int, bool) {
	if q.holds[userID] > 0 {
		return 0, false
	}
	levels := q.pending[userID]
	if len(levels) == 0 {
		return 0, false
	}
	max := levels[0]
	for _, l := range levels[1:] {
		if l > max {
			max = l
		}
	}
	delete(q.pending, userID)
	q.earned[userID] = append(q.earned[userID], max)
	return max, true
}

// Claim consumes an announced level so its chest opens once. Level 0 takes
// the oldest one.
func (q *LevelQueue) Claim(userID int64, level int) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	earned := q.earned[userID]
	for i, l := range earned {
		if level != 0 && l != level {
			continue
		}
		earned = append(earned[:i:i], earned[i+1:]...)
		if len(earned) == 0 {
			delete(q.earned, userID)
		} else {
			q.earned[userID] = earned
		}
		return l, true
	}
	return 0, false
}

// Release gives back a claimed level whose chest could not be opened.
func (q *LevelQueue) Release(userID int64, level int) {
	q.mu.Lock()
	q.earned[userID] = append(q.earned[userID], level)
	q.mu.Unlock()
}

// Pending returns a copy of the queued levels.
func (q *LevelQueue) Pending(userID int64) []int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]int(nil), q.pending[userID]...)
}
