package session

import (
	"sync"

	"github.com/hitoshi/peerview/internal/model"
)

// Subscribe はセッション状態の購読を開始する。
// 返すチャネルには現在の値がすぐに届き、以降は状態が変わるたびに最新の値が届く。
// チャネルは最新値のみを保持し、読み取りが遅い購読者には古い値を置き換えて届けるため、
// 配信側がブロックされることはない。
// 返す関数で購読を解除するとチャネルは閉じられる。複数回呼び出してもよい。
func (s *Store) Subscribe() (<-chan model.Session, func()) {
	ch := make(chan model.Session, 1)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, unsubscribe
}

// publishLocked は新しい状態を保持し、全購読者に配信する。s.muを保持して呼び出す。
func (s *Store) publishLocked(next model.Session) {
	prev := s.current.State
	s.current = next
	if prev != next.State {
		s.metrics.RecordSessionTransition(prev, next.State)
	}

	for _, ch := range s.subs {
		deliver(ch, copySession(next))
	}
}

// deliver は容量1のチャネルに最新値を届ける。未読の古い値があれば捨てる。
// 送信はs.muの下でのみ行うため、古い値を捨てた後の送信はブロックしない。
func deliver(ch chan model.Session, v model.Session) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}
