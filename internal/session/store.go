// Package session はクライアントごとの認証セッション保持を提供する。
//
// Storeはパッケージ変数のシングルトンではなく、クライアントコンテキストごとに
// 明示的に生成して各コンポーネントへ渡す。
package session

import (
	"sync"

	"github.com/hitoshi/cloudhms/internal/model"
)

// Listener は認証状態の変化を受け取るコールバック。
// セッションが破棄された場合はnilが渡される。
type Listener func(s *model.Session)

// Store は現在の認証セッションを保持し、変化を購読者に通知する。
// 並行書き込みは後勝ちで、Currentは常に最後に書き込まれた値を返す。
//
// 通知は書き込み順に1つずつ配送される。購読者の中からSetやClearを呼んでもよく、
// その変化は実行中の通知が終わった後に配送される。
type Store struct {
	mu        sync.RWMutex
	current   *model.Session
	listeners map[int]Listener
	order     []int
	nextID    int

	// pending は未配送の通知。dispatchingがtrueの間は配送中のゴルーチンが順に処理する。
	pending     []notification
	dispatching bool
}

type notification struct {
	sess      *model.Session
	listeners []Listener
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{
		listeners: make(map[int]Listener),
	}
}

// Current は現在のセッションを返す。セッションがない場合はnilを返す。
func (s *Store) Current() *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set はセッションを置き換え、購読者に通知する。
// nilを渡した場合はClearと同じ。
// 別の通知を配送中の場合は通知をキューに積んで戻り、配送中の側が引き続き届ける。
func (s *Store) Set(sess *model.Session) {
	s.mu.Lock()
	s.current = sess
	s.pending = append(s.pending, notification{sess: sess, listeners: s.snapshotLocked()})
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	s.mu.Unlock()

	s.drain()
}

// drain はキューが空になるまで通知を配送する。購読者がpanicした場合は残りの通知を破棄する。
func (s *Store) drain() {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.pending = nil
			s.dispatching = false
			s.mu.Unlock()
			panic(r)
		}
	}()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.dispatching = false
			s.mu.Unlock()
			return
		}
		n := s.pending[0]
		s.pending[0] = notification{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		for _, l := range n.listeners {
			l(n.sess)
		}
	}
}

// Clear はセッションを破棄し、購読者に通知する。
// セッションがない状態で呼んでもエラーにならない。
func (s *Store) Clear() {
	s.Set(nil)
}

// Subscribe は認証状態変化の購読者を登録する。
// 戻り値の関数を呼ぶと購読を解除する。解除は何度呼んでもよい。
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// snapshotLocked は登録順の購読者一覧を返す。呼び出し側でmuを保持すること。
func (s *Store) snapshotLocked() []Listener {
	out := make([]Listener, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.listeners[id])
	}
	return out
}
