package service

import (
	"sync"
	"sync/atomic"
	"time"

	"sign_learn_backend/internal/util"

	"github.com/google/uuid"
)

type RunState int32

const (
	RunPending RunState = iota
	RunActive
	RunFinished
	RunCanceled
)

func (s RunState) String() string {
	switch s {
	case RunPending:
		return "pending"
	case RunActive:
		return "active"
	case RunFinished:
		return "finished"
	case RunCanceled:
		return "canceled"
	}
	return "unknown"
}

type AnswerRecord struct {
	IsCorrect bool `json:"isCorrect"`
	Skipped   bool `json:"skipped"`
}

// RunSession 单次练习的内存状态。mu 串行化该练习上的所有操作，
// state、currentIndex、lastActivity 额外以原子方式发布，供 RunStore 在不持有 mu 时读取
type RunSession struct {
	mu sync.Mutex

	ID        string
	UserID    string
	CourseID  string
	LessonID  string
	StartedAt time.Time

	// 固定的题目顺序
	Order        []string
	Answers      map[string]AnswerRecord
	CorrectCount int
	Total        int
	// 开始时扣减后的剩余次数，账本读取失败时作为返回值
	RemainingAtStart int

	state        atomic.Int32
	currentIndex atomic.Int32
	lastActivity atomic.Int64
}

func (s *RunSession) State() RunState {
	return RunState(s.state.Load())
}

func (s *RunSession) setState(state RunState) {
	s.state.Store(int32(state))
}

func (s *RunSession) CurrentIndex() int {
	return int(s.currentIndex.Load())
}

func (s *RunSession) setCurrentIndex(i int) {
	s.currentIndex.Store(int32(i))
}

func (s *RunSession) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *RunSession) touch(now time.Time) {
	s.lastActivity.Store(now.UnixNano())
}

func (s *RunSession) indexOf(questionID string) int {
	for i, id := range s.Order {
		if id == questionID {
			return i
		}
	}
	return -1
}

// recount 正确数始终由答题记录重新统计
func (s *RunSession) recount() {
	n := 0
	for _, a := range s.Answers {
		if a.IsCorrect {
			n++
		}
	}
	s.CorrectCount = n
}

// RunStore 进程内练习会话表，每个用户最多一个未结束的练习。
// 锁顺序：可以在持有 RunSession.mu 时获取 RunStore.mu，反之不行
type RunStore struct {
	mu           sync.Mutex
	runs         map[string]*RunSession
	activeByUser map[string]string
}

func NewRunStore() *RunStore {
	return &RunStore{
		runs:         make(map[string]*RunSession),
		activeByUser: make(map[string]string),
	}
}

// Acquire 为用户原子地登记一个 pending 会话；已有未结束的会话时返回 ConflictError
func (st *RunStore) Acquire(userID string, now time.Time) (*RunSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if runID, ok := st.activeByUser[userID]; ok {
		if existing, ok := st.runs[runID]; ok {
			switch existing.State() {
			case RunPending, RunActive:
				return nil, &util.ConflictError{RunID: runID, CurrentIndex: existing.CurrentIndex()}
			}
		}
		delete(st.activeByUser, userID)
	}

	s := &RunSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartedAt: now,
		Answers:   make(map[string]AnswerRecord),
	}
	s.setState(RunPending)
	s.touch(now)

	st.runs[s.ID] = s
	st.activeByUser[userID] = s.ID
	return s, nil
}

// Activate 填充会话内容后转为 active
func (st *RunStore) Activate(s *RunSession, courseID, lessonID string, order []string, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CourseID = courseID
	s.LessonID = lessonID
	s.Order = order
	s.Total = len(order)
	s.RemainingAtStart = remaining
	s.setCurrentIndex(0)
	s.setState(RunActive)
}

// Discard 放弃尚未激活的会话
func (st *RunStore) Discard(s *RunSession) {
	st.remove(s)
}

// Get 返回仍在内存中的会话；调用方需要在 s.mu 下确认状态为 active
func (st *RunStore) Get(runID string) (*RunSession, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.runs[runID]
	if !ok || s.State() == RunPending {
		return nil, util.ErrRunNotFound
	}
	return s, nil
}

// Release 删除会话，只有用户索引仍指向该会话时才清除
func (st *RunStore) Release(s *RunSession) {
	st.remove(s)
}

func (st *RunStore) remove(s *RunSession) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.runs, s.ID)
	if st.activeByUser[s.UserID] == s.ID {
		delete(st.activeByUser, s.UserID)
	}
}

// Idle 返回最后活动早于 now-maxIdle 的 active 会话 ID
func (st *RunStore) Idle(now time.Time, maxIdle time.Duration) []string {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := now.Add(-maxIdle)
	var ids []string
	for id, s := range st.runs {
		if s.State() == RunActive && s.LastActivity().Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len 当前内存中的会话数
func (st *RunStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.runs)
}
