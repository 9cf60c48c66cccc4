package generation

import "fmt"

// State 编排器状态
type State string

const (
	StateIdle        State = "idle"
	StateValidating  State = "validating"
	StateDispatching State = "dispatching"
	StateStreaming   State = "streaming"
	StateSuccess     State = "success"
	StateFailed      State = "failed"
)

// validTransitions 合法的状态转换
var validTransitions = map[State][]State{
	StateIdle:        {StateValidating},
	StateValidating:  {StateDispatching, StateFailed, StateIdle},
	StateDispatching: {StateStreaming, StateSuccess, StateFailed, StateIdle},
	StateStreaming:   {StateStreaming, StateSuccess, StateFailed, StateIdle},
	StateSuccess:     {StateValidating, StateIdle}, // 重新生成
	StateFailed:      {StateValidating, StateIdle},
}

// CanTransition 检查状态转换是否合法
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Settled 是否为终态
func (s State) Settled() bool {
	return s == StateSuccess || s == StateFailed
}

// Busy 是否有生成正在进行
func (s State) Busy() bool {
	return s == StateValidating || s == StateDispatching || s == StateStreaming
}

// ErrInvalidTransition 非法状态转换
type ErrInvalidTransition struct {
	From State
	To   State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}
