// Package security 提供合约调用链追踪和调用约束检查
package security

import (
	"fmt"
	"time"

	"github.com/govm-net/vmstore/core"
)

// DefaultMaxCallDepth 默认最大调用深度
const DefaultMaxCallDepth = 8

// CallTracer 用于追踪合约调用链
type CallTracer struct {
	maxDepth  int
	callStack []CallFrame
}

// CallFrame 表示一个调用栈帧
type CallFrame struct {
	Sender    core.Address
	Contract  core.Address
	Method    string
	StartTime time.Time
}

// NewCallTracer 创建调用追踪器，maxDepth 不大于0时使用默认值
func NewCallTracer(maxDepth int) *CallTracer {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCallDepth
	}
	return &CallTracer{
		maxDepth:  maxDepth,
		callStack: make([]CallFrame, 0, maxDepth),
	}
}

// BeginCall 记录调用开始。超过最大深度或重入正在执行的合约时返回错误
func (t *CallTracer) BeginCall(sender, contract core.Address, method string) error {
	if len(t.callStack) >= t.maxDepth {
		return fmt.Errorf("%w: max %d", core.ErrCallDepthExceeded, t.maxDepth)
	}
	if t.Contains(contract) {
		return &core.StateError{Kind: core.ErrReentrantCall, Key: contract.String()}
	}

	t.callStack = append(t.callStack, CallFrame{
		Sender:    sender,
		Contract:  contract,
		Method:    method,
		StartTime: time.Now(),
	})
	return nil
}

// EndCall 记录调用结束，返回出栈的帧
func (t *CallTracer) EndCall() (CallFrame, bool) {
	if len(t.callStack) == 0 {
		return CallFrame{}, false
	}
	frame := t.callStack[len(t.callStack)-1]
	t.callStack = t.callStack[:len(t.callStack)-1]
	return frame, true
}

// Depth 当前调用深度
func (t *CallTracer) Depth() int {
	return len(t.callStack)
}

// MaxDepth 最大调用深度
func (t *CallTracer) MaxDepth() int {
	return t.maxDepth
}

// Contains 合约是否已在调用栈中
func (t *CallTracer) Contains(contract core.Address) bool {
	for _, f := range t.callStack {
		if f.Contract == contract {
			return true
		}
	}
	return false
}

// Stack 返回调用栈的副本，栈底在前
func (t *CallTracer) Stack() []CallFrame {
	return append([]CallFrame(nil), t.callStack...)
}
