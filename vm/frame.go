package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/govm-net/vmstore/codec"
	"github.com/govm-net/vmstore/collection"
	"github.com/govm-net/vmstore/core"
	"github.com/govm-net/vmstore/repository"
	"github.com/govm-net/vmstore/security"
	"github.com/govm-net/vmstore/storage"
)

// FrameState 调用帧状态
type FrameState int

const (
	StateLoading FrameState = iota
	StateExecuting
	StateCommitting
	StateCommitted
	StateAborting
	StateAborted
)

func (s FrameState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateExecuting:
		return "executing"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	case StateAborting:
		return "aborting"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("FrameState(%d)", int(s))
	}
}

// frame 一次合约方法调用。帧持有自己的写集和字段缓存，
// 提交时写集并入父存储，中止时全部丢弃
type frame struct {
	engine *Engine
	parent *frame
	tracer *security.CallTracer
	logger *slog.Logger
	trace  string

	store *storage.Overlay
	state *storage.State

	msg      core.Msg
	contract core.Address
	method   string
	args     []any
	depth    int
	status   FrameState

	code        *repository.ContractCode
	scalars     map[string]any
	dirty       map[string]bool
	collections map[string]*collection.Field
	events      []core.Event
	// fault 编码损坏，帧只能中止
	fault error
}

func (e *Engine) newFrame(parent *frame, parentStore storage.Store, tracer *security.CallTracer, msg core.Msg, contract core.Address, method string, args []any, traceID string) *frame {
	store := storage.NewOverlay(parentStore)
	depth := 1
	if parent != nil {
		depth = parent.depth + 1
	}
	return &frame{
		engine:   e,
		parent:   parent,
		tracer:   tracer,
		logger:   e.logger.With("trace", traceID, "contract", contract, "method", method, "depth", depth),
		trace:    traceID,
		store:    store,
		state:    storage.NewState(store),
		msg:      msg,
		contract: contract,
		method:   method,
		args:     args,
		depth:    depth,
	}
}

func (f *frame) transition(s FrameState) {
	f.status = s
	f.logger.Debug("frame state", "state", s)
}

// run 执行帧：加载、执行方法，然后提交或中止
func (f *frame) run(ctx context.Context) (ret any, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.tracer.BeginCall(f.msg.Sender, f.contract, f.method); err != nil {
		return nil, err
	}
	defer f.tracer.EndCall()

	start := time.Now()
	defer func() {
		f.engine.metrics.observeFrame(f.status, f.depth, time.Since(start))
	}()

	f.transition(StateLoading)
	if err := f.load(); err != nil {
		return nil, f.abort(err)
	}

	method, ok := f.code.Definition.Lookup(f.method)
	if !ok {
		return nil, f.abort(&core.MethodNotFoundError{Contract: f.contract, Method: f.method})
	}
	if f.msg.Value > 0 {
		if err := f.state.Transfer(f.msg.Sender, f.contract, f.msg.Value); err != nil {
			return nil, f.abort(err)
		}
	}

	f.transition(StateExecuting)
	ret, err = f.invoke(ctx, method)
	if err == nil && f.fault != nil {
		err = f.fault
	}
	if err != nil {
		return nil, f.abort(err)
	}

	f.transition(StateCommitting)
	if err := f.commit(); err != nil {
		return nil, f.abort(err)
	}
	f.transition(StateCommitted)
	return ret, nil
}

// load 读取账户记录，解析依赖表，并把标量字段读入帧缓存
func (f *frame) load() error {
	acc, err := f.state.Account(f.contract)
	if err != nil {
		return err
	}
	code, err := f.engine.codeManager.Load(f.state, acc)
	if err != nil {
		return err
	}
	f.code = code

	f.scalars = make(map[string]any)
	f.dirty = make(map[string]bool)
	f.collections = make(map[string]*collection.Field)

	for _, fd := range code.Definition.Fields() {
		if fd.Kind != core.ScalarField {
			continue
		}
		raw, err := f.state.Get(f.contract, fd.Name)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		tag, v, err := codec.Decode(raw)
		if err != nil {
			return withKey(err, fd.Name)
		}
		if tag != codec.TagScalar {
			return &core.CorruptEncodingError{Key: fd.Name, Data: raw, Reason: "scalar field holds a collection"}
		}
		f.scalars[fd.Name] = v
	}
	return nil
}

func (f *frame) invoke(ctx context.Context, method core.Method) (ret any, err error) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Warn("contract panic", "panic", r)
			err = &core.PanicError{Value: r}
		}
	}()
	return method(&ExecutionContext{frame: f, ctx: ctx}, f.args...)
}

// commit 写入脏标量字段并刷新所有已加载的集合字段，然后把写集并入父存储
func (f *frame) commit() error {
	data := f.state.Data(f.contract)

	names := make([]string, 0, len(f.dirty))
	for name := range f.dirty {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := f.scalars[name]
		if v == nil {
			if err := data.Remove(name); err != nil && !errors.Is(err, core.ErrNotFound) {
				return err
			}
			continue
		}
		raw, err := codec.Encode(codec.TagScalar, v)
		if err != nil {
			return err
		}
		if err := data.Put(name, raw); err != nil {
			return err
		}
	}

	names = names[:0]
	for name := range f.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		root := f.collections[name]
		if !root.Dirty() {
			continue
		}
		marker, err := codec.Encode(codec.TagCollection, nil)
		if err != nil {
			return err
		}
		if err := data.Put(name, marker); err != nil {
			return err
		}
		if err := root.Flush(name); err != nil {
			return fmt.Errorf("flush %s: %w", name, err)
		}
	}

	if err := f.store.Commit(); err != nil {
		return err
	}
	if f.parent != nil {
		f.parent.events = append(f.parent.events, f.events...)
	}
	f.logger.Debug("frame committed", "events", len(f.events))
	return nil
}

// abort 丢弃写集和帧缓存，返回原错误
func (f *frame) abort(err error) error {
	f.transition(StateAborting)
	f.store.Discard()
	f.scalars = nil
	f.dirty = nil
	f.collections = nil
	f.events = nil
	f.fault = nil
	f.transition(StateAborted)
	f.logger.Warn("frame aborted", "error", err)
	return err
}

func withKey(err error, key string) error {
	var ce *core.CorruptEncodingError
	if errors.As(err, &ce) {
		ce.Key = key
	}
	return err
}
