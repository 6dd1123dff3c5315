// Package vm 实现了合约存储与调用事务引擎
package vm

import (
	"context"
	"errors"

	"github.com/holiman/uint256"

	"github.com/govm-net/vmstore/codec"
	"github.com/govm-net/vmstore/collection"
	"github.com/govm-net/vmstore/core"
)

// ExecutionContext 实现了合约执行上下文，为合约提供字段访问、转账和跨合约调用
type ExecutionContext struct {
	frame *frame
	ctx   context.Context
}

var _ core.Context = (*ExecutionContext)(nil)

// Sender 调用者地址
func (c *ExecutionContext) Sender() core.Address {
	return c.frame.msg.Sender
}

// Value 调用附带的金额
func (c *ExecutionContext) Value() uint64 {
	return c.frame.msg.Value
}

// ContractAddress 当前合约地址
func (c *ExecutionContext) ContractAddress() core.Address {
	return c.frame.contract
}

// Balance 查询余额，未知地址余额为0
func (c *ExecutionContext) Balance(addr core.Address) (*uint256.Int, error) {
	return c.frame.state.Balance(addr)
}

// Transfer 从当前合约转账
func (c *ExecutionContext) Transfer(to core.Address, amount uint64) error {
	return c.frame.state.Transfer(c.frame.contract, to, amount)
}

func (c *ExecutionContext) field(name string, kind core.FieldKind) (string, error) {
	k, err := codec.ValidateKey(name, codec.MaxFieldKeyLen)
	if err != nil {
		return "", err
	}
	fd, ok := c.frame.code.Definition.Field(k)
	if !ok {
		return "", &core.ValidationError{Kind: core.ErrUnknownField, Key: k}
	}
	if fd.Kind != kind {
		return "", &core.ValidationError{Kind: core.ErrFieldKindMismatch, Key: k, Detail: "field is a " + fd.Kind.String()}
	}
	return k, nil
}

// Get 读取标量字段
func (c *ExecutionContext) Get(name string) (any, error) {
	k, err := c.field(name, core.ScalarField)
	if err != nil {
		return nil, err
	}
	return c.frame.scalars[k], nil
}

// Set 写入标量字段，提交时才持久化
func (c *ExecutionContext) Set(name string, value any) error {
	k, err := c.field(name, core.ScalarField)
	if err != nil {
		return err
	}
	if _, ok := value.(core.Collection); ok {
		return &core.ValidationError{Kind: core.ErrFieldKindMismatch, Key: k, Detail: "scalar field can not hold a collection"}
	}
	v, err := codec.Normalize(value)
	if err != nil {
		return err
	}
	if v == nil {
		delete(c.frame.scalars, k)
	} else {
		c.frame.scalars[k] = v
	}
	c.frame.dirty[k] = true
	return nil
}

// Collection 返回集合字段的根，首次访问时创建
func (c *ExecutionContext) Collection(name string) (core.Collection, error) {
	k, err := c.field(name, core.CollectionField)
	if err != nil {
		return nil, err
	}
	if root, ok := c.frame.collections[k]; ok {
		return root, nil
	}

	raw, err := c.frame.state.Get(c.frame.contract, k)
	switch {
	case errors.Is(err, core.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		tag, _, err := codec.Decode(raw)
		if err != nil {
			return nil, c.frame.corrupt(withKey(err, k))
		}
		if tag != codec.TagCollection {
			return nil, c.frame.corrupt(&core.CorruptEncodingError{Key: k, Data: raw, Reason: "collection field holds a scalar"})
		}
	}

	data := &frameData{frame: c.frame, data: c.frame.state.Data(c.frame.contract)}
	root := collection.NewRoot(data, k)
	c.frame.collections[k] = root
	return root, nil
}

// NewCollection 创建未挂载的集合，可作为值存入其他集合
func (c *ExecutionContext) NewCollection() core.Collection {
	return collection.New()
}

// Call 在子帧中调用其他合约。子帧失败时返回 *core.CallError，
// 当前帧未提交的写入不受影响
func (c *ExecutionContext) Call(contract core.Address, method string, args ...any) (any, error) {
	f := c.frame
	child := f.engine.newFrame(f, f.store, f.tracer, core.Msg{Sender: f.contract}, contract, method, args, f.trace)
	ret, err := child.run(c.ctx)
	if err != nil {
		return nil, &core.CallError{Contract: contract, Method: method, Err: err}
	}
	return ret, nil
}

// Library 按名称返回依赖的库
func (c *ExecutionContext) Library(id string) (*core.Library, error) {
	lib, ok := c.frame.code.Dependencies[id]
	if !ok {
		return nil, &core.StateError{Kind: core.ErrNotFound, Key: "library " + id}
	}
	return lib, nil
}

// Log 记录事件，只有帧提交后才会保留
func (c *ExecutionContext) Log(event string, keyValues ...any) {
	c.frame.events = append(c.frame.events, core.Event{
		Contract:  c.frame.contract,
		Name:      event,
		KeyValues: keyValues,
	})
	c.frame.logger.Debug("contract event", "event", event, "data", keyValues)
}
