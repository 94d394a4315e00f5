package streamcorpus

import (
	"context"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
)

// maxListPrealloc bounds slice preallocation from untrusted list headers.
const maxListPrealloc = 1024

func writeFieldI32(ctx context.Context, p thrift.TProtocol, name string, id int16, v int32) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.I32, id); err != nil {
		return fmt.Errorf("write field %s begin: %w", name, err)
	}
	if err := p.WriteI32(ctx, v); err != nil {
		return fmt.Errorf("write field %s: %w", name, err)
	}
	if err := p.WriteFieldEnd(ctx); err != nil {
		return fmt.Errorf("write field %s end: %w", name, err)
	}
	return nil
}

func writeFieldString(ctx context.Context, p thrift.TProtocol, name string, id int16, v string) error {
	if err := p.WriteFieldBegin(ctx, name, thrift.STRING, id); err != nil {
		return fmt.Errorf("write field %s begin: %w", name, err)
	}
	if err := p.WriteString(ctx, v); err != nil {
		return fmt.Errorf("write field %s: %w", name, err)
	}
	if err := p.WriteFieldEnd(ctx); err != nil {
		return fmt.Errorf("write field %s end: %w", name, err)
	}
	return nil
}

// writeFieldStructList writes a list<struct> field. Nil elements are skipped
// and the list size counts only what is written. Empty lists are still
// written so that readers observe an explicit empty value.
func writeFieldStructList[T any, PT interface {
	*T
	thrift.TStruct
}](ctx context.Context, p thrift.TProtocol, name string, id int16, items []PT) error {
	size := 0
	for _, item := range items {
		if item != nil {
			size++
		}
	}
	if err := p.WriteFieldBegin(ctx, name, thrift.LIST, id); err != nil {
		return fmt.Errorf("write field %s begin: %w", name, err)
	}
	if err := p.WriteListBegin(ctx, thrift.STRUCT, size); err != nil {
		return fmt.Errorf("write field %s list begin: %w", name, err)
	}
	for i, item := range items {
		if item == nil {
			continue
		}
		if err := item.Write(ctx, p); err != nil {
			return fmt.Errorf("write field %s[%d]: %w", name, i, err)
		}
	}
	if err := p.WriteListEnd(ctx); err != nil {
		return fmt.Errorf("write field %s list end: %w", name, err)
	}
	if err := p.WriteFieldEnd(ctx); err != nil {
		return fmt.Errorf("write field %s end: %w", name, err)
	}
	return nil
}

func readStructList[T any, PT interface {
	*T
	thrift.TStruct
}](ctx context.Context, p thrift.TProtocol, name string) ([]PT, error) {
	elemType, size, err := p.ReadListBegin(ctx)
	if err != nil {
		return nil, fmt.Errorf("read field %s list begin: %w", name, err)
	}
	if elemType != thrift.STRUCT {
		return nil, fmt.Errorf("read field %s: expected list<struct>, got list<%s>", name, elemType)
	}
	if size < 0 {
		return nil, fmt.Errorf("read field %s: negative list size %d", name, size)
	}
	out := make([]PT, 0, min(size, maxListPrealloc))
	for i := 0; i < size; i++ {
		item := PT(new(T))
		if err := item.Read(ctx, p); err != nil {
			return nil, fmt.Errorf("read field %s[%d]: %w", name, i, err)
		}
		out = append(out, item)
	}
	if err := p.ReadListEnd(ctx); err != nil {
		return nil, fmt.Errorf("read field %s list end: %w", name, err)
	}
	return out, nil
}

// readFields drives the field loop of a struct, handing each field to fn.
// fn reports whether it consumed the field; unconsumed fields are skipped so
// that messages written by newer schemas still decode.
func readFields(ctx context.Context, p thrift.TProtocol, structName string, fn func(id int16, t thrift.TType) (bool, error)) error {
	if _, err := p.ReadStructBegin(ctx); err != nil {
		return fmt.Errorf("read %s begin: %w", structName, err)
	}
	for {
		_, fieldType, fieldID, err := p.ReadFieldBegin(ctx)
		if err != nil {
			return fmt.Errorf("read %s field begin: %w", structName, err)
		}
		if fieldType == thrift.STOP {
			break
		}
		handled, err := fn(fieldID, fieldType)
		if err != nil {
			return fmt.Errorf("read %s field %d: %w", structName, fieldID, err)
		}
		if !handled {
			if err := p.Skip(ctx, fieldType); err != nil {
				return fmt.Errorf("skip %s field %d: %w", structName, fieldID, err)
			}
		}
		if err := p.ReadFieldEnd(ctx); err != nil {
			return fmt.Errorf("read %s field %d end: %w", structName, fieldID, err)
		}
	}
	if err := p.ReadStructEnd(ctx); err != nil {
		return fmt.Errorf("read %s end: %w", structName, err)
	}
	return nil
}

func writeStruct(ctx context.Context, p thrift.TProtocol, structName string, fields func() error) error {
	if err := p.WriteStructBegin(ctx, structName); err != nil {
		return fmt.Errorf("write %s begin: %w", structName, err)
	}
	if err := fields(); err != nil {
		return err
	}
	if err := p.WriteFieldStop(ctx); err != nil {
		return fmt.Errorf("write %s field stop: %w", structName, err)
	}
	if err := p.WriteStructEnd(ctx); err != nil {
		return fmt.Errorf("write %s end: %w", structName, err)
	}
	return nil
}
