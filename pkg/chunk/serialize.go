package chunk

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
)

// Serialize encodes a single message with the Thrift binary protocol.
func Serialize(ctx context.Context, msg thrift.TStruct) ([]byte, error) {
	data, err := thrift.NewTSerializer().Write(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("chunk: serialize: %w", err)
	}
	return data, nil
}

// Deserialize decodes data that must hold exactly one message.
func Deserialize[M thrift.TStruct](ctx context.Context, data []byte, newMsg func() M) (M, error) {
	var zero M
	msgs, err := NewReader(bytes.NewReader(data), newMsg).ReadAll(ctx)
	if err != nil {
		return zero, fmt.Errorf("chunk: deserialize: %w", err)
	}
	if len(msgs) != 1 {
		return zero, fmt.Errorf("%w: got %d", ErrNotOneMessage, len(msgs))
	}
	return msgs[0], nil
}
