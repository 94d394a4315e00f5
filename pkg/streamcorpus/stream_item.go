package streamcorpus

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// Sentence is an ordered run of tokens.
type Sentence struct {
	Tokens []*Token
}

// Read implements thrift.TStruct.
func (s *Sentence) Read(ctx context.Context, p thrift.TProtocol) error {
	*s = Sentence{}
	return readFields(ctx, p, "Sentence", func(id int16, ft thrift.TType) (bool, error) {
		if id != 1 || ft != thrift.LIST {
			return false, nil
		}
		tokens, err := readStructList[Token](ctx, p, "tokens")
		s.Tokens = tokens
		return true, err
	})
}

// Write implements thrift.TStruct.
func (s *Sentence) Write(ctx context.Context, p thrift.TProtocol) error {
	return writeStruct(ctx, p, "Sentence", func() error {
		return writeFieldStructList(ctx, p, "tokens", 1, s.Tokens)
	})
}

// StreamItem is one document of the corpus together with its tagged sentences.
type StreamItem struct {
	DocID     string
	AbsURL    string
	Source    string
	StreamID  string
	Sentences []*Sentence
}

// NewStreamItem returns an empty item; it is the constructor chunk readers use.
func NewStreamItem() *StreamItem { return &StreamItem{} }

// Read implements thrift.TStruct.
func (si *StreamItem) Read(ctx context.Context, p thrift.TProtocol) error {
	*si = StreamItem{}
	return readFields(ctx, p, "StreamItem", func(id int16, ft thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && ft == thrift.STRING:
			si.DocID, err = p.ReadString(ctx)
		case id == 2 && ft == thrift.STRING:
			si.AbsURL, err = p.ReadString(ctx)
		case id == 3 && ft == thrift.STRING:
			si.Source, err = p.ReadString(ctx)
		case id == 4 && ft == thrift.STRING:
			si.StreamID, err = p.ReadString(ctx)
		case id == 5 && ft == thrift.LIST:
			si.Sentences, err = readStructList[Sentence](ctx, p, "sentences")
		default:
			return false, nil
		}
		return true, err
	})
}

// Write implements thrift.TStruct.
func (si *StreamItem) Write(ctx context.Context, p thrift.TProtocol) error {
	return writeStruct(ctx, p, "StreamItem", func() error {
		if err := writeFieldString(ctx, p, "doc_id", 1, si.DocID); err != nil {
			return err
		}
		if err := writeFieldString(ctx, p, "abs_url", 2, si.AbsURL); err != nil {
			return err
		}
		if err := writeFieldString(ctx, p, "source", 3, si.Source); err != nil {
			return err
		}
		if err := writeFieldString(ctx, p, "stream_id", 4, si.StreamID); err != nil {
			return err
		}
		return writeFieldStructList(ctx, p, "sentences", 5, si.Sentences)
	})
}

// EntityCounts counts tokens per declared entity type. Tokens without a type
// and tokens with undeclared codes are not counted.
func (si *StreamItem) EntityCounts() map[EntityType]int {
	counts := make(map[EntityType]int)
	si.eachToken(func(t *Token) {
		if et, ok := t.KnownEntityType(); ok {
			counts[et]++
		}
	})
	return counts
}

// UnknownEntityTypes returns the undeclared entity-type codes found in the
// item, one entry per token, in token order.
func (si *StreamItem) UnknownEntityTypes() []int32 {
	var codes []int32
	si.eachToken(func(t *Token) {
		if t.EntityType == nil {
			return
		}
		if _, ok := t.KnownEntityType(); !ok {
			codes = append(codes, t.EntityType.Code())
		}
	})
	return codes
}

func (si *StreamItem) eachToken(fn func(*Token)) {
	for _, s := range si.Sentences {
		if s == nil {
			continue
		}
		for _, t := range s.Tokens {
			if t != nil {
				fn(t)
			}
		}
	}
}
