package streamcorpus

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// Token is one token of a tagged sentence.
//
// EntityType is nil when the tagger assigned no category. A non-nil value
// may hold a code this build does not declare; it is kept verbatim so the
// token re-encodes unchanged.
type Token struct {
	TokenNum    int32
	Token       string
	SentencePos int32
	EntityType  *EntityType
	MentionID   *int32
	Lemma       *string
}

// KnownEntityType returns the entity type when it is set and declared.
func (t *Token) KnownEntityType() (EntityType, bool) {
	if t.EntityType == nil {
		return 0, false
	}
	return EntityTypeFromCode(t.EntityType.Code())
}

// Read implements thrift.TStruct.
func (t *Token) Read(ctx context.Context, p thrift.TProtocol) error {
	*t = Token{}
	return readFields(ctx, p, "Token", func(id int16, ft thrift.TType) (bool, error) {
		var err error
		switch {
		case id == 1 && ft == thrift.I32:
			t.TokenNum, err = p.ReadI32(ctx)
		case id == 2 && ft == thrift.STRING:
			t.Token, err = p.ReadString(ctx)
		case id == 3 && ft == thrift.I32:
			t.SentencePos, err = p.ReadI32(ctx)
		case id == 4 && ft == thrift.I32:
			var code int32
			if code, err = p.ReadI32(ctx); err == nil {
				et := EntityType(code)
				t.EntityType = &et
			}
		case id == 5 && ft == thrift.I32:
			var v int32
			if v, err = p.ReadI32(ctx); err == nil {
				t.MentionID = &v
			}
		case id == 6 && ft == thrift.STRING:
			var v string
			if v, err = p.ReadString(ctx); err == nil {
				t.Lemma = &v
			}
		default:
			return false, nil
		}
		return true, err
	})
}

// Write implements thrift.TStruct.
func (t *Token) Write(ctx context.Context, p thrift.TProtocol) error {
	return writeStruct(ctx, p, "Token", func() error {
		if err := writeFieldI32(ctx, p, "token_num", 1, t.TokenNum); err != nil {
			return err
		}
		if err := writeFieldString(ctx, p, "token", 2, t.Token); err != nil {
			return err
		}
		if err := writeFieldI32(ctx, p, "sentence_pos", 3, t.SentencePos); err != nil {
			return err
		}
		if t.EntityType != nil {
			if err := writeFieldI32(ctx, p, "entity_type", 4, t.EntityType.Code()); err != nil {
				return err
			}
		}
		if t.MentionID != nil {
			if err := writeFieldI32(ctx, p, "mention_id", 5, *t.MentionID); err != nil {
				return err
			}
		}
		if t.Lemma != nil {
			if err := writeFieldString(ctx, p, "lemma", 6, *t.Lemma); err != nil {
				return err
			}
		}
		return nil
	})
}
