package streamcorpus

import (
	"context"
	"testing"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/google/go-cmp/cmp"
)

func entityPtr(e EntityType) *EntityType { return &e }

func sampleItem() *StreamItem {
	mention := int32(3)
	lemma := "boston"
	return &StreamItem{
		DocID:    "doc-1",
		AbsURL:   "http://example.com/a",
		Source:   "news",
		StreamID: "1325376000-doc-1",
		Sentences: []*Sentence{
			{Tokens: []*Token{
				{TokenNum: 0, Token: "John", SentencePos: 0, EntityType: entityPtr(EntityTypePER)},
				{TokenNum: 1, Token: "visited", SentencePos: 1},
				{TokenNum: 2, Token: "Boston", SentencePos: 2, EntityType: entityPtr(EntityTypeLOC), MentionID: &mention, Lemma: &lemma},
			}},
			{Tokens: []*Token{
				{TokenNum: 3, Token: "j@example.com", SentencePos: 0, EntityType: entityPtr(EntityTypeEmail)},
				{TokenNum: 4, Token: "???", SentencePos: 1, EntityType: entityPtr(EntityType(40))},
			}},
			{Tokens: []*Token{}},
		},
	}
}

func encode(t *testing.T, s thrift.TStruct) *thrift.TMemoryBuffer {
	t.Helper()
	ctx := context.Background()
	buf := thrift.NewTMemoryBuffer()
	proto := thrift.NewTBinaryProtocolConf(buf, nil)
	if err := s.Write(ctx, proto); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := proto.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return buf
}

func TestStreamItemThriftRoundTrip(t *testing.T) {
	in := sampleItem()
	buf := encode(t, in)
	out := NewStreamItem()
	if err := out.Read(context.Background(), thrift.NewTBinaryProtocolConf(buf, nil)); err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStreamItemPreservesUnknownEntityCodes(t *testing.T) {
	in := sampleItem()
	out := NewStreamItem()
	if err := out.Read(context.Background(), thrift.NewTBinaryProtocolConf(encode(t, in), nil)); err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff([]int32{40}, out.UnknownEntityTypes()); diff != "" {
		t.Fatalf("unknown codes (-want +got):\n%s", diff)
	}
	tok := out.Sentences[1].Tokens[1]
	if _, ok := tok.KnownEntityType(); ok {
		t.Fatalf("code 40 must not resolve")
	}
	if tok.EntityType.String() != "EntityType(40)" {
		t.Fatalf("unexpected rendering %s", tok.EntityType)
	}
}

func TestStreamItemEntityCounts(t *testing.T) {
	want := map[EntityType]int{EntityTypePER: 1, EntityTypeLOC: 1, EntityTypeEmail: 1}
	if diff := cmp.Diff(want, sampleItem().EntityCounts()); diff != "" {
		t.Fatalf("counts (-want +got):\n%s", diff)
	}
}

func TestStreamItemSkipsUnknownFields(t *testing.T) {
	ctx := context.Background()
	buf := thrift.NewTMemoryBuffer()
	p := thrift.NewTBinaryProtocolConf(buf, nil)
	mustOK := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	mustOK(p.WriteStructBegin(ctx, "StreamItem"))
	mustOK(writeFieldString(ctx, p, "future", 99, "ignored"))
	mustOK(writeFieldI32(ctx, p, "doc_id_wrong_type", 1, 7))
	mustOK(writeFieldString(ctx, p, "stream_id", 4, "s-1"))
	mustOK(p.WriteFieldStop(ctx))
	mustOK(p.WriteStructEnd(ctx))
	mustOK(p.Flush(ctx))

	out := NewStreamItem()
	if err := out.Read(ctx, thrift.NewTBinaryProtocolConf(buf, nil)); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.StreamID != "s-1" || out.DocID != "" {
		t.Fatalf("unexpected item %+v", out)
	}
}

func TestReadStructListRejectsWrongElementType(t *testing.T) {
	ctx := context.Background()
	buf := thrift.NewTMemoryBuffer()
	p := thrift.NewTBinaryProtocolConf(buf, nil)
	if err := p.WriteListBegin(ctx, thrift.I32, 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := p.WriteI32(ctx, 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := readStructList[Token](ctx, thrift.NewTBinaryProtocolConf(buf, nil), "tokens"); err == nil {
		t.Fatalf("expected element type error")
	}
}

func TestReadTruncatedItemFails(t *testing.T) {
	buf := encode(t, sampleItem())
	raw := buf.Bytes()
	short := thrift.NewTMemoryBuffer()
	if _, err := short.Write(raw[:len(raw)/2]); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := NewStreamItem().Read(context.Background(), thrift.NewTBinaryProtocolConf(short, nil)); err == nil {
		t.Fatalf("expected truncated read to fail")
	}
}

func TestWriteSkipsNilListElements(t *testing.T) {
	in := &StreamItem{
		DocID: "doc-nil",
		Sentences: []*Sentence{
			nil,
			{Tokens: []*Token{nil, {TokenNum: 1, Token: "Paris", EntityType: entityPtr(EntityTypeLOC)}, nil}},
		},
	}
	out := NewStreamItem()
	if err := out.Read(context.Background(), thrift.NewTBinaryProtocolConf(encode(t, in), nil)); err != nil {
		t.Fatalf("read: %v", err)
	}
	want := &StreamItem{
		DocID: "doc-nil",
		Sentences: []*Sentence{
			{Tokens: []*Token{{TokenNum: 1, Token: "Paris", EntityType: entityPtr(EntityTypeLOC)}}},
		},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("nil elements must be dropped (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(in.EntityCounts(), out.EntityCounts()); diff != "" {
		t.Fatalf("entity counts changed across the round trip:\n%s", diff)
	}
}
