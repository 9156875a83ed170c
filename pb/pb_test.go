package pb

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/caelansar/kv/kverr"
)

func roundTripRequest(c *qt.C, req *CommandRequest) *CommandRequest {
	data, err := Marshal(req)
	c.Assert(err, qt.IsNil)
	got := new(CommandRequest)
	c.Assert(Unmarshal(data, got), qt.IsNil)
	return got
}

func TestRequestRoundTrip(t *testing.T) {
	c := qt.New(t)

	requests := []*CommandRequest{
		NewHget("t1", "k1"),
		NewHgetall("t1"),
		NewHmget("t1", []string{"k1", "k2", "k3"}),
		NewHset("t1", "k1", StringValue("v1")),
		NewHset("t1", "k1", NullValue()),
		NewHmset("t1", []*Kvpair{
			{Key: "k1", Value: IntValue(42)},
			{Key: "k2", Value: FloatValue(10.1)},
		}),
		NewHdel("t1", "k1"),
		NewHmdel("t1", []string{"k1", "k2"}),
		NewHexist("t1", "k1"),
		NewHmexist("t1", []string{"k1"}),
		NewSubscribe("cae"),
		NewUnsubscribe("cae", 7),
		NewPublish("cae", []*Value{StringValue("hello"), BoolValue(true)}),
	}
	for _, req := range requests {
		c.Run(req.Name(), func(c *qt.C) {
			c.Assert(roundTripRequest(c, req), qt.DeepEquals, req)
		})
	}
}

func TestEmptyRequestRoundTrip(t *testing.T) {
	c := qt.New(t)

	req := new(CommandRequest)
	data, err := Marshal(req)
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.HasLen, 0)

	got := new(CommandRequest)
	c.Assert(Unmarshal(data, got), qt.IsNil)
	c.Assert(got.RequestData, qt.IsNil)
	c.Assert(got.IsStreaming(), qt.IsFalse)
}

func TestResponseRoundTrip(t *testing.T) {
	c := qt.New(t)

	responses := []*CommandResponse{
		NewValuesResponse(StringValue("v1"), IntValue(-3), BytesValue([]byte{0, 1, 2})),
		NewPairsResponse([]*Kvpair{{Key: "k", Value: BoolValue(false)}}),
		OKResponse(),
		UnsubscribeAck(),
		NewErrorResponse(&kverr.NotFoundError{Table: "t1", Key: "absent"}),
	}
	for _, resp := range responses {
		data, err := Marshal(resp)
		c.Assert(err, qt.IsNil)
		got := new(CommandResponse)
		c.Assert(Unmarshal(data, got), qt.IsNil)
		c.Assert(got, qt.DeepEquals, resp)
	}
}

func TestUnsubscribeAckIsEmptyOnTheWire(t *testing.T) {
	c := qt.New(t)

	data, err := Marshal(UnsubscribeAck())
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.HasLen, 0)
}

func TestValueRoundTrip(t *testing.T) {
	c := qt.New(t)

	values := []*Value{
		StringValue(""),
		StringValue("hello"),
		BytesValue(nil),
		BytesValue(make([]byte, 2048)),
		IntValue(0),
		IntValue(-1),
		BoolValue(false),
		BoolValue(true),
		FloatValue(10.1),
		NullValue(),
	}
	for _, v := range values {
		data, err := EncodeValue(v)
		c.Assert(err, qt.IsNil)
		got, err := DecodeValue(data)
		c.Assert(err, qt.IsNil)
		if b, ok := v.Value.(*Value_Binary); ok && b.Binary == nil {
			// nil and empty byte slices are indistinguishable on the wire.
			c.Assert(got, qt.DeepEquals, &Value{Value: &Value_Binary{Binary: []byte{}}})
			continue
		}
		c.Assert(got, qt.DeepEquals, v)
	}
}

func TestIsStreaming(t *testing.T) {
	c := qt.New(t)

	c.Assert(NewSubscribe("t").IsStreaming(), qt.IsTrue)
	c.Assert(NewUnsubscribe("t", 1).IsStreaming(), qt.IsTrue)
	c.Assert(NewPublish("t", nil).IsStreaming(), qt.IsTrue)
	c.Assert(NewHget("t", "k").IsStreaming(), qt.IsFalse)
	c.Assert(NewHgetall("t").IsStreaming(), qt.IsFalse)
	c.Assert(NewHmset("t", nil).IsStreaming(), qt.IsFalse)
}

func TestValueConversions(t *testing.T) {
	c := qt.New(t)

	i, err := IntValue(42).AsInt()
	c.Assert(err, qt.IsNil)
	c.Assert(i, qt.Equals, int64(42))

	_, err = StringValue("x").AsInt()
	var convErr *kverr.ConvertError
	c.Assert(err, qt.ErrorAs, &convErr)
	c.Assert(convErr.Target, qt.Equals, "Integer")

	s, err := StringValue("x").AsString()
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.Equals, "x")

	_, err = NullValue().AsBytes()
	c.Assert(err, qt.ErrorAs, &convErr)

	c.Assert(NullValue().IsNull(), qt.IsTrue)
	c.Assert(IntValue(0).IsNull(), qt.IsFalse)
}

func TestErrorResponseStatus(t *testing.T) {
	c := qt.New(t)

	resp := NewErrorResponse(&kverr.NotFoundError{Table: "t1", Key: "absent"})
	c.Assert(resp.Status, qt.Equals, uint32(404))
	c.Assert(resp.Message, qt.Contains, "table: t1, key: absent")

	resp = NewErrorResponse(&kverr.InvalidCommandError{Reason: "Request has no data"})
	c.Assert(resp.Status, qt.Equals, uint32(400))

	resp = NewErrorResponse(&kverr.StorageError{Op: "set", Table: "t", Key: "k", Detail: "boom"})
	c.Assert(resp.Status, qt.Equals, uint32(500))

	resp = NewErrorResponse(&kverr.InternalError{Detail: "x"})
	c.Assert(resp.Status, qt.Equals, uint32(500))
}

func TestSubscriptionID(t *testing.T) {
	c := qt.New(t)

	id, err := NewValuesResponse(IntValue(7)).SubscriptionID()
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, uint32(7))

	_, err = NewValuesResponse().SubscriptionID()
	c.Assert(err, qt.ErrorMatches, "Internal error: Invalid stream")

	_, err = NewValuesResponse(StringValue("nope")).SubscriptionID()
	c.Assert(err, qt.ErrorMatches, "Internal error: Invalid stream")

	_, err = UnsubscribeAck().SubscriptionID()
	c.Assert(err, qt.ErrorMatches, "Internal error: Invalid stream")
}
