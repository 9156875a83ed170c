package service

import (
	"github.com/caelansar/kv/kverr"
	"github.com/caelansar/kv/pb"
)

// executeStreaming routes the streaming variants onto the broadcaster.
// Subscribe yields the subscription stream; Publish and Unsubscribe yield
// single-element streams.
func executeStreaming(req *pb.CommandRequest, topic Topic) *ResponseStream {
	switch d := req.RequestData.(type) {
	case *pb.CommandRequest_Subscribe:
		return topic.Subscribe(d.Subscribe.Topic)
	case *pb.CommandRequest_Unsubscribe:
		if err := topic.Unsubscribe(d.Unsubscribe.Topic, d.Unsubscribe.ID); err != nil {
			return newSingleResponse(pb.NewErrorResponse(err))
		}
		return newSingleResponse(pb.OKResponse())
	case *pb.CommandRequest_Publish:
		topic.Publish(d.Publish.Topic, pb.NewValuesResponse(d.Publish.Data...))
		return newSingleResponse(pb.OKResponse())
	default:
		return newSingleResponse(pb.NewErrorResponse(&kverr.InvalidCommandError{Reason: "Not streaming command"}))
	}
}
