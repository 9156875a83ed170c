package service

import (
	"github.com/caelansar/kv/kverr"
	"github.com/caelansar/kv/pb"
	"github.com/caelansar/kv/storage"
)

// executeCommand maps each one-shot variant onto the storage port.
// Streaming variants never reach here.
func executeCommand(req *pb.CommandRequest, store storage.Storage) *pb.CommandResponse {
	switch d := req.RequestData.(type) {
	case *pb.CommandRequest_Hget:
		return execHget(d.Hget, store)
	case *pb.CommandRequest_Hgetall:
		return execHgetall(d.Hgetall, store)
	case *pb.CommandRequest_Hmget:
		return execHmget(d.Hmget, store)
	case *pb.CommandRequest_Hset:
		return execHset(d.Hset, store)
	case *pb.CommandRequest_Hmset:
		return execHmset(d.Hmset, store)
	case *pb.CommandRequest_Hdel:
		return execHdel(d.Hdel, store)
	case *pb.CommandRequest_Hmdel:
		return execHmdel(d.Hmdel, store)
	case *pb.CommandRequest_Hexist:
		return execHexist(d.Hexist, store)
	case *pb.CommandRequest_Hmexist:
		return execHmexist(d.Hmexist, store)
	default:
		return pb.NewErrorResponse(&kverr.InvalidCommandError{Reason: "Not command"})
	}
}

func execHget(cmd *pb.Hget, store storage.Storage) *pb.CommandResponse {
	v, err := store.Get(cmd.Table, cmd.Key)
	switch {
	case err != nil:
		return pb.NewErrorResponse(err)
	case v == nil:
		return pb.NewErrorResponse(&kverr.NotFoundError{Table: cmd.Table, Key: cmd.Key})
	default:
		return pb.NewValuesResponse(v)
	}
}

func execHset(cmd *pb.Hset, store storage.Storage) *pb.CommandResponse {
	if cmd.Pair == nil {
		return pb.NewValuesResponse(pb.NullValue())
	}
	prev, err := store.Set(cmd.Table, cmd.Pair.Key, cmd.Pair.Value)
	switch {
	case err != nil:
		return pb.NewErrorResponse(err)
	case prev == nil:
		return pb.NewValuesResponse(pb.NullValue())
	default:
		return pb.NewValuesResponse(prev)
	}
}

func execHdel(cmd *pb.Hdel, store storage.Storage) *pb.CommandResponse {
	prev, err := store.Del(cmd.Table, cmd.Key)
	switch {
	case err != nil:
		return pb.NewErrorResponse(err)
	case prev == nil:
		return pb.NewValuesResponse(pb.NullValue())
	default:
		return pb.NewValuesResponse(prev)
	}
}

func execHexist(cmd *pb.Hexist, store storage.Storage) *pb.CommandResponse {
	ok, err := store.Contains(cmd.Table, cmd.Key)
	if err != nil {
		return pb.NewErrorResponse(err)
	}
	return pb.NewValuesResponse(pb.BoolValue(ok))
}

func execHgetall(cmd *pb.Hgetall, store storage.Storage) *pb.CommandResponse {
	pairs, err := store.GetAll(cmd.Table)
	if err != nil {
		return pb.NewErrorResponse(err)
	}
	return pb.NewPairsResponse(pairs)
}

func execHmget(cmd *pb.Hmget, store storage.Storage) *pb.CommandResponse {
	values := make([]*pb.Value, 0, len(cmd.Keys))
	for _, key := range cmd.Keys {
		v, err := store.Get(cmd.Table, key)
		if err != nil || v == nil {
			v = pb.NullValue()
		}
		values = append(values, v)
	}
	return pb.NewValuesResponse(values...)
}

func execHmset(cmd *pb.Hmset, store storage.Storage) *pb.CommandResponse {
	values := make([]*pb.Value, 0, len(cmd.Pairs))
	for _, pair := range cmd.Pairs {
		prev, err := store.Set(cmd.Table, pair.Key, pair.Value)
		if err != nil || prev == nil {
			prev = pb.NullValue()
		}
		values = append(values, prev)
	}
	return pb.NewValuesResponse(values...)
}

func execHmdel(cmd *pb.Hmdel, store storage.Storage) *pb.CommandResponse {
	values := make([]*pb.Value, 0, len(cmd.Keys))
	for _, key := range cmd.Keys {
		prev, err := store.Del(cmd.Table, key)
		if err != nil || prev == nil {
			prev = pb.NullValue()
		}
		values = append(values, prev)
	}
	return pb.NewValuesResponse(values...)
}

func execHmexist(cmd *pb.Hmexist, store storage.Storage) *pb.CommandResponse {
	values := make([]*pb.Value, 0, len(cmd.Keys))
	for _, key := range cmd.Keys {
		ok, err := store.Contains(cmd.Table, key)
		if err != nil {
			values = append(values, pb.NullValue())
			continue
		}
		values = append(values, pb.BoolValue(ok))
	}
	return pb.NewValuesResponse(values...)
}
