package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// decode reads a Struct into a request type through its JSON form. Unknown
// fields are rejected.
func decode(in *structpb.Struct, v any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "reading request: %v", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return status.Errorf(codes.InvalidArgument, "decoding request: %v", err)
	}
	return nil
}

// encode turns a response value into a Struct through its JSON form
func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

// Invoke calls method with req encoded as a Struct and decodes the reply
// into a new Resp
func Invoke[Req, Resp any](ctx context.Context, c *Client, method string, req Req) (*Resp, error) {
	in, err := encode(req)
	if err != nil {
		return nil, err
	}
	out, err := c.Call(ctx, method, in)
	if err != nil {
		return nil, err
	}

	b, err := protojson.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("reading %s reply: %w", method, err)
	}
	resp := new(Resp)
	if err := json.Unmarshal(b, resp); err != nil {
		return nil, fmt.Errorf("decoding %s reply: %w", method, err)
	}
	return resp, nil
}
