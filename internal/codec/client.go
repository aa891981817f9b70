package codec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// SearchResult holds a single hit from a Search RPC call.
type SearchResult struct {
	N         int     `json:"n"`
	ChunkID   string  `json:"chunk_id"`
	Doc       string  `json:"doc"`
	Section   string  `json:"section"`
	SourceURL *string `json:"source_url"`
	Score     float64 `json:"score"`
	Text      string  `json:"text"`
}

// GenerateResult holds the response from a Generate RPC call.
type GenerateResult struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

type searchResponse struct {
	Hits []SearchResult `json:"hits"`
}

// ErrEmptyResponse is returned when the service answers with no payload.
var ErrEmptyResponse = errors.New("codec: empty response")

// #endregion types

// #region service
const (
	searchMethod   = "/kb.v1.KnowledgeService/Search"
	generateMethod = "/kb.v1.KnowledgeService/Generate"
)

// ServiceClient is the knowledge service surface. Requests and responses are
// google.protobuf.Struct messages so no generated stubs are needed.
type ServiceClient interface {
	Search(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Generate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type serviceClient struct {
	cc grpc.ClientConnInterface
}

// NewServiceClient binds the knowledge service methods to a connection.
func NewServiceClient(cc grpc.ClientConnInterface) ServiceClient {
	return &serviceClient{cc: cc}
}

func (c *serviceClient) Search(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, searchMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *serviceClient) Generate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, generateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion service

// #region client-struct
// Client wraps the gRPC connection to the knowledge service that owns
// embedding search and model invocation.
type Client struct {
	conn   *grpc.ClientConn
	client ServiceClient
}

// #endregion client-struct

// #region constructor
// NewClient connects to the knowledge service.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: NewServiceClient(conn),
	}, nil
}

// NewClientWithService creates a Client with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewClientWithService(svc ServiceClient) *Client {
	return &Client{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region search
// Search asks the knowledge service for the topK passages most similar to query.
func (c *Client) Search(ctx context.Context, query string, topK int, minScore float64) ([]SearchResult, error) {
	req, err := structpb.NewStruct(map[string]any{
		"query":     query,
		"top_k":     topK,
		"min_score": minScore,
	})
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}

	resp, err := c.client.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search rpc: %w", err)
	}

	var out searchResponse
	if err := decode(resp, &out); err != nil {
		return nil, fmt.Errorf("search response: %w", err)
	}
	return out.Hits, nil
}

// #endregion search

// #region generate
// Generate sends a fully rendered prompt to the service-side model.
func (c *Client) Generate(ctx context.Context, prompt string) (GenerateResult, error) {
	req, err := structpb.NewStruct(map[string]any{
		"prompt": prompt,
	})
	if err != nil {
		return GenerateResult{}, fmt.Errorf("generate request: %w", err)
	}

	resp, err := c.client.Generate(ctx, req)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("generate rpc: %w", err)
	}

	var out GenerateResult
	if err := decode(resp, &out); err != nil {
		return GenerateResult{}, fmt.Errorf("generate response: %w", err)
	}
	return out, nil
}

// Complete returns only the generated text, failing on an empty completion.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	res, err := c.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if res.Text == "" {
		return "", ErrEmptyResponse
	}
	return res.Text, nil
}

// #endregion generate

// #region helpers
// decode maps a Struct onto a tagged Go value through its JSON form.
func decode(s *structpb.Struct, v any) error {
	if s == nil {
		return ErrEmptyResponse
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// #endregion helpers
