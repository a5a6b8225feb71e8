package server

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "snapcheck.v1.BatchService"

// BatchServiceServer is the batch grading API.
type BatchServiceServer interface {
	ListClasses(context.Context, *Empty) (*ListClassesResponse, error)
	ListActivities(context.Context, *ClassRequest) (*ListActivitiesResponse, error)
	ListRoster(context.Context, *ClassRequest) (*ListRosterResponse, error)

	StartBatch(context.Context, *StartBatchRequest) (*StartBatchResponse, error)
	Intake(context.Context, *IntakeRequest) (*IntakeResponse, error)
	ListEssays(context.Context, *ListEssaysRequest) (*ListEssaysResponse, error)
	UpdateEssay(context.Context, *UpdateEssayRequest) (*UpdateEssayResponse, error)
	RemoveEssay(context.Context, *RemoveEssayRequest) (*Empty, error)
	CommitBatch(context.Context, *BatchRequest) (*CommitBatchResponse, error)
	DiscardBatch(context.Context, *BatchRequest) (*Empty, error)

	GradeEssay(context.Context, *GradeEssayRequest) (*GradeEssayResponse, error)
	AnnotateGrammar(context.Context, *AnnotateGrammarRequest) (*AnnotateGrammarResponse, error)
	ListSubmissions(context.Context, *ActivityRequest) (*ListSubmissionsResponse, error)
	ExportGrades(context.Context, *ActivityRequest) (*ExportGradesResponse, error)
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

func unary[Req, Resp any](name string, call func(BatchServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	info := &grpc.UnaryServerInfo{FullMethod: fullMethod(name)}
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BatchServiceServer), ctx, in)
			}
			i := *info
			i.Server = srv
			return interceptor(ctx, in, &i, func(ctx context.Context, req any) (any, error) {
				return call(srv.(BatchServiceServer), ctx, req.(*Req))
			})
		},
	}
}

// BatchServiceDesc describes BatchService for grpc.Server.RegisterService.
var BatchServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BatchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListClasses", BatchServiceServer.ListClasses),
		unary("ListActivities", BatchServiceServer.ListActivities),
		unary("ListRoster", BatchServiceServer.ListRoster),
		unary("StartBatch", BatchServiceServer.StartBatch),
		unary("Intake", BatchServiceServer.Intake),
		unary("ListEssays", BatchServiceServer.ListEssays),
		unary("UpdateEssay", BatchServiceServer.UpdateEssay),
		unary("RemoveEssay", BatchServiceServer.RemoveEssay),
		unary("CommitBatch", BatchServiceServer.CommitBatch),
		unary("DiscardBatch", BatchServiceServer.DiscardBatch),
		unary("GradeEssay", BatchServiceServer.GradeEssay),
		unary("AnnotateGrammar", BatchServiceServer.AnnotateGrammar),
		unary("ListSubmissions", BatchServiceServer.ListSubmissions),
		unary("ExportGrades", BatchServiceServer.ExportGrades),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "snapcheck/v1/batch",
}

func RegisterBatchServiceServer(s grpc.ServiceRegistrar, srv BatchServiceServer) {
	s.RegisterService(&BatchServiceDesc, srv)
}

// BatchClient calls BatchService with the JSON codec.
type BatchClient struct {
	cc grpc.ClientConnInterface
}

func NewBatchClient(cc grpc.ClientConnInterface) *BatchClient {
	return &BatchClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BatchClient) ListClasses(ctx context.Context, opts ...grpc.CallOption) (*ListClassesResponse, error) {
	return invoke[ListClassesResponse](ctx, c.cc, "ListClasses", &Empty{}, opts)
}

func (c *BatchClient) ListActivities(ctx context.Context, in *ClassRequest, opts ...grpc.CallOption) (*ListActivitiesResponse, error) {
	return invoke[ListActivitiesResponse](ctx, c.cc, "ListActivities", in, opts)
}

func (c *BatchClient) ListRoster(ctx context.Context, in *ClassRequest, opts ...grpc.CallOption) (*ListRosterResponse, error) {
	return invoke[ListRosterResponse](ctx, c.cc, "ListRoster", in, opts)
}

func (c *BatchClient) StartBatch(ctx context.Context, in *StartBatchRequest, opts ...grpc.CallOption) (*StartBatchResponse, error) {
	return invoke[StartBatchResponse](ctx, c.cc, "StartBatch", in, opts)
}

func (c *BatchClient) Intake(ctx context.Context, in *IntakeRequest, opts ...grpc.CallOption) (*IntakeResponse, error) {
	return invoke[IntakeResponse](ctx, c.cc, "Intake", in, opts)
}

func (c *BatchClient) ListEssays(ctx context.Context, in *ListEssaysRequest, opts ...grpc.CallOption) (*ListEssaysResponse, error) {
	return invoke[ListEssaysResponse](ctx, c.cc, "ListEssays", in, opts)
}

func (c *BatchClient) UpdateEssay(ctx context.Context, in *UpdateEssayRequest, opts ...grpc.CallOption) (*UpdateEssayResponse, error) {
	return invoke[UpdateEssayResponse](ctx, c.cc, "UpdateEssay", in, opts)
}

func (c *BatchClient) RemoveEssay(ctx context.Context, in *RemoveEssayRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "RemoveEssay", in, opts)
}

func (c *BatchClient) CommitBatch(ctx context.Context, in *BatchRequest, opts ...grpc.CallOption) (*CommitBatchResponse, error) {
	return invoke[CommitBatchResponse](ctx, c.cc, "CommitBatch", in, opts)
}

func (c *BatchClient) DiscardBatch(ctx context.Context, in *BatchRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "DiscardBatch", in, opts)
}

func (c *BatchClient) GradeEssay(ctx context.Context, in *GradeEssayRequest, opts ...grpc.CallOption) (*GradeEssayResponse, error) {
	return invoke[GradeEssayResponse](ctx, c.cc, "GradeEssay", in, opts)
}

func (c *BatchClient) AnnotateGrammar(ctx context.Context, in *AnnotateGrammarRequest, opts ...grpc.CallOption) (*AnnotateGrammarResponse, error) {
	return invoke[AnnotateGrammarResponse](ctx, c.cc, "AnnotateGrammar", in, opts)
}

func (c *BatchClient) ListSubmissions(ctx context.Context, in *ActivityRequest, opts ...grpc.CallOption) (*ListSubmissionsResponse, error) {
	return invoke[ListSubmissionsResponse](ctx, c.cc, "ListSubmissions", in, opts)
}

func (c *BatchClient) ExportGrades(ctx context.Context, in *ActivityRequest, opts ...grpc.CallOption) (*ExportGradesResponse, error) {
	return invoke[ExportGradesResponse](ctx, c.cc, "ExportGrades", in, opts)
}
