package server

import (
	"context"

	"google.golang.org/grpc"

	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
)

const (
	LabelServiceName   = "expiry.v1.LabelService"
	ProductServiceName = "expiry.v1.ProductService"
)

// LabelServer turns label text or images into extraction records.
type LabelServer interface {
	ParseText(context.Context, *ParseTextRequest) (*ScanResponse, error)
	ScanImage(context.Context, *ScanImageRequest) (*ScanResponse, error)
	ScanDirectory(context.Context, *ScanDirectoryRequest) (*ScanDirectoryResponse, error)
}

// ProductServer manages stored products.
type ProductServer interface {
	Create(context.Context, *CreateProductRequest) (*ProductView, error)
	Get(context.Context, *GetProductRequest) (*ProductView, error)
	List(context.Context, *ListProductsRequest) (*ListProductsResponse, error)
	Update(context.Context, *UpdateProductRequest) (*ProductView, error)
	Delete(context.Context, *DeleteProductRequest) (*DeleteProductResponse, error)
	Restore(context.Context, *RestoreProductRequest) (*ProductView, error)
	Summary(context.Context, *SummaryRequest) (*extract.StatusSummary, error)
}

// unary builds a method descriptor the way protoc-gen-go-grpc would, for a
// request type decoded by the JSON codec.
func unary[S, Req, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var labelServiceDesc = grpc.ServiceDesc{
	ServiceName: LabelServiceName,
	HandlerType: (*LabelServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(LabelServiceName, "ParseText", LabelServer.ParseText),
		unary(LabelServiceName, "ScanImage", LabelServer.ScanImage),
		unary(LabelServiceName, "ScanDirectory", LabelServer.ScanDirectory),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "expiry/v1/label.proto",
}

var productServiceDesc = grpc.ServiceDesc{
	ServiceName: ProductServiceName,
	HandlerType: (*ProductServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ProductServiceName, "Create", ProductServer.Create),
		unary(ProductServiceName, "Get", ProductServer.Get),
		unary(ProductServiceName, "List", ProductServer.List),
		unary(ProductServiceName, "Update", ProductServer.Update),
		unary(ProductServiceName, "Delete", ProductServer.Delete),
		unary(ProductServiceName, "Restore", ProductServer.Restore),
		unary(ProductServiceName, "Summary", ProductServer.Summary),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "expiry/v1/product.proto",
}

func RegisterLabelServer(s grpc.ServiceRegistrar, srv LabelServer) {
	s.RegisterService(&labelServiceDesc, srv)
}

func RegisterProductServer(s grpc.ServiceRegistrar, srv ProductServer) {
	s.RegisterService(&productServiceDesc, srv)
}

// Invoke calls method on service over conn with the JSON codec.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, service, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	return conn.Invoke(ctx, "/"+service+"/"+method, in, out, opts...)
}
