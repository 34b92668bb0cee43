// cartservice/services/cart_service.go

package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/norun9/gomarketplace/cartservice/cartstore"
)

// Cart is the store surface the RPCs drive. *cartstore.CartStore implements it.
type Cart interface {
	Products() []cartstore.LineItem
	AddToCart(p cartstore.Product)
	Increment(id string)
	Decrement(id string)
	Watch(fn cartstore.Subscriber) (unsubscribe func())
}

// CartServiceServer implements CartServer on top of a cart store.
type CartServiceServer struct {
	store  Cart
	tracer trace.Tracer
	log    logrus.FieldLogger

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewCartServiceServer creates a server instance with a store injected.
func NewCartServiceServer(store Cart, log logrus.FieldLogger) *CartServiceServer {
	return &CartServiceServer{
		store:   store,
		tracer:  otel.Tracer("cartservice"),
		log:     log.WithField("component", "cart-service"),
		stopped: make(chan struct{}),
	}
}

// Stop ends every open Watch stream so a GracefulStop of the hosting server can
// complete. Call it before GracefulStop.
func (s *CartServiceServer) Stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

// GetCart RPC implementation.
func (s *CartServiceServer) GetCart(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	_, span := s.tracer.Start(ctx, "GetCart")
	defer span.End()

	return s.reply(span, s.store.Products())
}

// AddToCart RPC implementation.
func (s *CartServiceServer) AddToCart(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	_, span := s.tracer.Start(ctx, "AddToCart")
	defer span.End()

	p, err := ProductFromStruct(req)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("app.product_id", p.ID),
		attribute.Float64("app.price", p.Price),
	)

	s.store.AddToCart(p)
	s.log.WithField("product_id", p.ID).Info("[AddToCart] product added")
	return s.reply(span, s.store.Products())
}

// Increment RPC implementation.
func (s *CartServiceServer) Increment(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	_, span := s.tracer.Start(ctx, "Increment")
	defer span.End()
	span.SetAttributes(attribute.String("app.product_id", req.GetValue()))

	s.store.Increment(req.GetValue())
	return s.reply(span, s.store.Products())
}

// Decrement RPC implementation.
func (s *CartServiceServer) Decrement(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	_, span := s.tracer.Start(ctx, "Decrement")
	defer span.End()
	span.SetAttributes(attribute.String("app.product_id", req.GetValue()))

	s.store.Decrement(req.GetValue())
	return s.reply(span, s.store.Products())
}

// Watch streams the current cart and then every published snapshot. A slow
// client only ever receives the newest pending snapshot. The stream ends when
// the client leaves or the server is stopped.
func (s *CartServiceServer) Watch(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx, span := s.tracer.Start(stream.Context(), "Watch")
	defer span.End()

	updates := make(chan []cartstore.LineItem, 1)
	unsubscribe := s.store.Watch(func(items []cartstore.LineItem) {
		// Subscribers are called one at a time, so after draining the send cannot block.
		select {
		case <-updates:
		default:
		}
		updates <- items
	})
	defer unsubscribe()

	s.log.Debug("[Watch] client attached")
	defer s.log.Debug("[Watch] client detached")

	for {
		var items []cartstore.LineItem
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopped:
			return status.Error(codes.Unavailable, "cart service shutting down")
		case items = <-updates:
		}

		msg, err := CartToStruct(items)
		if err != nil {
			return status.Errorf(codes.Internal, "Watch failed: %v", err)
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
	}
}

func (s *CartServiceServer) reply(span trace.Span, items []cartstore.LineItem) (*structpb.Struct, error) {
	span.SetAttributes(attribute.Int("app.cart.size", len(items)))
	msg, err := CartToStruct(items)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode cart: %v", err)
	}
	return msg, nil
}

// CartToStruct renders a cart as {"products": [...]} using the persisted field names.
func CartToStruct(items []cartstore.LineItem) (*structpb.Struct, error) {
	products := make([]any, 0, len(items))
	for _, item := range items {
		products = append(products, map[string]any{
			"id":        item.ID,
			"title":     item.Title,
			"image_url": item.ImageURL,
			"price":     item.Price,
			"quantity":  item.Quantity,
		})
	}
	return structpb.NewStruct(map[string]any{"products": products})
}

// ProductFromStruct reads an AddToCart payload. It fails with InvalidArgument
// when the id is missing or the price is negative.
func ProductFromStruct(req *structpb.Struct) (cartstore.Product, error) {
	fields := req.GetFields()
	p := cartstore.Product{
		ID:       fields["id"].GetStringValue(),
		Title:    fields["title"].GetStringValue(),
		ImageURL: fields["image_url"].GetStringValue(),
		Price:    fields["price"].GetNumberValue(),
	}
	if p.ID == "" {
		return cartstore.Product{}, status.Error(codes.InvalidArgument, "product id is required")
	}
	if p.Price < 0 {
		return cartstore.Product{}, status.Errorf(codes.InvalidArgument, "product %q has a negative price", p.ID)
	}
	return p, nil
}

// CartFromStruct is the inverse of CartToStruct.
func CartFromStruct(msg *structpb.Struct) []cartstore.LineItem {
	values := msg.GetFields()["products"].GetListValue().GetValues()
	items := make([]cartstore.LineItem, 0, len(values))
	for _, v := range values {
		fields := v.GetStructValue().GetFields()
		items = append(items, cartstore.LineItem{
			ID:       fields["id"].GetStringValue(),
			Title:    fields["title"].GetStringValue(),
			ImageURL: fields["image_url"].GetStringValue(),
			Price:    fields["price"].GetNumberValue(),
			Quantity: int(fields["quantity"].GetNumberValue()),
		})
	}
	return items
}
