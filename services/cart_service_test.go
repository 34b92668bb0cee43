package services

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/norun9/gomarketplace/cartservice/cartstore"
	"github.com/norun9/gomarketplace/cartservice/kvstore"
)

func discardLogger() logrus.FieldLogger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

type fixture struct {
	srv    *grpc.Server
	svc    *CartServiceServer
	store  *cartstore.CartStore
	kv     *kvstore.LocalKVStore
	client *CartClient
	health healthpb.HealthClient
}

func newFixture(t *testing.T, pinger Pinger) *fixture {
	t.Helper()

	kv := kvstore.NewLocalKVStore()
	store := cartstore.Open(context.Background(), kv)
	if pinger == nil {
		pinger = kv
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	svc := NewCartServiceServer(store, discardLogger())
	RegisterCartServer(srv, svc)
	healthpb.RegisterHealthServer(srv, NewHealthCheckService(pinger, discardLogger()))
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufnet: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
		_ = store.Close(context.Background())
	})

	return &fixture{
		srv:    srv,
		svc:    svc,
		store:  store,
		kv:     kv,
		client: NewCartClient(conn),
		health: healthpb.NewHealthClient(conn),
	}
}

func productStruct(t *testing.T, id string, price float64) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(map[string]any{
		"id":        id,
		"title":     "title " + id,
		"image_url": "https://img/" + id + ".png",
		"price":     price,
	})
	if err != nil {
		t.Fatalf("new struct: %v", err)
	}
	return s
}

func lineItem(id string, qty int) cartstore.LineItem {
	return cartstore.LineItem{ID: id, Title: "title " + id, ImageURL: "https://img/" + id + ".png", Price: 10, Quantity: qty}
}

func assertCart(t *testing.T, want []cartstore.LineItem, msg *structpb.Struct) {
	t.Helper()
	if diff := cmp.Diff(want, CartFromStruct(msg), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("cart mismatch (-want +got):\n%s", diff)
	}
}

func TestCartServiceMutations(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	got, err := f.client.GetCart(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	assertCart(t, nil, got)

	if _, err := f.client.AddToCart(ctx, productStruct(t, "p1", 10)); err != nil {
		t.Fatalf("AddToCart p1: %v", err)
	}
	got, err = f.client.AddToCart(ctx, productStruct(t, "p2", 10))
	if err != nil {
		t.Fatalf("AddToCart p2: %v", err)
	}
	assertCart(t, []cartstore.LineItem{lineItem("p2", 1), lineItem("p1", 1)}, got)

	got, err = f.client.Increment(ctx, wrapperspb.String("p1"))
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	assertCart(t, []cartstore.LineItem{lineItem("p2", 1), lineItem("p1", 2)}, got)

	got, err = f.client.Decrement(ctx, wrapperspb.String("p2"))
	if err != nil {
		t.Fatalf("Decrement: %v", err)
	}
	assertCart(t, []cartstore.LineItem{lineItem("p1", 2)}, got)

	got, err = f.client.Decrement(ctx, wrapperspb.String("missing"))
	if err != nil {
		t.Fatalf("Decrement missing: %v", err)
	}
	assertCart(t, []cartstore.LineItem{lineItem("p1", 2)}, got)

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := f.store.Flush(flushCtx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	blob, ok, err := f.kv.Get(ctx, cartstore.StorageKey)
	if err != nil || !ok {
		t.Fatalf("persisted cart missing: ok=%v err=%v", ok, err)
	}
	persisted, err := cartstore.Decode(blob)
	if err != nil {
		t.Fatalf("decode persisted: %v", err)
	}
	if diff := cmp.Diff([]cartstore.LineItem{lineItem("p1", 2)}, persisted); diff != "" {
		t.Fatalf("persisted mismatch (-want +got):\n%s", diff)
	}
}

func TestAddToCartRejectsInvalidProducts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	tests := map[string]*structpb.Struct{
		"missing id":     productStruct(t, "", 10),
		"negative price": productStruct(t, "p1", -1),
	}
	for name, req := range tests {
		_, err := f.client.AddToCart(ctx, req)
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("%s: code = %v, want InvalidArgument", name, status.Code(err))
		}
	}
	if n := f.store.Len(); n != 0 {
		t.Fatalf("len = %d, want 0", n)
	}
}

func TestWatchStreamsSnapshots(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := f.client.Watch(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	first, err := stream.Recv()
	if err != nil {
		t.Fatalf("recv initial: %v", err)
	}
	assertCart(t, nil, first)

	if _, err := f.client.AddToCart(ctx, productStruct(t, "p1", 10)); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	next, err := stream.Recv()
	if err != nil {
		t.Fatalf("recv update: %v", err)
	}
	assertCart(t, []cartstore.LineItem{lineItem("p1", 1)}, next)
}

func TestGracefulStopEndsAttachedWatchers(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := f.client.Watch(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if _, err := stream.Recv(); err != nil {
		t.Fatalf("recv initial: %v", err)
	}

	graceful := make(chan bool, 1)
	go func() { graceful <- GracefulStop(f.srv, f.svc, 5*time.Second) }()

	select {
	case ok := <-graceful:
		if !ok {
			t.Fatal("expected the graceful path to complete")
		}
	case <-time.After(8 * time.Second):
		t.Fatal("GracefulStop blocked by an idle Watch client")
	}

	if _, err := stream.Recv(); status.Code(err) != codes.Unavailable {
		t.Fatalf("recv after stop: code = %v, want Unavailable", status.Code(err))
	}
}

func TestWatchNeverGoesBackwards(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.store.AddToCart(cartstore.Product{ID: "p1", Title: "title p1", ImageURL: "https://img/p1.png", Price: 10})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const increments = 100
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < increments; i++ {
			f.store.Increment("p1")
		}
	}()

	stream, err := f.client.Watch(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	last := 0
	for last < increments+1 {
		msg, err := stream.Recv()
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		items := CartFromStruct(msg)
		if len(items) != 1 {
			t.Fatalf("items = %v, want one line", items)
		}
		if items[0].Quantity <= last {
			t.Fatalf("quantity went from %d to %d", last, items[0].Quantity)
		}
		last = items[0].Quantity
	}
	<-done
}

type stubPinger bool

func (p stubPinger) Ping(context.Context) bool { return bool(p) }

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ok   bool
		want healthpb.HealthCheckResponse_ServingStatus
	}{
		{"serving", true, healthpb.HealthCheckResponse_SERVING},
		{"not serving", false, healthpb.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, stubPinger(tt.ok))
			resp, err := f.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if resp.GetStatus() != tt.want {
				t.Fatalf("status = %v, want %v", resp.GetStatus(), tt.want)
			}
		})
	}
}

func TestCartStructRoundTrip(t *testing.T) {
	t.Parallel()

	items := []cartstore.LineItem{lineItem("p2", 3), lineItem("p1", 1)}
	msg, err := CartToStruct(items)
	if err != nil {
		t.Fatalf("CartToStruct: %v", err)
	}
	if diff := cmp.Diff(items, CartFromStruct(msg)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
