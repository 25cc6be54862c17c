package rpcserver

import (
	"context"
	"net"
	"net/http"

	"cosmossdk.io/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	ethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/moved-network/moved/internal/engineapi"
)

// Server wires up the two HTTP listeners spec §6 calls for: an
// unauthenticated JSON-RPC socket ("eth"/"mv" namespaces, HTTP+WS) and
// a JWT-authenticated Engine API socket ("engine" namespace, HTTP
// only), grounded on the teacher's server/json_rpc.go assembly of
// go-ethereum's rpc.Server plus gorilla/mux plus rs/cors.
type Server struct {
	Logger log.Logger

	HTTPAddr string
	AuthAddr string
	Auth     *engineapi.Authenticator

	Eth    *EthAPI
	Move   *MoveAPI
	Engine *EngineNamespace

	EnableUnsafeCORS bool
}

// Run starts both listeners and blocks until ctx is cancelled or a
// listener fails, shutting the other down in either case — the same
// errgroup-plus-context shutdown shape server/json_rpc.go uses.
func (s *Server) Run(ctx context.Context) error {
	publicSrv, publicLn, err := s.buildPublicServer()
	if err != nil {
		return err
	}
	authSrv, authLn, err := s.buildAuthServer()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.serve(gctx, "json-rpc", publicSrv, publicLn) })
	g.Go(func() error { return s.serve(gctx, "engine-api", authSrv, authLn) })
	return g.Wait()
}

func (s *Server) serve(ctx context.Context, name string, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	s.Logger.Info("rpc server listening", "server", name, "addr", srv.Addr)
	select {
	case <-ctx.Done():
		s.Logger.Info("stopping rpc server", "server", name)
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) buildPublicServer() (*http.Server, net.Listener, error) {
	rpcSrv := ethrpc.NewServer()
	if err := rpcSrv.RegisterName("eth", s.Eth); err != nil {
		return nil, nil, err
	}
	if err := rpcSrv.RegisterName("mv", s.Move); err != nil {
		return nil, nil, err
	}

	r := mux.NewRouter()
	r.Handle("/", rpcSrv).Methods(http.MethodPost)
	r.Handle("/", rpcSrv.WebsocketHandler([]string{"*"})).Methods(http.MethodGet)

	corsHandler := cors.Default()
	if s.EnableUnsafeCORS {
		corsHandler = cors.AllowAll()
	}
	handler := handlers.RecoveryHandler()(corsHandler.Handler(r))

	ln, err := net.Listen("tcp", s.HTTPAddr)
	if err != nil {
		return nil, nil, err
	}
	return &http.Server{Addr: s.HTTPAddr, Handler: handler}, ln, nil
}

func (s *Server) buildAuthServer() (*http.Server, net.Listener, error) {
	rpcSrv := ethrpc.NewServer()
	if err := rpcSrv.RegisterName("engine", s.Engine); err != nil {
		return nil, nil, err
	}

	r := mux.NewRouter()
	r.Handle("/", rpcSrv).Methods(http.MethodPost)
	handler := handlers.RecoveryHandler()(jwtMiddleware(s.Auth, r))

	ln, err := net.Listen("tcp", s.AuthAddr)
	if err != nil {
		return nil, nil, err
	}
	return &http.Server{Addr: s.AuthAddr, Handler: handler}, ln, nil
}
