package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap/zapcore"

	"patron/internal/config"
	"patron/internal/core"
	"patron/internal/db"
	"patron/internal/http/handler"
	"patron/internal/http/handler/middleware"
	"patron/internal/http/payload"
	"patron/internal/http/server"
	"patron/internal/model"
	"patron/internal/node"
	"patron/internal/state"
	"patron/pkg/jwt"
	"patron/pkg/log"
)

func Start() error {
	logger := log.NewZapLogger("patron", zapcore.InfoLevel)

	config, err := config.NewApp()
	if err != nil {
		logger.Errorw("failed to create config", "error", err)
		return err
	}

	kv, err := db.NewPostgresKV(config.DBConnectionURL)
	if err != nil {
		logger.Errorw("failed to connect to database", "error", err)
		return err
	}
	if err := kv.Migrate(); err != nil {
		logger.Errorw("failed to migrate key-value table", "error", err)
		return err
	}

	// token services: one secret for caller sessions, one for the peer mesh
	sessions := jwt.NewJWTService([]byte(config.SessionSecret))
	mesh := jwt.NewJWTService([]byte(config.MeshSecret))

	chainID := model.ChainID(config.ChainID)
	runtime := node.NewRuntime(logger, kv.DB(), chainID, config.Peers, mesh)
	if err := runtime.Migrate(); err != nil {
		logger.Errorw("failed to migrate node tables", "error", err)
		return err
	}

	chainState := state.NewChain(kv)
	executor := core.NewExecutor(logger, chainState, runtime)

	// handlers
	patronHlr := handler.NewPatronHandler(
		logger,
		payload.DecodeValidator{},
		executor,
		sessions,
		chainID)
	peerHlr := handler.NewPeerHandler(
		logger,
		payload.DecodeValidator{},
		executor,
		runtime,
		runtime,
		mesh,
		chainID)

	// middleware
	mux := http.NewServeMux()
	hdlr := middleware.NewLoggingMiddleware(logger).Logging(mux)
	hdlr = middleware.NewRequestIDMiddleware().RequestID(hdlr)

	// register routes
	mux.HandleFunc(handler.Authenticate, patronHlr.HandleAuthenticate)
	mux.HandleFunc(handler.Register, patronHlr.HandleRegister)
	mux.HandleFunc(handler.UpdateProfile, patronHlr.HandleUpdateProfile)
	mux.HandleFunc(handler.SetAvatar, patronHlr.HandleSetAvatar)
	mux.HandleFunc(handler.SetHeader, patronHlr.HandleSetHeader)
	mux.HandleFunc(handler.GetProfile, patronHlr.HandleGetProfile)

	mux.HandleFunc(handler.Transfer, patronHlr.HandleTransfer)
	mux.HandleFunc(handler.Withdraw, patronHlr.HandleWithdraw)
	mux.HandleFunc(handler.Mint, patronHlr.HandleMint)
	mux.HandleFunc(handler.GetDonations, patronHlr.HandleGetDonations)

	mux.HandleFunc(handler.CreateProduct, patronHlr.HandleCreateProduct)
	mux.HandleFunc(handler.ListProducts, patronHlr.HandleListProducts)
	mux.HandleFunc(handler.GetProduct, patronHlr.HandleGetProduct)
	mux.HandleFunc(handler.UpdateProduct, patronHlr.HandleUpdateProduct)
	mux.HandleFunc(handler.DeleteProduct, patronHlr.HandleDeleteProduct)
	mux.HandleFunc(handler.BuyProduct, patronHlr.HandleBuyProduct)
	mux.HandleFunc(handler.GetPurchases, patronHlr.HandleGetPurchases)
	mux.HandleFunc(handler.GetBlob, patronHlr.HandleGetBlob)

	mux.HandleFunc(handler.SetSubPrice, patronHlr.HandleSetSubscriptionPrice)
	mux.HandleFunc(handler.DeleteSubPrice, patronHlr.HandleDeleteSubscriptionPrice)
	mux.HandleFunc(handler.Subscribe, patronHlr.HandleSubscribe)
	mux.HandleFunc(handler.ListSubscriptions, patronHlr.HandleListSubscriptions)

	mux.HandleFunc(handler.CreatePost, patronHlr.HandleCreatePost)
	mux.HandleFunc(handler.ListPosts, patronHlr.HandleListPosts)
	mux.HandleFunc(handler.GetPost, patronHlr.HandleGetPost)
	mux.HandleFunc(handler.UpdatePost, patronHlr.HandleUpdatePost)
	mux.HandleFunc(handler.DeletePost, patronHlr.HandleDeletePost)
	mux.HandleFunc(handler.CastVote, patronHlr.HandleCastVote)
	mux.HandleFunc(handler.JoinGiveaway, patronHlr.HandleJoinGiveaway)
	mux.HandleFunc(handler.ResolveGiveaway, patronHlr.HandleResolveGiveaway)

	mux.HandleFunc(handler.PeerMessages, peerHlr.HandleMessage)
	mux.HandleFunc(handler.PeerEvents, peerHlr.HandleEvents)
	mux.HandleFunc(handler.PeerCredits, peerHlr.HandleCredit)

	// background stream replication
	pullCtx, cancelPull := context.WithCancel(context.Background())
	defer cancelPull()
	puller := node.NewPuller(logger, runtime, executor, config.PullInterval)
	go puller.Run(pullCtx)

	srv := server.NewHTTP(logger, hdlr, config.Port)
	return run(srv)
}

func run(server *server.HTTPServer) error {
	// expect a signal to gracefully shutdown the server
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	errChan := server.Run()

	var err error
	select {
	case <-sig:
	case err = <-errChan:
	}

	sdErr := server.Shutdown()
	if err == http.ErrServerClosed && sdErr != nil {
		return fmt.Errorf("server shutdown: %w", sdErr)
	}

	return err
}
