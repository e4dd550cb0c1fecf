package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/MikeMC777/mercado-ecom/internal/auth"
	"github.com/MikeMC777/mercado-ecom/internal/config"
	"github.com/MikeMC777/mercado-ecom/internal/identity"
	"github.com/MikeMC777/mercado-ecom/internal/postgres"
	"github.com/MikeMC777/mercado-ecom/internal/user"
)

// listenAddr keeps the port of the address clients dial and binds on all interfaces.
func listenAddr(dialAddr string) string {
	_, port, err := net.SplitHostPort(dialAddr)
	if err != nil || port == "" {
		return ":50051"
	}
	return ":" + port
}

func main() {
	seedEmail := flag.String("seed-email", "", "create this account at startup if it does not exist")
	seedPassword := flag.String("seed-password", "", "password for -seed-email")
	seedRole := flag.String("seed-role", auth.RoleCustomer, "role for -seed-email (customer or admin)")
	seedSupermarket := flag.String("seed-supermarket", "", "supermarket administered by -seed-email")
	flag.Parse()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	svc := user.NewService(user.NewPGRepo(pool), auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL))
	if *seedEmail != "" {
		u, err := svc.Seed(ctx, *seedEmail, *seedPassword, *seedRole, *seedSupermarket)
		switch {
		case errors.Is(err, user.ErrAlreadyExist):
			log.Printf("[seed] email=%s already present", *seedEmail)
		case err != nil:
			log.Fatalf("seed: %v", err)
		default:
			log.Printf("[seed] created user id=%s role=%s", u.ID, u.Role)
		}
	}

	addr := listenAddr(cfg.UserSvcAddr)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	srv := grpc.NewServer()
	identity.Register(srv, svc)
	hs := health.NewServer()
	hs.SetServingStatus(identity.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		log.Printf("user-service listening on %s", addr)
		if err := srv.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("user-service shutting down")
	hs.Shutdown()
	srv.GracefulStop()
}
