package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/xenking/dream-snack/internal/auth"
	"github.com/xenking/dream-snack/internal/domain/cart"
	"github.com/xenking/dream-snack/internal/domain/catalog"
	"github.com/xenking/dream-snack/internal/domain/checkout"
	"github.com/xenking/dream-snack/internal/domain/order"
	"github.com/xenking/dream-snack/internal/kv"
	"github.com/xenking/dream-snack/internal/storage/postgres"
)

// demoOrder describes one seeded order: the menu item ids added to the cart
// and the lifecycle steps applied after placement.
type demoOrder struct {
	key     string
	name    string
	phone   string
	address string
	payment checkout.PaymentMethod
	items   []int
	steps   []order.Status
}

var demoOrders = []demoOrder{
	{
		key: "seed-1", name: "Asha Verma", phone: "9876543210", address: "12 Kamla Nagar",
		payment: checkout.PaymentCash, items: []int{1, 1, 9},
		steps: []order.Status{order.StatusConfirmed, order.StatusPreparing, order.StatusOutForDelivery, order.StatusDelivered},
	},
	{
		key: "seed-2", name: "Rohit Jain", phone: "9876501234", address: "4 Balkeshwar Road",
		payment: checkout.PaymentUPI, items: []int{2, 12, 12},
		steps: []order.Status{order.StatusConfirmed, order.StatusPreparing},
	},
	{
		key: "seed-3", name: "Meera Singh", phone: "9812345678", address: "Adarsh Nagar, Block C",
		payment: checkout.PaymentCard, items: []int{3, 10},
	},
	{
		key: "seed-4", name: "Kabir Das", phone: "9898989898", address: "Karmyogi Enclave 7",
		payment: checkout.PaymentCash, items: []int{4},
		steps: []order.Status{order.StatusCancelled},
	},
}

func main() {
	var (
		databaseURL string
		userID      string
		adminEmail  string
		jwtSecret   string
		tokenTTL    time.Duration
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&userID, "user-id", "00000000-0000-0000-0000-000000000001", "owner of the seeded orders")
	flag.StringVar(&adminEmail, "admin-email", "owner@dreamsnack.in", "email of the development admin token")
	flag.StringVar(&jwtSecret, "jwt-secret", "", "secret to sign a development admin token (or SUPABASE_JWT_SECRET env)")
	flag.DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the development token")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if jwtSecret == "" {
		jwtSecret = os.Getenv("SUPABASE_JWT_SECRET")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, userID); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if jwtSecret != "" {
		token, err := devToken([]byte(jwtSecret), userID, adminEmail, tokenTTL)
		if err != nil {
			slog.Error("sign token failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(token)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, userID string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	carts := cart.NewStore(kv.NewMemory())
	svc := order.NewService(postgres.NewOrderRepository(pool), carts)

	for _, d := range demoOrders {
		if err := seedOrder(ctx, svc, carts, userID, d); err != nil {
			return errors.Wrapf(err, "seed order %s", d.key)
		}
	}
	return nil
}

// seedOrder places d through the order service. The idempotency key makes
// reruns return the existing order, whose lifecycle is then left alone.
func seedOrder(ctx context.Context, svc *order.Service, carts *cart.Store, userID string, d demoOrder) error {
	c := cart.New()
	for _, id := range d.items {
		it, err := catalog.Lookup(id)
		if err != nil {
			return errors.Wrapf(err, "item %d", id)
		}
		c.AddItem(it)
	}
	if err := carts.Save(ctx, userID, c); err != nil {
		return errors.Wrap(err, "fill cart")
	}

	res, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{
		UserID: userID,
		Details: checkout.Details{
			Name:          d.name,
			Phone:         d.phone,
			Address:       d.address,
			PaymentMethod: d.payment,
		},
		IdempotencyKey: d.key,
	})
	if err != nil {
		return errors.Wrap(err, "place order")
	}
	if res.Replayed {
		slog.Info("order already seeded", slog.String("number", res.Order.DisplayNumber()))
		return carts.Delete(ctx, userID)
	}

	o := res.Order
	for _, st := range d.steps {
		if o, err = svc.Transition(ctx, o.ID, st); err != nil {
			return errors.Wrapf(err, "move to %s", st)
		}
	}

	slog.Info("seeded order",
		slog.String("number", o.DisplayNumber()),
		slog.String("status", string(o.Status)),
		slog.String("total", o.TotalAmount.String()),
	)
	return nil
}

// devToken signs an admin session token for local development.
func devToken(secret []byte, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}
	c.UserMetadata.DisplayName = "Dream Snack Admin"
	c.AppMetadata.Role = auth.RoleAdmin
	return auth.Sign(secret, c)
}
