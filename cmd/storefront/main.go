// Command storefront is the device-side shopper client. It keeps the cart and
// any staged checkout in a local state directory and talks to the storefront
// API to look up products and place orders.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/safar/go-storefront/internal/config"
	"github.com/shopspring/decimal"
)

const usage = `usage: storefront [-state dir] [-api url] <command> [args]

commands:
  cart show
  cart add [-size S] [-color C] <productId>
  cart qty <lineId> <quantity>
  cart rm <lineId>
  cart clear
  checkout info -name N -phone P -address A -district D -state S -pincode C [-pay online|cod]
  checkout pay [-qr file.png]
  checkout back
  checkout submit <transactionId>
  order <orderId>
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	decimal.MarshalJSONWithoutQuotes = true

	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	stateDir := fs.String("state", defaultStateDir(), "directory holding the local cart and staged order")
	apiURL := fs.String("api", cfg.Store.BaseURL, "storefront API base URL")
	timeout := fs.Duration("timeout", 15*time.Second, "API request timeout")
	verbose := fs.Bool("v", false, "log debug output to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	c, err := newClient(*stateDir, *apiURL, *timeout, cfg, logger)
	if err != nil {
		return err
	}
	c.out = stdout

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	switch rest[0] {
	case "cart":
		return c.cartCommand(ctx, rest[1:])
	case "checkout":
		return c.checkoutCommand(ctx, rest[1:])
	case "order":
		return c.orderCommand(ctx, rest[1:])
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "storefront")
	}
	return ".storefront"
}

func paymentLink(cfg *config.Config) checkout.PaymentLink {
	return checkout.PaymentLink{
		PayeeID:   cfg.Payment.UPIID,
		PayeeName: cfg.Store.AppName,
		Note:      cfg.Payment.Note,
	}
}
