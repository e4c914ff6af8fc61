package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/devicestate"
	"github.com/safar/go-storefront/internal/notify"
)

type client struct {
	carts  *cart.FileStorage
	flow   *checkout.Flow
	api    *checkout.Client
	link   checkout.PaymentLink
	qrSize int
	logger zerolog.Logger
	out    io.Writer
}

func newClient(stateDir, apiURL string, timeout time.Duration, cfg *config.Config, logger zerolog.Logger) (*client, error) {
	dir, err := devicestate.Open(stateDir)
	if err != nil {
		return nil, err
	}

	carts := cart.NewFileStorage(dir)
	api := checkout.NewClient(apiURL, timeout)
	link := paymentLink(cfg)
	flow := checkout.NewFlow(carts, checkout.NewPendingStore(dir), checkout.NewFeeSchedule(cfg.Payment), link, api)
	if err := flow.Resume(); err != nil {
		return nil, fmt.Errorf("resume checkout: %w", err)
	}
	logger.Debug().Str("state_dir", stateDir).Str("api", apiURL).Str("step", flow.State().String()).Msg("client ready")

	return &client{
		carts:  carts,
		flow:   flow,
		api:    api,
		link:   link,
		qrSize: cfg.Payment.QRCodeSize,
		logger: logger,
		out:    os.Stdout,
	}, nil
}

func (c *client) cartCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("cart: missing subcommand")
	}

	switch args[0] {
	case "show":
		cur, err := c.carts.Load(ctx, cart.Key)
		if err != nil {
			return err
		}
		c.printCart(cur)
		return nil

	case "add":
		fs := flag.NewFlagSet("cart add", flag.ContinueOnError)
		size := fs.String("size", "", "size option")
		color := fs.String("color", "", "color option")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errors.New("cart add: expected one product id")
		}

		product, err := c.api.GetProduct(ctx, fs.Arg(0))
		if err != nil {
			if checkout.IsNotFound(err) {
				return fmt.Errorf("product %s not found", fs.Arg(0))
			}
			return err
		}

		var notice string
		updated, err := c.carts.Update(ctx, cart.Key, func(cur *cart.Cart) error {
			var err error
			notice, err = cur.Add(product, *size, *color)
			return err
		})
		if err != nil {
			return err
		}
		c.notice(notice)
		c.printCart(updated)
		return nil

	case "qty":
		if len(args) != 3 {
			return errors.New("cart qty: expected <lineId> <quantity>")
		}
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("cart qty: invalid quantity %q", args[2])
		}
		var notice string
		updated, err := c.carts.Update(ctx, cart.Key, func(cur *cart.Cart) error {
			var err error
			notice, err = cur.SetQuantity(args[1], qty)
			return err
		})
		if err != nil {
			return err
		}
		c.notice(notice)
		c.printCart(updated)
		return nil

	case "rm":
		if len(args) != 2 {
			return errors.New("cart rm: expected <lineId>")
		}
		updated, err := c.carts.Update(ctx, cart.Key, func(cur *cart.Cart) error {
			return cur.Remove(args[1])
		})
		if err != nil {
			return err
		}
		c.printCart(updated)
		return nil

	case "clear":
		if err := c.carts.Delete(ctx, cart.Key); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Cart cleared.")
		return nil
	}

	return fmt.Errorf("cart: unknown subcommand %q", args[0])
}

func (c *client) checkoutCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("checkout: missing subcommand")
	}

	switch args[0] {
	case "info":
		fs := flag.NewFlagSet("checkout info", flag.ContinueOnError)
		var info checkout.CustomerInfo
		fs.StringVar(&info.CustomerName, "name", "", "customer name")
		fs.StringVar(&info.PhoneNumber, "phone", "", "phone number")
		fs.StringVar(&info.AlternatePhone, "alt-phone", "", "alternate phone")
		fs.StringVar(&info.InstagramID, "insta", "", "instagram id")
		fs.StringVar(&info.Address, "address", "", "street address")
		fs.StringVar(&info.District, "district", "", "district")
		fs.StringVar(&info.State, "state", "", "state")
		fs.StringVar(&info.Pincode, "pincode", "", "pincode")
		fs.StringVar(&info.Landmark, "landmark", "", "landmark")
		pay := fs.String("pay", string(checkout.PaymentOnline), "payment method: online or cod")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		method, err := checkout.ParsePaymentMethod(*pay)
		if err != nil {
			return err
		}
		if c.flow.State() == checkout.StatePayment {
			if err := c.flow.Back(); err != nil {
				return err
			}
		}

		staged, err := c.flow.Proceed(ctx, info, method)
		if err != nil {
			var fieldErrs checkout.FieldErrors
			if errors.As(err, &fieldErrs) {
				return fmt.Errorf("check your details: %w", fieldErrs)
			}
			return err
		}
		c.printStaged(staged)
		return nil

	case "pay":
		fs := flag.NewFlagSet("checkout pay", flag.ContinueOnError)
		qrPath := fs.String("qr", "", "write the payment QR code PNG to this file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		staged := c.flow.Staged()
		if staged == nil {
			return errors.New("no staged order, run checkout info first")
		}
		c.printStaged(staged)
		if *qrPath != "" {
			png, err := c.link.QR(staged.Quote.Advance, c.qrSize)
			if err != nil {
				return err
			}
			if err := os.WriteFile(*qrPath, png, 0o600); err != nil {
				return fmt.Errorf("write qr: %w", err)
			}
			fmt.Fprintf(c.out, "QR code written to %s\n", *qrPath)
		}
		return nil

	case "back":
		if err := c.flow.Back(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Back to shipping details. The staged order is kept until you continue.")
		return nil

	case "submit":
		if len(args) != 2 {
			return errors.New("checkout submit: expected <transactionId>")
		}
		orderID, err := c.flow.Submit(ctx, args[1])
		if err != nil && orderID == "" {
			return err
		}
		if err != nil {
			c.logger.Warn().Err(err).Str("order_id", orderID).Msg("order placed but local cleanup failed")
		}
		fmt.Fprintf(c.out, "Order placed. Order ID: %s\n", orderID)
		return nil
	}

	return fmt.Errorf("checkout: unknown subcommand %q", args[0])
}

func (c *client) orderCommand(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("order: expected <orderId>")
	}
	order, err := c.api.GetOrder(ctx, args[0])
	if err != nil {
		if checkout.IsNotFound(err) {
			return fmt.Errorf("order %s not found", args[0])
		}
		return err
	}
	fmt.Fprintln(c.out, notify.FormatOrder(order))
	return nil
}

func (c *client) notice(msg string) {
	if msg != "" {
		fmt.Fprintln(c.out, msg)
	}
}

func (c *client) printCart(cur *cart.Cart) {
	if len(cur.Items) == 0 {
		fmt.Fprintln(c.out, "Your cart is empty.")
		return
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tPRODUCT\tOPTIONS\tQTY\tPRICE\tTOTAL")
	for _, item := range cur.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			item.LineID, item.Name, optionLabel(item), item.Quantity, item.MaxQty,
			item.UnitPrice().StringFixed(2), item.LineTotal().StringFixed(2))
	}
	tw.Flush()
	fmt.Fprintf(c.out, "Items: %d  Subtotal: ₹%s\n", cur.Count(), cur.Subtotal().StringFixed(2))
}

func (c *client) printStaged(p *checkout.PendingOrder) {
	q := p.Quote
	fmt.Fprintf(c.out, "Payment: %s\n", q.PaymentMethod)
	fmt.Fprintf(c.out, "Subtotal: ₹%s\n", q.Subtotal.StringFixed(2))
	fmt.Fprintf(c.out, "Shipping: ₹%s\n", q.Shipping.StringFixed(2))
	fmt.Fprintf(c.out, "Total: ₹%s\n", q.Total.StringFixed(2))
	if q.PaymentMethod == checkout.PaymentCOD {
		fmt.Fprintf(c.out, "Pay now: ₹%s  On delivery: ₹%s\n", q.Advance.StringFixed(2), q.CODRemaining.StringFixed(2))
	}
	fmt.Fprintf(c.out, "Delivery: %s\n", q.DeliveryMessage)
	fmt.Fprintf(c.out, "UPI: %s\n", p.UPILink)
}

func optionLabel(item cart.Item) string {
	switch {
	case item.Size != "" && item.Color != "":
		return item.Size + " / " + item.Color
	case item.Size != "":
		return item.Size
	case item.Color != "":
		return item.Color
	}
	return "-"
}
