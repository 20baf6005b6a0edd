// Package console is the interactive text front end. Each menu is a loop that
// reads one choice, calls the service and prints the result.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"minishop/model"
	"minishop/service"
	"minishop/session"
)

type Console struct {
	svc  service.ServiceInterface
	sess *session.Session
	in   *bufio.Scanner
	out  io.Writer
}

func New(svc service.ServiceInterface, sess *session.Session, in io.Reader, out io.Writer) *Console {
	return &Console{svc: svc, sess: sess, in: bufio.NewScanner(in), out: out}
}

// Run shows the main menu until the customer quits or input ends.
func (c *Console) Run(ctx context.Context) error {
	c.printf("Welcome, %s.\n", c.sess.NickName)
	for {
		c.println("\n===== MAIN =====")
		c.println("1. Browse products")
		c.println("2. Cart")
		c.println("3. My page")
		c.println("0. Quit")
		choice, ok := c.prompt("Select: ")
		if !ok {
			return nil
		}
		var err error
		switch choice {
		case "1":
			err = c.products(ctx)
		case "2":
			err = c.cart(ctx)
		case "3":
			err = c.myPage(ctx)
		case "0":
			c.println("Bye.")
			return nil
		default:
			c.println("Unknown menu.")
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (c *Console) products(ctx context.Context) error {
	ps, err := c.svc.ListProducts(ctx)
	if err != nil {
		c.report(err)
		return nil
	}
	c.println("\n===== PRODUCTS =====")
	for _, p := range ps {
		c.printf("[%d] %s (%s) %s, stock %d\n", p.ID, p.Name, p.Category, FormatWon(p.Price.Truncate(0).IntPart()), p.Stock)
	}

	for {
		id, ok, err := c.promptInt("Product id to add (0 to go back): ")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if id == 0 {
			return nil
		}
		qty, ok, err := c.promptInt("Quantity: ")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := c.svc.AddToCart(ctx, c.sess, int64(id), qty); err != nil {
			c.report(err)
			continue
		}
		c.println("Added to cart.")
	}
}

func (c *Console) cart(ctx context.Context) error {
	for {
		l, err := c.svc.ListCart(ctx, c.sess)
		if err != nil {
			c.report(err)
			return nil
		}
		c.printListing(l)

		c.println("1. Remove a line")
		c.println("2. Change quantity")
		c.println("3. Clear cart")
		c.println("4. Buy all")
		c.println("5. Buy selected")
		c.println("0. Back")
		choice, ok := c.prompt("Select: ")
		if !ok {
			return io.EOF
		}
		switch choice {
		case "1":
			err = c.removeLine(ctx)
		case "2":
			err = c.changeQuantity(ctx)
		case "3":
			err = c.clear(ctx)
		case "4":
			c.finish(c.svc.PurchaseAll(ctx, c.sess, c))
		case "5":
			err = c.buySelected(ctx)
		case "0":
			return nil
		default:
			c.println("Unknown menu.")
		}
		if err != nil {
			return err
		}
	}
}

func (c *Console) printListing(l service.Listing) {
	c.println("\n===== CART =====")
	if len(l.Lines) == 0 {
		c.println("Your cart is empty.")
		return
	}
	for _, v := range l.Lines {
		c.printf("%d. %s x%d @ %s = %s\n", v.No, v.ProductName, v.Quantity,
			FormatWon(v.UnitPrice.Truncate(0).IntPart()), FormatWon(v.LineTotal))
	}
	c.printf("Total: %s\n", FormatWon(l.Total))
}

// line asks for a display number and resolves it against the live cart.
func (c *Console) line(ctx context.Context) (int64, bool, error) {
	n, ok, err := c.promptInt("Line number: ")
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := c.svc.ResolveDisplayNumber(ctx, c.sess, n)
	if err != nil {
		c.report(err)
		return 0, false, nil
	}
	return id, true, nil
}

func (c *Console) removeLine(ctx context.Context) error {
	id, ok, err := c.line(ctx)
	if err != nil || !ok {
		return err
	}
	if _, err := c.svc.RemoveLine(ctx, c.sess, id); err != nil {
		c.report(err)
		return nil
	}
	c.println("Removed.")
	return nil
}

func (c *Console) changeQuantity(ctx context.Context) error {
	id, ok, err := c.line(ctx)
	if err != nil || !ok {
		return err
	}
	qty, ok, err := c.promptInt("New quantity: ")
	if err != nil || !ok {
		return err
	}
	if _, err := c.svc.SetQuantity(ctx, c.sess, id, qty); err != nil {
		c.report(err)
		return nil
	}
	c.println("Quantity changed.")
	return nil
}

func (c *Console) clear(ctx context.Context) error {
	yes, err := c.yesNo("Remove every line? (y/n): ")
	if err != nil || !yes {
		return err
	}
	n, err := c.svc.Clear(ctx, c.sess)
	if err != nil {
		c.report(err)
		return nil
	}
	c.printf("Removed %d lines.\n", n)
	return nil
}

func (c *Console) buySelected(ctx context.Context) error {
	c.println("Enter line numbers separated by commas (e.g. 1,3), 0 to go back.")
	s, ok := c.prompt("Lines: ")
	if !ok {
		return io.EOF
	}
	if strings.TrimSpace(s) == "0" {
		return nil
	}

	var ids []int64
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			c.printf("Not a number: %q\n", f)
			return nil
		}
		id, err := c.svc.ResolveDisplayNumber(ctx, c.sess, n)
		if err != nil {
			c.report(err)
			return nil
		}
		ids = append(ids, id)
	}
	c.finish(c.svc.PurchaseSelected(ctx, c.sess, ids, c))
	return nil
}

// Confirm shows the quote and asks before anything is bought.
func (c *Console) Confirm(_ context.Context, q service.Quote) (bool, error) {
	c.println("\n===== CONFIRM PURCHASE =====")
	for _, l := range q.Lines {
		c.printf("%s x%d = %s\n", l.ProductName, l.Quantity, FormatWon(l.LineTotal))
	}
	c.printf("Total:          %s\n", FormatWon(q.Total))
	c.printf("Balance:        %s\n", FormatWon(q.Balance))
	c.printf("After purchase: %s\n", FormatWon(q.BalanceAfter))
	return c.yesNo("Purchase? (y/n): ")
}

func (c *Console) finish(r service.Receipt, err error) {
	if err != nil {
		c.report(err)
		return
	}
	c.println("\nPurchase complete. Thank you!")
	c.printf("Paid:      %s\n", FormatWon(r.Total))
	c.printf("Remaining: %s\n", FormatWon(r.BalanceAfter))
}

func (c *Console) myPage(ctx context.Context) error {
	for {
		a, err := c.svc.Account(ctx, c.sess)
		if err != nil {
			c.report(err)
			return nil
		}
		c.println("\n===== MY PAGE =====")
		c.printf("Login id: %s\n", a.LoginID)
		c.printf("Nickname: %s\n", a.NickName)
		c.printf("Balance:  %s\n", FormatWon(a.Balance))
		c.printf("Grade:    %s (charged %s)\n", a.Grade, FormatWon(a.TotalCharge))
		if a.Grade != model.GradeVIP {
			c.printf("Next grade at %s charged.\n", FormatWon(model.NextThreshold(a.Grade)))
		}
		c.println("1. Charge balance")
		c.println("0. Back")
		choice, ok := c.prompt("Select: ")
		if !ok {
			return io.EOF
		}
		switch choice {
		case "1":
			amount, ok, err := c.promptInt("Amount: ")
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if _, err := c.svc.Charge(ctx, c.sess, int64(amount)); err != nil {
				c.report(err)
				continue
			}
			c.println("Charged.")
		case "0":
			return nil
		default:
			c.println("Unknown menu.")
		}
	}
}

// report prints a service error in customer terms.
func (c *Console) report(err error) {
	var e *service.Error
	if !errors.As(err, &e) {
		c.printf("Error: %v\n", err)
		return
	}
	switch e.Kind {
	case service.KindEmptyPurchase:
		c.println("Nothing to buy.")
	case service.KindInsufficientFunds:
		c.printf("Not enough balance. Short by %s.\n", FormatWon(e.Shortfall))
	case service.KindLineNotInCart:
		c.printf("Product %d is not in your cart.\n", e.ProductID)
	case service.KindInvalidQuantity:
		c.printf("Invalid amount: %s.\n", e.Message)
	case service.KindUserCancelled:
		c.println("Purchase cancelled.")
	case service.KindNotFound:
		c.println("Not found. List the cart again and retry.")
	default:
		c.println("A database error occurred. Nothing was changed; check your balance and retry.")
	}
}

// --- input helpers ---

func (c *Console) prompt(p string) (string, bool) {
	fmt.Fprint(c.out, p)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

// promptInt returns ok=false after telling the customer the input was not a
// number; err is io.EOF when input ended.
func (c *Console) promptInt(p string) (int, bool, error) {
	s, ok := c.prompt(p)
	if !ok {
		return 0, false, io.EOF
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		c.println("Please enter a number.")
		return 0, false, nil
	}
	return n, true, nil
}

func (c *Console) yesNo(p string) (bool, error) {
	for {
		s, ok := c.prompt(p)
		if !ok {
			return false, io.EOF
		}
		switch strings.ToLower(s) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

func (c *Console) println(s string) { fmt.Fprintln(c.out, s) }

func (c *Console) printf(format string, args ...any) { fmt.Fprintf(c.out, format, args...) }
