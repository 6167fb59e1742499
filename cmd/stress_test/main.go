package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/basket-checkout/internal/adapter/handler"
	"github.com/rl1809/basket-checkout/internal/core/domain"
)

// stress_test fires many concurrent checkouts of one basket at a running
// server and verifies exactly one of them wins.
func main() {
	app := &cli.App{
		Name:  "stress_test",
		Usage: "concurrent double-checkout stress run",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "http", Value: "http://localhost:8080", Usage: "HTTP API base URL, used for seeding"},
			&cli.StringFlag{Name: "grpc", Value: "localhost:50051", Usage: "gRPC checkout address"},
			&cli.IntFlag{Name: "requests", Value: 50, Usage: "concurrent checkout calls"},
			&cli.IntFlag{Name: "stock", Value: 100, Usage: "initial item stock"},
			&cli.IntFlag{Name: "quantity", Value: 10, Usage: "quantity placed in the basket"},
			&cli.Float64Flag{Name: "price", Value: 10, Usage: "unit price"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	ctx := c.Context
	api := &apiClient{base: c.String("http"), http: &http.Client{Timeout: 10 * time.Second}}

	itemID, basketID, err := seed(api, c.Float64("price"), c.Int("stock"), c.Int("quantity"))
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	conn, err := grpc.NewClient(c.String("grpc"), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial grpc: %w", err)
	}
	defer conn.Close()
	client := handler.NewCheckoutClient(conn)

	var success, already, other atomic.Int32
	total := c.Int("requests")
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < total; i++ {
		g.Go(func() error {
			_, err := client.Checkout(gctx, basketID)
			switch {
			case err == nil:
				success.Add(1)
			case errors.Is(err, domain.ErrAlreadyCheckedOut):
				already.Add(1)
			default:
				other.Add(1)
				fmt.Fprintf(os.Stderr, "unexpected error: %v\n", err)
			}
			return nil
		})
	}
	g.Wait()
	elapsed := time.Since(start)

	var item handler.ItemResponse
	if err := api.call(http.MethodGet, fmt.Sprintf("/items/%d", itemID), nil, &item); err != nil {
		return fmt.Errorf("read item: %w", err)
	}

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Basket:           %d\n", basketID)
	fmt.Printf("Total Requests:   %d\n", total)
	fmt.Printf("Checked out:      %d\n", success.Load())
	fmt.Printf("Already done:     %d\n", already.Load())
	fmt.Printf("Other errors:     %d\n", other.Load())
	fmt.Printf("Final Stock:      %d\n", item.Stock)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	wantStock := c.Int("stock") - c.Int("quantity")
	if success.Load() != 1 || already.Load() != int32(total-1) || item.Stock != wantStock {
		return fmt.Errorf("FAIL: expected 1 success, %d already checked out, stock %d", total-1, wantStock)
	}
	fmt.Println("PASS: exactly one checkout succeeded and stock was decremented once")
	return nil
}

func seed(api *apiClient, price float64, stock, quantity int) (itemID, basketID int64, err error) {
	var user handler.UserResponse
	if err = api.call(http.MethodPost, "/users", handler.UserRequest{
		FirstName: "Stress", LastName: "Test", Username: "stress", Email: "stress@example.com",
	}, &user); err != nil {
		return
	}
	var item handler.ItemResponse
	if err = api.call(http.MethodPost, "/items", handler.ItemRequest{Name: "stress-item", Price: price, Stock: stock}, &item); err != nil {
		return
	}
	var basket handler.BasketResponse
	if err = api.call(http.MethodPost, "/baskets", handler.BasketRequest{UserID: user.ID}, &basket); err != nil {
		return
	}
	err = api.call(http.MethodPost, "/basket-contents", handler.BasketContentRequest{
		BasketID: basket.ID, ItemID: item.ID, Quantity: quantity,
	}, nil)
	return item.ID, basket.ID, err
}

type apiClient struct {
	base string
	http *http.Client
}

func (a *apiClient) call(method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(context.Background(), method, a.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		var e struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, e.Message)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
