// Command larder-watch follows a household shopping list from the terminal.
// It loads the list once over HTTP, then applies change-feed events from the
// WebSocket and reprints progress after every change.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/joho/godotenv"

	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/logging"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/shoplist"
)

func main() {
	_ = godotenv.Load()

	baseURL := flag.String("url", envOr("LARDER_URL", "http://localhost:8080"), "larder server base URL")
	token := flag.String("token", os.Getenv("LARDER_TOKEN"), "session token")
	storeMode := flag.Bool("store", false, "follow the list in store mode")
	logLevel := flag.String("log-level", envOr("LARDER_LOG_LEVEL", "warn"), "log level")
	flag.Parse()

	logger := logging.Setup(*logLevel, "text")
	if *token == "" {
		logger.Error("a session token is required, pass -token or set LARDER_TOKEN")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &client{
		baseURL: strings.TrimRight(*baseURL, "/"),
		token:   *token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	if err := run(ctx, c, *storeMode, os.Stdout, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("watch stopped", "error", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func (c *client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("get %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *client) dial(ctx context.Context) (*ws.Conn, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"
	conn, _, err := ws.Dial(ctx, wsURL, &ws.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + c.token}},
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return conn, nil
}

// loadOptions fetches the household preferences that shape the view.
func (c *client) loadOptions(ctx context.Context) (shoplist.Options, error) {
	var opts shoplist.Options

	var settings struct {
		UnitSystem  grocery.System `json:"unit_system"`
		ShowSources bool           `json:"show_sources"`
	}
	if err := c.getJSON(ctx, "/api/settings/shopping", &settings); err != nil {
		return opts, err
	}
	opts.UnitSystem = settings.UnitSystem
	opts.ShowSources = settings.ShowSources

	var order struct {
		Order  []grocery.Category `json:"order"`
		Custom bool               `json:"custom"`
	}
	if err := c.getJSON(ctx, "/api/settings/category-order", &order); err != nil {
		return opts, err
	}
	if order.Custom {
		opts.CategoryOrder = order.Order
	}

	var pantry []model.PantryItem
	if err := c.getJSON(ctx, "/api/pantry", &pantry); err != nil {
		return opts, err
	}
	opts.Pantry = make(map[string]bool, len(pantry))
	for _, p := range pantry {
		opts.Pantry[p.NormalizedIngredient] = true
	}
	return opts, nil
}

func run(ctx context.Context, c *client, storeMode bool, out io.Writer, logger *slog.Logger) error {
	opts, err := c.loadOptions(ctx)
	if err != nil {
		return err
	}
	var items []model.ShoppingListItem
	if err := c.getJSON(ctx, "/api/shopping-list/items", &items); err != nil {
		return err
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	p := &printer{out: out, opts: opts, storeMode: storeMode}
	replica := shoplist.NewReplica(items, logger)
	replica.OnChange(p.print)
	p.print(replica.Snapshot())

	events := make(chan shoplist.Event, 16)
	readErr := make(chan error, 1)
	go func() {
		defer close(events)
		for {
			var ev shoplist.Event
			if err := wsjson.Read(ctx, conn, &ev); err != nil {
				readErr <- err
				return
			}
			events <- ev
		}
	}()

	if err := replica.Run(ctx, events); err != nil {
		return err
	}
	err = <-readErr
	if ws.CloseStatus(err) == ws.StatusNormalClosure {
		return nil
	}
	return fmt.Errorf("read event: %w", err)
}

// printer renders a compact progress summary. In store mode it keeps the
// focus between renders and advances it as categories complete.
type printer struct {
	out       io.Writer
	opts      shoplist.Options
	storeMode bool
	mode      shoplist.StoreMode
}

func (p *printer) print(items []model.ShoppingListItem) {
	view := shoplist.BuildView(items, p.opts)
	if p.storeMode {
		if !p.mode.Active {
			p.mode = p.mode.Activate(view.Remaining)
		} else {
			p.mode = p.mode.Advance(view.Order, view.Remaining)
		}
	}

	fmt.Fprintf(p.out, "\n%s  %d/%d checked (%d%%)\n",
		time.Now().Format("15:04:05"), view.Counts.Checked, view.Counts.Total, view.Percentage)

	if p.storeMode {
		if p.mode.Done() {
			fmt.Fprintln(p.out, "  all done")
			return
		}
		fmt.Fprintf(p.out, "  aisle: %s\n", p.mode.Focused)
	}

	for _, g := range view.Groups {
		if p.storeMode && g.Category != p.mode.Focused {
			continue
		}
		mark := " "
		if g.Complete {
			mark = "x"
		}
		fmt.Fprintf(p.out, "  [%s] %-14s %d/%d\n", mark, g.Category, g.Counts.Checked, g.Counts.Total)
		if !p.storeMode {
			continue
		}
		for _, it := range g.Items {
			if it.IsChecked {
				continue
			}
			line := it.Ingredient
			if it.DisplayQuantity != "" {
				line = it.DisplayQuantity + " " + line
			}
			if it.IsInPantry {
				line += " (in pantry)"
			}
			fmt.Fprintf(p.out, "      - %s\n", line)
		}
	}
}
