package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"orderbot/internal/api"
	"orderbot/internal/auth"
	"orderbot/internal/config"
	"orderbot/internal/rest"
	"orderbot/internal/strategy"
	"orderbot/internal/stream"
)

const usage = `Usage: orderbot <command> [flags]

Commands:
  market       Place a market order
  limit        Place a limit order
  stop-limit   Place a stop-limit order
  stop-loss    Place a reduce-only stop-loss
  oco          Place a take-profit / stop-loss pair
  oco-cancel   Cancel both legs of an OCO pair
  twap         Work an order as timed market slices
  grid         Place a grid of limit orders
  grid-cancel  Cancel grid orders by id
  price        Show the current price for a symbol
  balance      Show futures account balances
  orders       List open orders
  watch        Follow the mark price stream for a symbol
  serve        Run the HTTP API server
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "orderbot: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	signer := auth.NewSignerWithRecvWindow(cfg.Binance.APIKey, cfg.Binance.APISecret, cfg.Binance.RecvWindow)
	client := rest.NewClient(cfg.Binance.BaseURL, signer,
		rest.WithTimeout(cfg.Binance.Timeout),
		rest.WithMaxRetries(cfg.Binance.MaxRetries),
		rest.WithRetryDelay(cfg.Binance.RetryDelay),
		rest.WithRateLimit(cfg.Binance.RateLimit, cfg.Binance.RateBurst),
		rest.WithLogger(logger))

	app := &app{cfg: cfg, client: client, logger: logger}

	command := os.Args[1]
	args := os.Args[2:]

	if err := app.run(ctx, command, args); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn().Msg("Interrupted")
			os.Exit(130)
		}
		logger.Error().Err(err).Str("command", command).Msg("Command failed")
		os.Exit(1)
	}
}

type app struct {
	cfg    *config.Config
	client *rest.Client
	logger zerolog.Logger
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "market":
		return a.runMarket(ctx, args)
	case "limit":
		return a.runLimit(ctx, args)
	case "stop-limit":
		return a.runStopLimit(ctx, args)
	case "stop-loss":
		return a.runStopLoss(ctx, args)
	case "oco":
		return a.runOCO(ctx, args)
	case "oco-cancel":
		return a.runOCOCancel(ctx, args)
	case "twap":
		return a.runTWAP(ctx, args)
	case "grid":
		return a.runGrid(ctx, args)
	case "grid-cancel":
		return a.runGridCancel(ctx, args)
	case "price":
		return a.runPrice(ctx, args)
	case "balance":
		return a.runBalance(ctx)
	case "orders":
		return a.runOrders(ctx, args)
	case "watch":
		return a.runWatch(ctx, args)
	case "serve":
		return a.runServe(ctx)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) runMarket(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("market", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading pair, e.g. BTCUSDT")
	side := fs.String("side", "", "BUY or SELL")
	quantity := fs.String("quantity", "", "order quantity")
	reduceOnly := fs.Bool("reduce-only", false, "only reduce an open position")
	fs.Parse(args)

	qty, err := parseDecimal(*quantity, "quantity")
	if err != nil {
		return err
	}

	executor := strategy.NewMarketExecutor(a.client, a.logger)
	resp, err := executor.PlaceOrder(ctx, *symbol, strings.ToUpper(*side), qty, strategy.OrderOptions{
		ReduceOnly: *reduceOnly,
	})
	if err != nil {
		return err
	}

	a.logger.Info().
		Int64("order_id", resp.OrderID).
		Str("status", resp.Status).
		Str("executed_qty", resp.ExecutedQty.String()).
		Str("avg_price", resp.AvgPrice.String()).
		Msg("Done")
	return nil
}

func (a *app) runLimit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("limit", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading pair")
	side := fs.String("side", "", "BUY or SELL")
	quantity := fs.String("quantity", "", "order quantity")
	price := fs.String("price", "", "limit price")
	postOnly := fs.Bool("post-only", false, "reject if the order would take liquidity")
	reduceOnly := fs.Bool("reduce-only", false, "only reduce an open position")
	fs.Parse(args)

	qty, err := parseDecimal(*quantity, "quantity")
	if err != nil {
		return err
	}
	px, err := parseDecimal(*price, "price")
	if err != nil {
		return err
	}

	executor := strategy.NewLimitExecutor(a.client, a.logger)
	resp, err := executor.PlaceOrder(ctx, *symbol, strings.ToUpper(*side), qty, px, strategy.OrderOptions{
		PostOnly:   *postOnly,
		ReduceOnly: *reduceOnly,
	})
	if err != nil {
		return err
	}

	a.logger.Info().Int64("order_id", resp.OrderID).Str("status", resp.Status).Msg("Done")
	return nil
}

func (a *app) runStopLimit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stop-limit", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading pair")
	side := fs.String("side", "", "BUY or SELL")
	quantity := fs.String("quantity", "", "order quantity")
	stopPrice := fs.String("stop-price", "", "trigger price")
	limitPrice := fs.String("limit-price", "", "limit price once triggered")
	markPrice := fs.Bool("mark-price", false, "trigger on mark price instead of last price")
	reduceOnly := fs.Bool("reduce-only", false, "only reduce an open position")
	fs.Parse(args)

	qty, err := parseDecimal(*quantity, "quantity")
	if err != nil {
		return err
	}
	stop, err := parseDecimal(*stopPrice, "stop-price")
	if err != nil {
		return err
	}
	limit, err := parseDecimal(*limitPrice, "limit-price")
	if err != nil {
		return err
	}

	opts := strategy.OrderOptions{ReduceOnly: *reduceOnly}
	if *markPrice {
		opts.WorkingType = strategy.WorkingTypeMarkPrice
	}

	executor := strategy.NewStopLimitExecutor(a.client, a.logger)
	resp, err := executor.PlaceOrder(ctx, *symbol, strings.ToUpper(*side), qty, stop, limit, opts)
	if err != nil {
		return err
	}

	a.logger.Info().Int64("order_id", resp.OrderID).Str("status", resp.Status).Msg("Done")
	return nil
}

func (a *app) runStopLoss(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stop-loss", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading pair")
	side := fs.String("side", "", "closing side: SELL for a long, BUY for a short")
	quantity := fs.String("quantity", "", "position quantity to protect")
	stopPrice := fs.String("stop-price", "", "trigger price")
	fs.Parse(args)

	qty, err := parseDecimal(*quantity, "quantity")
	if err != nil {
		return err
	}
	stop, err := parseDecimal(*stopPrice, "stop-price")
	if err != nil {
		return err
	}

	executor := strategy.NewStopLimitExecutor(a.client, a.logger)
	resp, err := executor.PlaceStopLoss(ctx, *symbol, strings.ToUpper(*side), qty, stop, strategy.OrderOptions{})
	if err != nil {
		return err
	}

	a.logger.Info().Int64("order_id", resp.OrderID).Str("status", resp.Status).Msg("Done")
	return nil
}

func (a *app) runOCO(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("oco", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading pair")
	side := fs.String("side", "", "closing side: SELL for a long, BUY for a short")
	quantity := fs.String("quantity", "", "position quantity")
	takeProfit := fs.String("take-profit", "", "take-profit trigger price")
	stopPrice := fs.String("stop-price", "", "stop-loss trigger price")
	stopLimit := fs.String("stop-limit", "", "optional stop-loss limit price")
	fs.Parse(args)

	qty, err := parseDecimal(*quantity, "quantity")
	if err != nil {
		return err
	}
	tp, err := parseDecimal(*takeProfit, "take-profit")
	if err != nil {
		return err
	}
	stop, err := parseDecimal(*stopPrice, "stop-price")
	if err != nil {
		return err
	}

	req := strategy.OCORequest{
		Symbol:     *symbol,
		Side:       strings.ToUpper(*side),
		Quantity:   qty,
		TakeProfit: tp,
		StopPrice:  stop,
	}
	if *stopLimit != "" {
		req.StopLimitPrice, err = parseDecimal(*stopLimit, "stop-limit")
		if err != nil {
			return err
		}
	}

	executor := strategy.NewOCOExecutor(a.client, a.logger)
	result, err := executor.Place(ctx, req)
	if err != nil {
		return err
	}

	a.logger.Info().
		Int64("tp_order_id", result.TakeProfit.OrderID).
		Int64("sl_order_id", result.StopLoss.OrderID).
		Msg("Done")
	return nil
}

func (a *app) runOCOCancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("oco-cancel", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading pair")
	tpID := fs.Int64("tp-order-id", 0, "take-profit order id")
	slID := fs.Int64("sl-order-id", 0, "stop-loss order id")
	fs.Parse(args)

	executor := strategy.NewOCOExecutor(a.client, a.logger)
	return executor.Cancel(ctx, *symbol, *tpID, *slID)
}

func (a *app) runTWAP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("twap", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading pair")
	side := fs.String("side", "", "BUY or SELL")
	quantity := fs.String("quantity", "", "total quantity")
	duration := fs.Duration("duration", 5*time.Minute, "total execution window")
	slices := fs.Int("slices", 10, "number of market slices")
	randomize := fs.Bool("randomize", false, "perturb slice sizes and timing")
	limitPrice := fs.String("limit-price", "", "place limit slices at this price instead of market slices")
	fs.Parse(args)

	qty, err := parseDecimal(*quantity, "quantity")
	if err != nil {
		return err
	}

	req := strategy.TWAPRequest{
		Symbol:    *symbol,
		Side:      strings.ToUpper(*side),
		Quantity:  qty,
		Duration:  *duration,
		Slices:    *slices,
		Randomize: *randomize,
	}
	if *limitPrice != "" {
		req.OrderType = strategy.OrderTypeLimit
		req.LimitPrice, err = parseDecimal(*limitPrice, "limit-price")
		if err != nil {
			return err
		}
	}

	executor := strategy.NewTWAPExecutor(a.client, a.logger)
	result, err := executor.Execute(ctx, req)
	if result != nil {
		a.logger.Info().
			Int("completed", result.Completed).
			Int("failed", result.Failed).
			Str("filled_quantity", result.FilledQuantity.String()).
			Str("average_price", result.AveragePrice.String()).
			Msg("TWAP summary")
	}
	return err
}

func (a *app) runGrid(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("grid", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading pair")
	lower := fs.String("lower", "", "lower band price")
	upper := fs.String("upper", "", "upper band price")
	levels := fs.Int("levels", 5, "number of grid levels")
	qtyPerLevel := fs.String("quantity", "", "quantity per level")
	fs.Parse(args)

	lo, err := parseDecimal(*lower, "lower")
	if err != nil {
		return err
	}
	up, err := parseDecimal(*upper, "upper")
	if err != nil {
		return err
	}
	qty, err := parseDecimal(*qtyPerLevel, "quantity")
	if err != nil {
		return err
	}

	executor := strategy.NewGridExecutor(a.client, a.logger)
	result, err := executor.Create(ctx, strategy.GridRequest{
		Symbol:      *symbol,
		LowerPrice:  lo,
		UpperPrice:  up,
		Levels:      *levels,
		QtyPerLevel: qty,
	})
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(result.Buys)+len(result.Sells))
	for _, id := range result.OrderIDs() {
		ids = append(ids, fmt.Sprintf("%d", id))
	}
	a.logger.Info().
		Int("buys", len(result.Buys)).
		Int("sells", len(result.Sells)).
		Int("failed", len(result.Failed)).
		Str("order_ids", strings.Join(ids, ",")).
		Msg("Grid summary")
	return nil
}

func (a *app) runGridCancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("grid-cancel", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading pair")
	orderIDs := fs.String("order-ids", "", "comma-separated order ids, empty cancels all open orders")
	fs.Parse(args)

	var ids []int64
	for _, raw := range strings.Split(*orderIDs, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		var id int64
		if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
			return fmt.Errorf("invalid order id %q", raw)
		}
		ids = append(ids, id)
	}

	executor := strategy.NewGridExecutor(a.client, a.logger)

	var cancelled, failed int
	if len(ids) == 0 {
		var err error
		cancelled, failed, err = executor.CancelAllOpen(ctx, *symbol)
		if err != nil {
			return err
		}
	} else {
		cancelled, failed = executor.Cancel(ctx, *symbol, ids)
	}
	if failed > 0 {
		return fmt.Errorf("cancelled %d orders, %d failed", cancelled, failed)
	}
	return nil
}

func (a *app) runPrice(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("price", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading pair")
	fs.Parse(args)

	price, err := a.client.GetPrice(ctx, strings.ToUpper(*symbol))
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", strings.ToUpper(*symbol), price)
	return nil
}

func (a *app) runBalance(ctx context.Context) error {
	balances, err := a.client.GetBalance(ctx)
	if err != nil {
		return err
	}
	for _, b := range balances {
		if b.Balance.IsZero() {
			continue
		}
		fmt.Printf("%-8s balance=%s available=%s\n", b.Asset, b.Balance, b.AvailableBalance)
	}
	return nil
}

func (a *app) runOrders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading pair, empty for all")
	fs.Parse(args)

	orders, err := a.client.GetOpenOrders(ctx, strings.ToUpper(*symbol))
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Println("no open orders")
		return nil
	}
	for _, o := range orders {
		fmt.Printf("%-12d %-10s %-4s %-12s qty=%s price=%s status=%s\n",
			o.OrderID, o.Symbol, o.Side, o.Type, o.OrigQty, o.Price, o.Status)
	}
	return nil
}

func (a *app) runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	symbol := fs.String("symbol", "", "trading pair")
	fs.Parse(args)

	if *symbol == "" {
		return errors.New("symbol is required")
	}

	watcher := stream.NewMarkPriceWatcher(a.cfg.Binance.WSBaseURL, *symbol, func(e stream.MarkPriceEvent) {
		a.logger.Info().
			Str("symbol", e.Symbol).
			Str("mark_price", e.MarkPrice.String()).
			Str("funding_rate", e.FundingRate.String()).
			Msg("Mark price")
	}, a.logger)

	err := watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *app) runServe(ctx context.Context) error {
	server := api.NewServer(a.cfg.Server, a.client, a.logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func parseDecimal(value, name string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, fmt.Errorf("%s is required", name)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", name, value)
	}
	return d, nil
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
