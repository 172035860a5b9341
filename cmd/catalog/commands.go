package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fekuna/omnipos-catalog-service/internal/category/tree"
	"github.com/fekuna/omnipos-catalog-service/internal/pricing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog tables if they do not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.migrate(ctx)
		},
	}
}

func newReportCmd() *cobra.Command {
	var skipPrices bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Log every category with its level and every product with its price",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.reportCategories(ctx); err != nil {
				return err
			}
			if skipPrices {
				return nil
			}
			return a.reportPrices(ctx)
		},
	}
	cmd.Flags().BoolVar(&skipPrices, "skip-prices", false, "only report the category tree")
	return cmd
}

func (a *app) reportCategories(ctx context.Context) error {
	categories, count, err := a.categories.ListCategories(ctx, nil)
	if err != nil {
		return err
	}
	t := tree.New(a.maxLevel, categories...)

	for _, c := range categories {
		level, err := t.NestingLevel(c.ID)
		if err != nil {
			a.logger.Error("broken category", zap.String("category_id", c.ID), zap.Error(err))
			continue
		}
		descendants, _ := t.Descendants(c.ID)
		a.logger.Info("category",
			zap.String("category_id", c.ID),
			zap.String("name", c.Name),
			zap.Int("level", level),
			zap.Int("descendants", len(descendants)),
		)
	}
	a.logger.Info("categories reported", zap.Int("count", count))
	return nil
}

func (a *app) reportPrices(ctx context.Context) error {
	products, count, err := a.products.ListProducts(ctx, nil)
	if err != nil {
		return err
	}
	for _, p := range products {
		price, err := a.products.GetPrice(ctx, p.ID)
		if err != nil {
			a.logger.Error("cannot price product", zap.String("product_id", p.ID), zap.Error(err))
			continue
		}
		fields := []zap.Field{
			zap.String("product_id", p.ID),
			zap.String("title", p.Title),
			zap.String("kind", string(p.Kind)),
			zap.String("price", pricing.Display(price)),
		}
		if p.IsBundle() {
			fields = append(fields,
				zap.String("pricing_rule", pricing.Rule(p.PricingRule).Label()),
				zap.Int("members", len(p.MemberIDs)),
			)
		}
		a.logger.Info("product", fields...)
	}
	a.logger.Info("products reported", zap.Int("count", count))
	return nil
}
