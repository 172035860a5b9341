package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fekuna/omnipos-catalog-service/internal/broker"
	"github.com/fekuna/omnipos-catalog-service/internal/cache"
	catdto "github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/pricing"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/product/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	repo       *mockProductRepository
	dispatcher *mockEventDispatcher
	prices     *cache.MemoryPriceCache
	uc         product.UseCase
}

func newFixture(t *testing.T, policy pricing.Policy) *fixture {
	f := &fixture{
		repo:       &mockProductRepository{store: make(map[string]*model.Product)},
		dispatcher: &mockEventDispatcher{},
		prices:     cache.NewMemoryPriceCache(),
	}
	categories := &mockCategoryRepository{ids: map[string]bool{"cat": true}}
	f.uc = usecase.NewProductUseCase(f.repo, categories, pricing.NewEngine(policy), f.prices, f.dispatcher,
		logger.FromZap(zaptest.NewLogger(t)))
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) simple(t *testing.T, price string) string {
	t.Helper()
	p, err := f.uc.CreateProduct(context.Background(), &dto.CreateProductInput{
		CategoryID: "cat", Title: "item " + price, Price: dec(price),
	})
	require.NoError(t, err)
	return p.ID
}

func (f *fixture) bundle(t *testing.T, rule pricing.Rule, members ...string) string {
	t.Helper()
	b, err := f.uc.CreateBundle(context.Background(), &dto.CreateBundleInput{
		CategoryID: "cat", Title: "bundle", PricingRule: string(rule), MemberIDs: members,
	})
	require.NoError(t, err)
	return b.ID
}

func requirePrice(t *testing.T, f *fixture, id, want string) {
	t.Helper()
	got, err := f.uc.GetPrice(context.Background(), id)
	require.NoError(t, err)
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestProductUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateProduct_Success", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		p, err := f.uc.CreateProduct(ctx, &dto.CreateProductInput{CategoryID: "cat", Title: "Laptop", Price: dec("1200.50")})
		require.NoError(t, err)
		require.Equal(t, model.ProductKindSimple, p.Kind)
		require.Contains(t, f.repo.store, p.ID)

		require.Len(t, f.dispatcher.events, 1)
		require.Equal(t, broker.EventProductCreated, f.dispatcher.events[0].EventType)

		requirePrice(t, f, p.ID, "1200.50")
	})

	t.Run("CreateProduct_Validation", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		cases := []struct {
			name  string
			input dto.CreateProductInput
			err   error
		}{
			{"EmptyTitle", dto.CreateProductInput{CategoryID: "cat", Title: " ", Price: dec("1")}, model.ErrTitleRequired},
			{"NegativePrice", dto.CreateProductInput{CategoryID: "cat", Title: "x", Price: dec("-0.01")}, model.ErrPriceInvalid},
			{"ThreeDecimals", dto.CreateProductInput{CategoryID: "cat", Title: "x", Price: dec("1.005")}, model.ErrPriceInvalid},
			{"TooLarge", dto.CreateProductInput{CategoryID: "cat", Title: "x", Price: dec("10000000000")}, model.ErrPriceInvalid},
			{"UnknownCategory", dto.CreateProductInput{CategoryID: "ghost", Title: "x", Price: dec("1")}, model.ErrCategoryNotFound},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := f.uc.CreateProduct(ctx, &tc.input)
				require.ErrorIs(t, err, tc.err)
			})
		}
		require.Empty(t, f.repo.store)
		require.Empty(t, f.dispatcher.events)
	})

	t.Run("CreateProduct_AcceptsLargeRealisticPrice", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		id := f.simple(t, "9999999999.99")
		requirePrice(t, f, id, "9999999999.99")
	})

	t.Run("GetPrice_BundleRules", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		p10, p20, p30 := f.simple(t, "10.00"), f.simple(t, "20.00"), f.simple(t, "30.00")

		requirePrice(t, f, f.bundle(t, pricing.RuleDiscount10, p10, p20, p30), "54.00")
		requirePrice(t, f, f.bundle(t, pricing.RuleDiscount15, p10, p20, p30), "51.00")

		five := []string{f.simple(t, "25"), f.simple(t, "5"), f.simple(t, "15"), f.simple(t, "20"), f.simple(t, "10")}
		requirePrice(t, f, f.bundle(t, pricing.RuleFreeEvery5th, five...), "70")

		requirePrice(t, f, f.bundle(t, pricing.RuleFreeEvery5th), "0")
	})

	t.Run("GetPrice_NestedBundle", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		inner := f.bundle(t, pricing.RuleDiscount10, f.simple(t, "10"), f.simple(t, "20")) // 27
		outer := f.bundle(t, pricing.RuleDiscount15, inner, f.simple(t, "13"))

		requirePrice(t, f, outer, "34")
	})

	t.Run("GetPrice_ServedFromCache", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		b := f.bundle(t, pricing.RuleDiscount10, f.simple(t, "100"))

		requirePrice(t, f, b, "90")
		calls := f.repo.findByIDCalls
		requirePrice(t, f, b, "90")
		require.Equal(t, calls, f.repo.findByIDCalls)
		require.Equal(t, 1, f.prices.Len())
	})

	t.Run("GetPrice_NotFound", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		_, err := f.uc.GetPrice(ctx, "missing")
		require.ErrorIs(t, err, model.ErrProductNotFound)
	})

	t.Run("GetPrice_UnknownStoredRule", func(t *testing.T) {
		for _, tc := range []struct {
			policy pricing.Policy
			want   string
		}{
			{pricing.PolicyStrict, ""},
			{pricing.PolicyLenient, "40"},
		} {
			f := newFixture(t, tc.policy)
			b := f.bundle(t, pricing.RuleDiscount10, f.simple(t, "40"))
			f.repo.store[b].PricingRule = "half_off"

			got, err := f.uc.GetPrice(ctx, b)
			if tc.want == "" {
				var cfgErr *pricing.ConfigurationError
				require.ErrorAs(t, err, &cfgErr)
				continue
			}
			require.NoError(t, err)
			require.True(t, dec(tc.want).Equal(got))
		}
	})

	t.Run("CreateBundle_Validation", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)

		_, err := f.uc.CreateBundle(ctx, &dto.CreateBundleInput{CategoryID: "cat", Title: "b", PricingRule: "half_off"})
		var cfgErr *pricing.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)

		_, err = f.uc.CreateBundle(ctx, &dto.CreateBundleInput{CategoryID: "cat", Title: "b", MemberIDs: []string{"ghost"}})
		require.ErrorIs(t, err, model.ErrProductNotFound)

		_, err = f.uc.CreateBundle(ctx, &dto.CreateBundleInput{CategoryID: "cat", Title: ""})
		require.ErrorIs(t, err, model.ErrTitleRequired)

		require.Empty(t, f.repo.store)
	})

	t.Run("CreateBundle_DefaultRuleAndDedupe", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		p := f.simple(t, "10")

		b, err := f.uc.CreateBundle(ctx, &dto.CreateBundleInput{CategoryID: "cat", Title: "b", MemberIDs: []string{p, p, ""}})
		require.NoError(t, err)
		require.Equal(t, string(pricing.DefaultRule), b.PricingRule)
		require.Equal(t, []string{p}, b.MemberIDs)
		require.True(t, b.Price.IsZero())
	})

	t.Run("SetBundleMembers_RepricesBundle", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		p10, p20 := f.simple(t, "10"), f.simple(t, "20")
		b := f.bundle(t, pricing.RuleDiscount10, p10)
		requirePrice(t, f, b, "9")
		f.dispatcher.Clear()

		updated, err := f.uc.SetBundleMembers(ctx, &dto.SetBundleMembersInput{BundleID: b, MemberIDs: []string{p10, p20}})
		require.NoError(t, err)
		require.Equal(t, []string{p10, p20}, updated.MemberIDs)
		require.Zero(t, f.prices.Len())

		requirePrice(t, f, b, "27")
		require.Equal(t, broker.EventBundleMembersChanged, f.dispatcher.events[0].EventType)
	})

	t.Run("SetBundleMembers_RejectsSelfInclusion", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		b := f.bundle(t, pricing.RuleDiscount10, f.simple(t, "10"))

		_, err := f.uc.SetBundleMembers(ctx, &dto.SetBundleMembersInput{BundleID: b, MemberIDs: []string{b}})
		require.ErrorIs(t, err, model.ErrBundleCycle)
	})

	t.Run("SetBundleMembers_RejectsIndirectCycle", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		p := f.simple(t, "10")
		outer := f.bundle(t, pricing.RuleDiscount10, p)
		middle := f.bundle(t, pricing.RuleDiscount10, outer)

		_, err := f.uc.SetBundleMembers(ctx, &dto.SetBundleMembersInput{BundleID: outer, MemberIDs: []string{p, middle}})
		require.ErrorIs(t, err, model.ErrBundleCycle)
		require.Equal(t, []string{p}, f.repo.store[outer].MemberIDs)
	})

	t.Run("SetBundleMembers_NotABundle", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		p := f.simple(t, "10")
		_, err := f.uc.SetBundleMembers(ctx, &dto.SetBundleMembersInput{BundleID: p})
		require.ErrorIs(t, err, model.ErrNotABundle)
	})

	t.Run("DeleteProduct_RepricesBundles", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		p10, p20 := f.simple(t, "10"), f.simple(t, "20")
		b := f.bundle(t, pricing.RuleDiscount10, p10, p20)
		requirePrice(t, f, b, "27")
		f.dispatcher.Clear()

		require.NoError(t, f.uc.DeleteProduct(ctx, p20))
		requirePrice(t, f, b, "9")
		require.Equal(t, broker.EventProductDeleted, f.dispatcher.events[0].EventType)

		require.ErrorIs(t, f.uc.DeleteProduct(ctx, p20), model.ErrProductNotFound)
	})

	t.Run("DispatchFailureDoesNotFailCreate", func(t *testing.T) {
		f := newFixture(t, pricing.PolicyStrict)
		f.dispatcher.err = errors.New("broker down")
		f.simple(t, "1")
		require.Len(t, f.repo.store, 1)
	})
}

var _ product.Repository = (*mockProductRepository)(nil)

type mockProductRepository struct {
	store         map[string]*model.Product
	findByIDCalls int
}

func clone(p *model.Product) model.Product {
	c := *p
	if p.MemberIDs != nil {
		c.MemberIDs = append([]string{}, p.MemberIDs...)
	}
	return c
}

func (m *mockProductRepository) Create(_ context.Context, p *model.Product) error {
	c := clone(p)
	m.store[p.ID] = &c
	return nil
}

func (m *mockProductRepository) FindByID(_ context.Context, id string) (*model.Product, error) {
	m.findByIDCalls++
	p, ok := m.store[id]
	if !ok {
		return nil, model.ErrProductNotFound
	}
	c := clone(p)
	return &c, nil
}

func (m *mockProductRepository) FindByIDs(_ context.Context, ids []string) ([]model.Product, error) {
	var out []model.Product
	for _, id := range ids {
		if p, ok := m.store[id]; ok {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (m *mockProductRepository) FindAll(_ context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	var out []model.Product
	for _, p := range m.store {
		if f != nil && f.Kind != "" && string(p.Kind) != f.Kind {
			continue
		}
		out = append(out, clone(p))
	}
	return out, len(out), nil
}

func (m *mockProductRepository) ReplaceMembers(_ context.Context, bundleID string, memberIDs []string) error {
	p, ok := m.store[bundleID]
	if !ok {
		return model.ErrProductNotFound
	}
	p.MemberIDs = append([]string{}, memberIDs...)
	return nil
}

func (m *mockProductRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.store[id]; !ok {
		return model.ErrProductNotFound
	}
	delete(m.store, id)
	for _, p := range m.store {
		kept := p.MemberIDs[:0]
		for _, memberID := range p.MemberIDs {
			if memberID != id {
				kept = append(kept, memberID)
			}
		}
		p.MemberIDs = kept
	}
	return nil
}

type mockCategoryRepository struct {
	ids map[string]bool
}

func (m *mockCategoryRepository) Create(context.Context, *model.Category) error { return nil }

func (m *mockCategoryRepository) FindByID(_ context.Context, id string) (*model.Category, error) {
	if !m.ids[id] {
		return nil, model.ErrCategoryNotFound
	}
	return &model.Category{BaseModel: model.BaseModel{ID: id}, Name: id}, nil
}

func (m *mockCategoryRepository) FindAll(context.Context, *catdto.CategoryFilters) ([]model.Category, int, error) {
	return nil, 0, nil
}

func (m *mockCategoryRepository) Update(context.Context, *model.Category) error { return nil }

func (m *mockCategoryRepository) Delete(context.Context, string) error { return nil }

type mockEventDispatcher struct {
	events []broker.Event
	err    error
}

func (m *mockEventDispatcher) Dispatch(_ context.Context, e broker.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockEventDispatcher) Clear() {
	m.events = nil
}
