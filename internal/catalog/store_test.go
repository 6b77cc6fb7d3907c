package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atelier-commerce/orderflow/internal/platform/dynamofake"
)

func newCatalogFake() *dynamofake.Fake {
	return dynamofake.New(map[string]string{"products": "sku"})
}

func testProduct() Product {
	return Product{
		SKU:      "BLZ-001",
		Name:     "Wool Blazer",
		Designer: "Maison K",
		Category: "outerwear",
		Price:    42000,
		IsActive: true,
		Stock: map[string]map[string]int{
			"M": {"black": 3, "navy": 1},
			"L": {"black": 2},
		},
	}
}

func TestCreate_ComputesTotalAndRejectsDuplicates(t *testing.T) {
	fake := newCatalogFake()
	store := NewStore(fake, "products")
	ctx := context.Background()

	if err := store.Create(ctx, testProduct()); err != nil {
		t.Fatalf("create: %v", err)
	}

	var got Product
	fake.Load("products", "BLZ-001", &got)
	if got.TotalStock != 6 {
		t.Fatalf("total_stock = %d, want 6", got.TotalStock)
	}

	err := store.Create(ctx, testProduct())
	if !errors.Is(err, ErrSKUExists) {
		t.Fatalf("expected ErrSKUExists, got %v", err)
	}
}

func TestGet_Missing(t *testing.T) {
	store := NewStore(newCatalogFake(), "products")
	p, err := store.Get(context.Background(), "NOPE")
	if err != nil || p != nil {
		t.Fatalf("missing product should be (nil, nil), got (%+v, %v)", p, err)
	}
}

func TestBatchGet_DedupsAndSkipsMissing(t *testing.T) {
	fake := newCatalogFake()
	fake.Seed("products", testProduct())
	store := NewStore(fake, "products")

	got, err := store.BatchGet(context.Background(), []string{"BLZ-001", "BLZ-001", "MISSING"})
	if err != nil {
		t.Fatalf("batch get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got["BLZ-001"] == nil || got["BLZ-001"].Name != "Wool Blazer" {
		t.Fatalf("unexpected result: %+v", got["BLZ-001"])
	}
}

func TestList_ActiveOnly(t *testing.T) {
	fake := newCatalogFake()
	fake.Seed("products", testProduct())
	inactive := testProduct()
	inactive.SKU = "GWN-099"
	inactive.IsActive = false
	fake.Seed("products", inactive)

	store := NewStore(fake, "products")
	got, err := store.List(context.Background(), true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].SKU != "BLZ-001" {
		t.Fatalf("expected only the active product, got %+v", got)
	}
}

func TestAdjustStock_DecrementGuard(t *testing.T) {
	fake := newCatalogFake()
	fake.Seed("products", func() Product {
		p := testProduct()
		p.TotalStock = p.ComputeTotalStock()
		return p
	}())
	store := NewStore(fake, "products")
	ctx := context.Background()

	// take 2 of 3
	if err := store.AdjustStock(ctx, "BLZ-001", "M", "black", -2); err != nil {
		t.Fatalf("adjust -2: %v", err)
	}

	var p Product
	fake.Load("products", "BLZ-001", &p)
	if p.Stock["M"]["black"] != 1 {
		t.Fatalf("bucket = %d, want 1", p.Stock["M"]["black"])
	}
	if p.TotalStock != 4 {
		t.Fatalf("total_stock = %d, want 4", p.TotalStock)
	}

	// 2 more than remain: the condition rejects and nothing changes
	err := store.AdjustStock(ctx, "BLZ-001", "M", "black", -2)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	fake.Load("products", "BLZ-001", &p)
	if p.Stock["M"]["black"] != 1 || p.TotalStock != 4 {
		t.Fatalf("stock changed after rejected decrement: %+v", p.Stock)
	}
}

func TestAdjustStock_RestockAndMissingSKU(t *testing.T) {
	fake := newCatalogFake()
	fake.Seed("products", testProduct())
	store := NewStore(fake, "products")
	ctx := context.Background()

	if err := store.AdjustStock(ctx, "BLZ-001", "M", "navy", 4); err != nil {
		t.Fatalf("restock: %v", err)
	}
	var p Product
	fake.Load("products", "BLZ-001", &p)
	if p.Stock["M"]["navy"] != 5 {
		t.Fatalf("bucket = %d, want 5", p.Stock["M"]["navy"])
	}

	err := store.AdjustStock(ctx, "NOPE", "M", "black", 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown sku, got %v", err)
	}
}

func TestDecrementTransactItem_Expression(t *testing.T) {
	store := NewStore(newCatalogFake(), "products")
	item := store.DecrementTransactItem("BLZ-001", "M", "black", 2, time.Now())

	if item.Update == nil {
		t.Fatal("expected an Update transact item")
	}
	if got := *item.Update.ConditionExpression; got != "attribute_exists(sku) AND stock.#sz.#co >= :q" {
		t.Fatalf("condition = %q", got)
	}
	if item.Update.ExpressionAttributeNames["#sz"] != "M" ||
		item.Update.ExpressionAttributeNames["#co"] != "black" {
		t.Fatalf("names = %v", item.Update.ExpressionAttributeNames)
	}
}

func TestProduct_Available(t *testing.T) {
	p := testProduct()
	if got := p.Available("M", "black"); got != 3 {
		t.Fatalf("available = %d, want 3", got)
	}
	if got := p.Available("M", "red"); got != 0 {
		t.Fatalf("unknown color should be 0, got %d", got)
	}
	if got := p.Available("XS", "black"); got != 0 {
		t.Fatalf("unknown size should be 0, got %d", got)
	}
}
