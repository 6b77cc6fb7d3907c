package cache

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("k1", []byte("v1"))
	got, found := c.Get("k1")
	if !found || string(got) != "v1" {
		t.Fatalf("get = %q, %v; want v1, true", got, found)
	}

	if _, found := c.Get("absent"); found {
		t.Fatal("expected miss for absent key")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	defer c.Close()

	c.Set("k1", []byte("v1"))
	time.Sleep(25 * time.Millisecond)

	if _, found := c.Get("k1"); found {
		t.Fatal("expected expired entry to miss")
	}
}

func TestCache_DeleteByPrefix(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("products:sku:A", []byte("a"))
	c.Set("products:sku:B", []byte("b"))
	c.Set("products:list:active", []byte("l"))

	c.DeleteByPrefix("products:sku:")

	if _, found := c.Get("products:sku:A"); found {
		t.Fatal("prefixed key A should be gone")
	}
	if _, found := c.Get("products:sku:B"); found {
		t.Fatal("prefixed key B should be gone")
	}
	if _, found := c.Get("products:list:active"); !found {
		t.Fatal("unrelated key should survive")
	}
	if c.Size() != 1 {
		t.Fatalf("size = %d, want 1", c.Size())
	}
}

func TestCache_MarshalUnmarshal(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	type payload struct {
		Name  string `json:"name"`
		Price int64  `json:"price"`
	}
	if err := c.Marshal("p", payload{Name: "Silk Scarf", Price: 12500}); err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out payload
	found, err := c.Unmarshal("p", &out)
	if err != nil || !found {
		t.Fatalf("unmarshal: found=%v err=%v", found, err)
	}
	if out.Name != "Silk Scarf" || out.Price != 12500 {
		t.Fatalf("round trip mismatch: %+v", out)
	}

	found, err = c.Unmarshal("missing", &out)
	if err != nil || found {
		t.Fatalf("miss should be (false, nil); got (%v, %v)", found, err)
	}
}
