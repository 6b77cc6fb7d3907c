package catalog

import "time"

// Condition values for pre-owned pieces.
const (
	ConditionExcellent = "excellent"
	ConditionVeryGood  = "very_good"
	ConditionGood      = "good"
	ConditionFair      = "fair"
)

// Product is the item stored in the products DynamoDB table, keyed by SKU.
// Stock is a two-level map: size -> color -> quantity. TotalStock is derived
// from it and maintained inside the same update expressions that touch the
// buckets, so the two never drift.
type Product struct {
	SKU           string              `dynamodbav:"sku" json:"sku"` // PK
	Name          string              `dynamodbav:"name" json:"name"`
	Designer      string              `dynamodbav:"designer" json:"designer"`
	Description   string              `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Category      string              `dynamodbav:"category" json:"category"`
	Subcategory   string              `dynamodbav:"subcategory,omitempty" json:"subcategory,omitempty"`
	Gender        string              `dynamodbav:"gender,omitempty" json:"gender,omitempty"`
	Price         int64               `dynamodbav:"price" json:"price"`
	OriginalPrice int64               `dynamodbav:"original_price,omitempty" json:"original_price,omitempty"`
	Materials     []string            `dynamodbav:"materials,omitempty" json:"materials,omitempty"`
	Tags          []string            `dynamodbav:"tags,omitempty" json:"tags,omitempty"`
	IsActive      bool                `dynamodbav:"is_active" json:"is_active"`
	IsFeatured    bool                `dynamodbav:"is_featured" json:"is_featured"`
	IsOnSale      bool                `dynamodbav:"is_on_sale" json:"is_on_sale"`
	IsPreowned    bool                `dynamodbav:"is_preowned" json:"is_preowned"`
	Condition     string              `dynamodbav:"condition,omitempty" json:"condition,omitempty"`
	Images        []string            `dynamodbav:"images,omitempty" json:"images,omitempty"`
	Stock         map[string]map[string]int `dynamodbav:"stock" json:"stock"`
	TotalStock    int                 `dynamodbav:"total_stock" json:"total_stock"`
	CreatedAt     time.Time           `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `dynamodbav:"updated_at" json:"updated_at"`
}

// Available returns the quantity in a specific size/color bucket.
func (p *Product) Available(size, color string) int {
	if p.Stock == nil {
		return 0
	}
	colors, ok := p.Stock[size]
	if !ok {
		return 0
	}
	return colors[color]
}

// ComputeTotalStock sums every bucket. Used when creating a product so the
// stored total starts consistent with the map.
func (p *Product) ComputeTotalStock() int {
	total := 0
	for _, colors := range p.Stock {
		for _, qty := range colors {
			total += qty
		}
	}
	return total
}

// PrimaryImage returns the first image URL, or "" when none exist.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
