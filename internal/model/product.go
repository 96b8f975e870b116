package model

type ProductVariantOption struct {
	OptionID string `json:"optionId"`
	Value    string `json:"value"`
}

type ProductVariant struct {
	ID      string                 `json:"id"`
	Name    string                 `json:"name"`
	Options []ProductVariantOption `json:"options"`
}

type SkuVariant struct {
	VariantID string `json:"variantId"`
	Value     string `json:"value"`
	OptionID  string `json:"optionId"`
}

type ProductSku struct {
	ID          string       `json:"id"`
	SkuVariants []SkuVariant `json:"skuVariants"`
	Price       *float64     `json:"price,omitempty"`
	Quantity    *int         `json:"quantity,omitempty"`
	SkuNo       string       `json:"skuNo,omitempty"`
}

type Product struct {
	ID              string           `json:"id,omitempty"`
	Name            string           `json:"name"`
	Category        string           `json:"category"`
	Description     string           `json:"description,omitempty"`
	ProductVariants []ProductVariant `json:"productVariants"`
	ProductSkus     []ProductSku     `json:"productSkus"`
	CreatedAt       string           `json:"createdAt,omitempty"`
	UpdatedAt       string           `json:"updatedAt,omitempty"`
}

type CreateProductRequest struct {
	Name            string           `json:"name"`
	Category        string           `json:"category"`
	Description     string           `json:"description,omitempty"`
	ProductVariants []ProductVariant `json:"productVariants"`
	ProductSkus     []ProductSku     `json:"productSkus"`
}

type UpdateProductRequest = CreateProductRequest

type CreateProductResponse = Product

type GetProductsParams struct {
	Page       int    `json:"page,omitempty"`
	PageSize   int    `json:"pageSize,omitempty"`
	SearchTerm string `json:"searchTerm,omitempty"`
	Category   string `json:"category,omitempty"`
	Sort       string `json:"sort,omitempty"`
}

type GetProductsResponse struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

type Category struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	ParentID *string    `json:"parentId,omitempty"`
	Children []Category `json:"children,omitempty"`
}

type CategoryAttribute struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ValueType  string   `json:"valueType,omitempty"`
	IsRequired bool     `json:"isRequired"`
	Values     []string `json:"values,omitempty"`
}
