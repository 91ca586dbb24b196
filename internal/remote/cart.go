package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/dujiao-next/storefront/internal/models"
)

// CartClient 远端购物车
// 主站购物车按商品唯一，服务端行 ID 即商品 ID
type CartClient struct {
	client *Client
	locale string
}

// NewCartClient 创建购物车客户端
func NewCartClient(client *Client, locale string) *CartClient {
	return &CartClient{client: client, locale: locale}
}

type cartProduct struct {
	ID     uint            `json:"id"`
	Slug   string          `json:"slug"`
	Title  json.RawMessage `json:"title"`
	Images []string        `json:"images"`
}

type cartItem struct {
	ProductID uint         `json:"product_id"`
	Quantity  int          `json:"quantity"`
	UnitPrice models.Money `json:"unit_price"`
	Product   cartProduct  `json:"product"`
}

type cartList struct {
	Items []cartItem `json:"items"`
}

type upsertCartItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// List 获取远端购物车
func (c *CartClient) List(ctx context.Context) ([]models.CartLineItem, error) {
	var payload cartList
	if err := c.client.Do(ctx, http.MethodGet, "/cart", nil, &payload); err != nil {
		return nil, err
	}
	items := make([]models.CartLineItem, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			continue
		}
		image := ""
		if len(item.Product.Images) > 0 {
			image = item.Product.Images[0]
		}
		items = append(items, models.CartLineItem{
			ProductID: item.ProductID,
			Name:      pickTitle(item.Product.Title, c.locale, item.Product.Slug),
			UnitPrice: item.UnitPrice,
			ImageRef:  image,
			Quantity:  item.Quantity,
			Ref:       models.Confirmed{ServerLineID: lineIDFor(item.ProductID)},
		})
	}
	return items, nil
}

// Add 写入商品行（数量为绝对值），返回服务端行 ID
func (c *CartClient) Add(ctx context.Context, productID uint, quantity int) (string, error) {
	req := upsertCartItem{ProductID: productID, Quantity: quantity}
	if err := c.client.Do(ctx, http.MethodPost, "/cart/items", req, nil); err != nil {
		return "", err
	}
	return lineIDFor(productID), nil
}

// Update 更新服务端行数量
func (c *CartClient) Update(ctx context.Context, lineID string, quantity int) error {
	productID, err := parseLineID(lineID)
	if err != nil {
		return err
	}
	req := upsertCartItem{ProductID: productID, Quantity: quantity}
	return c.client.Do(ctx, http.MethodPost, "/cart/items", req, nil)
}

// Remove 删除服务端行
func (c *CartClient) Remove(ctx context.Context, lineID string) error {
	productID, err := parseLineID(lineID)
	if err != nil {
		return err
	}
	return c.client.Do(ctx, http.MethodDelete, "/cart/items/"+lineIDFor(productID), nil, nil)
}

// Clear 逐行删除（主站没有整车清空接口）
func (c *CartClient) Clear(ctx context.Context) error {
	items, err := c.List(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := c.client.Do(ctx, http.MethodDelete, "/cart/items/"+lineIDFor(item.ProductID), nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func lineIDFor(productID uint) string {
	return strconv.FormatUint(uint64(productID), 10)
}

func parseLineID(lineID string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(lineID), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid server line id %q", lineID)
	}
	return uint(id), nil
}

// pickTitle 多语言标题按 locale > zh-CN > en-US > 任意 取值
func pickTitle(raw json.RawMessage, locale, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		if plain == "" {
			return fallback
		}
		return plain
	}
	var titles map[string]string
	if err := json.Unmarshal(raw, &titles); err != nil || len(titles) == 0 {
		return fallback
	}
	for _, key := range []string{locale, "zh-CN", "en-US"} {
		if value := strings.TrimSpace(titles[key]); value != "" {
			return value
		}
	}
	keys := make([]string, 0, len(titles))
	for key := range titles {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if value := strings.TrimSpace(titles[key]); value != "" {
			return value
		}
	}
	return fallback
}
