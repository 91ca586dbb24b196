package service

import (
	"context"
	"sync"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"
	"github.com/dujiao-next/storefront/internal/store"
)

// persistedCart cart-storage 持久化结构，合计不落盘，读取时重算
type persistedCart struct {
	Version int                   `json:"version"`
	Items   []models.CartLineItem `json:"items"`
}

// CartState 购物车状态容器
// 所有变更在同一把锁内完成内存更新与整体写回，读取返回副本
type CartState struct {
	store store.Store

	mu    sync.RWMutex
	items []models.CartLineItem
}

// NewCartState 创建购物车状态容器
func NewCartState(s store.Store) *CartState {
	return &CartState{store: s}
}

// Hydrate 从持久化存储恢复购物车
// 未确认的乐观行直接丢弃，等待与服务端对账
func (c *CartState) Hydrate(ctx context.Context) models.CartSnapshot {
	var blob persistedCart
	found, err := c.store.Load(ctx, constants.StorageKeyCart, &blob)
	if err != nil {
		logger.Warnw("cart_hydrate_failed", "error", err)
	}

	items := make([]models.CartLineItem, 0, len(blob.Items))
	if found && err == nil && blob.Version == constants.CartStorageVersion {
		items = normalizeLines(blob.Items, true)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
	logger.Debugw("cart_hydrated", "lines", len(items), "found", found)
	return models.NewCartSnapshot(c.items)
}

// AddItem 已有同商品行则累加数量，否则追加；数量封顶 MaxCartLineQuantity
func (c *CartState) AddItem(ctx context.Context, item models.CartLineItem) models.CartSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item.ProductID == 0 || item.Quantity <= 0 {
		return models.NewCartSnapshot(c.items)
	}
	if idx := c.indexOf(item.ProductID); idx >= 0 {
		c.items[idx].Quantity = addQuantity(c.items[idx].Quantity, item.Quantity)
	} else {
		item.Quantity = clampQuantity(item.Quantity)
		c.items = append(c.items, item)
	}
	return c.commit(ctx)
}

// UpdateItem 整行替换；数量 <= 0 视为删除，不存在时不做处理
func (c *CartState) UpdateItem(ctx context.Context, item models.CartLineItem) models.CartSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(item.ProductID)
	if idx < 0 {
		return models.NewCartSnapshot(c.items)
	}
	if item.Quantity <= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
	} else {
		item.Quantity = clampQuantity(item.Quantity)
		c.items[idx] = item
	}
	return c.commit(ctx)
}

// RemoveItem 删除指定商品行
func (c *CartState) RemoveItem(ctx context.Context, productID uint) models.CartSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(productID)
	if idx < 0 {
		return models.NewCartSnapshot(c.items)
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	return c.commit(ctx)
}

// SetCart 整体替换为服务端购物车，不做合并
func (c *CartState) SetCart(ctx context.Context, items []models.CartLineItem) models.CartSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = normalizeLines(items, false)
	return c.commit(ctx)
}

// Clear 清空购物车
func (c *CartState) Clear(ctx context.Context) models.CartSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	return c.commit(ctx)
}

// ReplacePending 用服务端确认的行替换乐观行
// 只有当前行仍持有同一个临时 ID 时才替换
func (c *CartState) ReplacePending(ctx context.Context, tempID string, line models.CartLineItem) (models.CartSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(line.ProductID)
	if idx < 0 {
		return models.NewCartSnapshot(c.items), false
	}
	if id, ok := c.items[idx].PendingID(); !ok || id != tempID {
		return models.NewCartSnapshot(c.items), false
	}
	c.items[idx] = line
	return c.commit(ctx), true
}

// DropPending 回滚乐观行
func (c *CartState) DropPending(ctx context.Context, productID uint, tempID string) (models.CartSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.indexOf(productID)
	if idx < 0 {
		return models.NewCartSnapshot(c.items), false
	}
	if id, ok := c.items[idx].PendingID(); !ok || id != tempID {
		return models.NewCartSnapshot(c.items), false
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	return c.commit(ctx), true
}

// Snapshot 当前快照
func (c *CartState) Snapshot() models.CartSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.NewCartSnapshot(c.items)
}

// Items 当前行副本
func (c *CartState) Items() []models.CartLineItem {
	return c.Snapshot().Items
}

// Total 当前合计
func (c *CartState) Total() models.Money {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.SumLines(c.items)
}

// HasServerLines 是否存在已关联服务端的行
func (c *CartState) HasServerLines() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if _, ok := item.ServerLineID(); ok {
			return true
		}
	}
	return false
}

// Line 按商品查询行
func (c *CartState) Line(productID uint) (models.CartLineItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx := c.indexOf(productID)
	if idx < 0 {
		return models.CartLineItem{}, false
	}
	return c.items[idx], true
}

func (c *CartState) indexOf(productID uint) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// commit 写回存储并返回快照；调用方必须持有写锁
func (c *CartState) commit(ctx context.Context) models.CartSnapshot {
	snapshot := models.NewCartSnapshot(c.items)
	blob := persistedCart{
		Version: constants.CartStorageVersion,
		Items:   snapshot.Items,
	}
	if err := c.store.Save(ctx, constants.StorageKeyCart, blob); err != nil {
		logger.Warnw("cart_persist_failed", "error", err, "lines", len(blob.Items))
	}
	return snapshot
}

// normalizeLines 去掉非法行并按商品去重（保留首次出现的位置，数量以最后一次为准）
func normalizeLines(items []models.CartLineItem, dropPending bool) []models.CartLineItem {
	result := make([]models.CartLineItem, 0, len(items))
	index := make(map[uint]int, len(items))
	for _, item := range items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			continue
		}
		if _, pending := item.Ref.(models.Pending); pending && dropPending {
			continue
		}
		item.Quantity = clampQuantity(item.Quantity)
		if idx, ok := index[item.ProductID]; ok {
			result[idx] = item
			continue
		}
		index[item.ProductID] = len(result)
		result = append(result, item)
	}
	return result
}

func clampQuantity(quantity int) int {
	if quantity > constants.MaxCartLineQuantity {
		return constants.MaxCartLineQuantity
	}
	return quantity
}

// addQuantity 饱和累加，两个参数都应为正数
func addQuantity(current, delta int) int {
	if delta > constants.MaxCartLineQuantity-current {
		return constants.MaxCartLineQuantity
	}
	return current + delta
}
