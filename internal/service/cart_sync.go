package service

import (
	"context"
	"fmt"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/logger"
	"github.com/dujiao-next/storefront/internal/models"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// wideWeight 整车操作占用的权重，单商品操作占 1
const wideWeight = 1 << 16

// RemoteCart 远端购物车接口
type RemoteCart interface {
	List(ctx context.Context) ([]models.CartLineItem, error)
	Add(ctx context.Context, productID uint, quantity int) (string, error)
	Update(ctx context.Context, lineID string, quantity int) error
	Remove(ctx context.Context, lineID string) error
	Clear(ctx context.Context) error
}

// SessionChecker 登录态查询
type SessionChecker interface {
	IsLoggedIn() bool
}

// CartSyncService 购物车同步服务
// 登录时先调用远端再落本地（新商品乐观插入），游客只改本地
type CartSyncService struct {
	cart    *CartState
	session SessionChecker
	remote  RemoteCart
	notices *NoticeService

	locks *keyedLock
	// 清空、刷新与登录/登出涉及整车，与单商品操作互斥
	wide    *semaphore.Weighted
	refresh singleflight.Group
}

// NewCartSyncService 创建购物车同步服务
func NewCartSyncService(cart *CartState, session SessionChecker, remote RemoteCart, notices *NoticeService) *CartSyncService {
	return &CartSyncService{
		cart:    cart,
		session: session,
		remote:  remote,
		notices: notices,
		locks:   newKeyedLock(),
		wide:    semaphore.NewWeighted(wideWeight),
	}
}

// AddToCart 加购，同商品累加数量
func (s *CartSyncService) AddToCart(ctx context.Context, item models.CartLineItem) (models.CartSnapshot, error) {
	if item.ProductID == 0 || item.Quantity <= 0 || item.Quantity > constants.MaxCartLineQuantity {
		return s.cart.Snapshot(), ErrInvalidCartItem
	}
	item.Ref = nil

	unlock, err := s.lockProduct(ctx, item.ProductID)
	if err != nil {
		return s.cart.Snapshot(), err
	}
	defer unlock()

	if !s.online() {
		return s.cart.AddItem(ctx, item), nil
	}

	existing, ok := s.cart.Line(item.ProductID)
	if !ok {
		return s.addOptimistic(ctx, item)
	}
	existing.Quantity = addQuantity(existing.Quantity, item.Quantity)
	return s.pushQuantity(ctx, existing, constants.NoticeCartAddFailed)
}

// Increase 数量 +1
func (s *CartSyncService) Increase(ctx context.Context, productID uint) (models.CartSnapshot, error) {
	return s.adjust(ctx, productID, 1)
}

// Decrease 数量 -1，减到 0 时删除
func (s *CartSyncService) Decrease(ctx context.Context, productID uint) (models.CartSnapshot, error) {
	return s.adjust(ctx, productID, -1)
}

// SetQuantity 设置数量，<= 0 时删除
func (s *CartSyncService) SetQuantity(ctx context.Context, productID uint, quantity int) (models.CartSnapshot, error) {
	if quantity > constants.MaxCartLineQuantity {
		return s.cart.Snapshot(), ErrInvalidCartItem
	}
	unlock, err := s.lockProduct(ctx, productID)
	if err != nil {
		return s.cart.Snapshot(), err
	}
	defer unlock()

	line, ok := s.cart.Line(productID)
	if !ok {
		return s.cart.Snapshot(), ErrCartLineNotFound
	}
	if quantity <= 0 {
		return s.removeLocked(ctx, line)
	}
	line.Quantity = quantity
	return s.pushQuantity(ctx, line, constants.NoticeCartUpdateFailed)
}

// RemoveFromCart 删除商品行，不存在时不做处理
func (s *CartSyncService) RemoveFromCart(ctx context.Context, productID uint) (models.CartSnapshot, error) {
	unlock, err := s.lockProduct(ctx, productID)
	if err != nil {
		return s.cart.Snapshot(), err
	}
	defer unlock()

	line, ok := s.cart.Line(productID)
	if !ok {
		return s.cart.Snapshot(), nil
	}
	return s.removeLocked(ctx, line)
}

// ClearCart 清空购物车（下单完成或用户主动清空）
func (s *CartSyncService) ClearCart(ctx context.Context) (models.CartSnapshot, error) {
	unlock, err := s.lockWide(ctx)
	if err != nil {
		return s.cart.Snapshot(), err
	}
	defer unlock()

	if s.online() {
		if err := s.remote.Clear(ctx); err != nil {
			return s.fail(constants.NoticeCartClearFailed, "failed to clear cart", err)
		}
	}
	return s.cart.Clear(ctx), nil
}

// Refresh 用远端购物车覆盖本地，并发调用合并为一次
func (s *CartSyncService) Refresh(ctx context.Context) (models.CartSnapshot, error) {
	if !s.online() {
		return s.cart.Snapshot(), nil
	}
	// 合并后的调用不随单个请求取消
	shared := context.WithoutCancel(ctx)
	result, err, _ := s.refresh.Do("refresh", func() (interface{}, error) {
		unlock, err := s.lockWide(shared)
		if err != nil {
			return nil, err
		}
		defer unlock()
		// 等锁期间可能已登出
		if !s.online() {
			return s.cart.Snapshot(), nil
		}
		items, err := s.remote.List(shared)
		if err != nil {
			return nil, err
		}
		return s.cart.SetCart(shared, items), nil
	})
	if err != nil {
		return s.fail(constants.NoticeCartSyncFailed, "failed to refresh cart", err)
	}
	return result.(models.CartSnapshot), nil
}

func (s *CartSyncService) adjust(ctx context.Context, productID uint, delta int) (models.CartSnapshot, error) {
	unlock, err := s.lockProduct(ctx, productID)
	if err != nil {
		return s.cart.Snapshot(), err
	}
	defer unlock()

	line, ok := s.cart.Line(productID)
	if !ok {
		return s.cart.Snapshot(), ErrCartLineNotFound
	}
	line.Quantity += delta
	if line.Quantity > constants.MaxCartLineQuantity {
		return s.cart.Snapshot(), ErrInvalidCartItem
	}
	if line.Quantity <= 0 {
		return s.removeLocked(ctx, line)
	}
	return s.pushQuantity(ctx, line, constants.NoticeCartUpdateFailed)
}

// addOptimistic 先插入 Pending 行，远端确认后替换，失败回滚
func (s *CartSyncService) addOptimistic(ctx context.Context, item models.CartLineItem) (models.CartSnapshot, error) {
	tempID := uuid.NewString()
	item.Ref = models.Pending{TempID: tempID}
	s.cart.AddItem(ctx, item)

	lineID, err := s.remote.Add(ctx, item.ProductID, item.Quantity)
	if err != nil {
		s.cart.DropPending(ctx, item.ProductID, tempID)
		return s.fail(constants.NoticeCartAddFailed, "failed to add item to cart", err)
	}

	confirmed := item
	confirmed.Ref = models.Confirmed{ServerLineID: lineID}
	snapshot, replaced := s.cart.ReplacePending(ctx, tempID, confirmed)
	if !replaced {
		logger.Warnw("cart_pending_line_vanished", "product_id", item.ProductID, "temp_id", tempID)
	}
	return snapshot, nil
}

// pushQuantity 将目标数量写到远端后再更新本地
// 登录后仍未关联服务端的本地行按新增处理
func (s *CartSyncService) pushQuantity(ctx context.Context, line models.CartLineItem, code string) (models.CartSnapshot, error) {
	if !s.online() {
		return s.cart.UpdateItem(ctx, line), nil
	}
	if lineID, ok := line.ServerLineID(); ok {
		if err := s.remote.Update(ctx, lineID, line.Quantity); err != nil {
			return s.fail(code, "failed to update cart item", err)
		}
		return s.cart.UpdateItem(ctx, line), nil
	}

	lineID, err := s.remote.Add(ctx, line.ProductID, line.Quantity)
	if err != nil {
		return s.fail(code, "failed to update cart item", err)
	}
	line.Ref = models.Confirmed{ServerLineID: lineID}
	return s.cart.UpdateItem(ctx, line), nil
}

func (s *CartSyncService) removeLocked(ctx context.Context, line models.CartLineItem) (models.CartSnapshot, error) {
	if lineID, ok := line.ServerLineID(); ok && s.online() {
		if err := s.remote.Remove(ctx, lineID); err != nil {
			return s.fail(constants.NoticeCartRemoveFailed, "failed to remove cart item", err)
		}
	}
	return s.cart.RemoveItem(ctx, line.ProductID), nil
}

func (s *CartSyncService) fail(code, message string, cause error) (models.CartSnapshot, error) {
	logger.Warnw("cart_remote_mutation_failed", "code", code, "error", cause)
	if s.notices != nil {
		s.notices.Push(constants.NoticeLevelError, code, message)
	}
	return s.cart.Snapshot(), fmt.Errorf("%w: %w", ErrRemoteMutation, cause)
}

// RunExclusive 在整车锁内执行 fn，登录与登出借此与进行中的同步互斥
func (s *CartSyncService) RunExclusive(ctx context.Context, fn func()) error {
	unlock, err := s.lockWide(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	fn()
	return nil
}

func (s *CartSyncService) lockWide(ctx context.Context) (func(), error) {
	if err := s.wide.Acquire(ctx, wideWeight); err != nil {
		return nil, err
	}
	return func() { s.wide.Release(wideWeight) }, nil
}

func (s *CartSyncService) lockProduct(ctx context.Context, productID uint) (func(), error) {
	if err := s.wide.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	unlock, err := s.locks.Lock(ctx, productID)
	if err != nil {
		s.wide.Release(1)
		return nil, err
	}
	return func() {
		unlock()
		s.wide.Release(1)
	}, nil
}

func (s *CartSyncService) online() bool {
	return s.remote != nil && s.session != nil && s.session.IsLoggedIn()
}
