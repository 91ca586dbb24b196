package public

import (
	"github.com/dujiao-next/storefront/internal/http/response"
	"github.com/dujiao-next/storefront/internal/models"

	"github.com/gin-gonic/gin"
)

// CartItemRequest 加购请求（商品展示信息由前端在加购时带入）
type CartItemRequest struct {
	ProductID uint         `json:"product_id" binding:"required"`
	Name      string       `json:"name"`
	UnitPrice models.Money `json:"unit_price"`
	ImageRef  string       `json:"image_ref"`
	Quantity  int          `json:"quantity" binding:"required"`
}

// CartQuantityRequest 设置数量请求
type CartQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// CartResponse 购物车响应
type CartResponse struct {
	Items []models.CartLineItem `json:"items"`
	Total models.Money          `json:"total"`
	Count int                   `json:"count"`
}

func newCartResponse(snapshot models.CartSnapshot) CartResponse {
	items := snapshot.Items
	if items == nil {
		items = []models.CartLineItem{}
	}
	return CartResponse{Items: items, Total: snapshot.Total, Count: snapshot.Count()}
}

func (h *Handler) respondCart(c *gin.Context, snapshot models.CartSnapshot, err error) {
	if err != nil {
		respondWithMappedError(c, err, cartErrorRules, gin.H{"cart": newCartResponse(snapshot)})
		return
	}
	response.Success(c, newCartResponse(snapshot))
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	response.Success(c, newCartResponse(h.CartState.Snapshot()))
}

// AddCartItem 加购
func (h *Handler) AddCartItem(c *gin.Context) {
	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	snapshot, err := h.CartSyncService.AddToCart(c.Request.Context(), models.CartLineItem{
		ProductID: req.ProductID,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		ImageRef:  req.ImageRef,
		Quantity:  req.Quantity,
	})
	h.respondCart(c, snapshot, err)
}

// SetCartItemQuantity 设置数量，<= 0 删除
func (h *Handler) SetCartItemQuantity(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	var req CartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	snapshot, err := h.CartSyncService.SetQuantity(c.Request.Context(), productID, *req.Quantity)
	h.respondCart(c, snapshot, err)
}

// IncreaseCartItem 数量 +1
func (h *Handler) IncreaseCartItem(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	snapshot, err := h.CartSyncService.Increase(c.Request.Context(), productID)
	h.respondCart(c, snapshot, err)
}

// DecreaseCartItem 数量 -1
func (h *Handler) DecreaseCartItem(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	snapshot, err := h.CartSyncService.Decrease(c.Request.Context(), productID)
	h.respondCart(c, snapshot, err)
}

// DeleteCartItem 删除购物车项
func (h *Handler) DeleteCartItem(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}
	snapshot, err := h.CartSyncService.RemoveFromCart(c.Request.Context(), productID)
	h.respondCart(c, snapshot, err)
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	snapshot, err := h.CartSyncService.ClearCart(c.Request.Context())
	h.respondCart(c, snapshot, err)
}

// RefreshCart 与服务端购物车对齐
func (h *Handler) RefreshCart(c *gin.Context) {
	snapshot, err := h.CartSyncService.Refresh(c.Request.Context())
	h.respondCart(c, snapshot, err)
}
