package models

import (
	"encoding/json"
	"strings"
)

// LineRef 购物车行与服务端的关联状态
// 仅有 Confirmed 与 Pending 两种实现；nil 表示纯本地（游客）行
type LineRef interface {
	lineRef()
}

// Confirmed 服务端已存在的购物车行
type Confirmed struct {
	ServerLineID string
}

// Pending 乐观插入、等待服务端确认的购物车行
type Pending struct {
	TempID string
}

func (Confirmed) lineRef() {}
func (Pending) lineRef()   {}

// CartLineItem 购物车行（加购时的展示快照，不随商品变化刷新）
type CartLineItem struct {
	ProductID uint
	Name      string
	UnitPrice Money
	ImageRef  string
	Quantity  int
	Ref       LineRef
}

type cartLineItemJSON struct {
	ProductID    uint   `json:"product_id"`
	Name         string `json:"name"`
	UnitPrice    Money  `json:"unit_price"`
	ImageRef     string `json:"image_ref"`
	Quantity     int    `json:"quantity"`
	ServerLineID string `json:"server_line_id,omitempty"`
	PendingID    string `json:"pending_id,omitempty"`
}

// MarshalJSON 展开 Ref 为 server_line_id / pending_id
func (i CartLineItem) MarshalJSON() ([]byte, error) {
	payload := cartLineItemJSON{
		ProductID: i.ProductID,
		Name:      i.Name,
		UnitPrice: i.UnitPrice,
		ImageRef:  i.ImageRef,
		Quantity:  i.Quantity,
	}
	switch ref := i.Ref.(type) {
	case Confirmed:
		payload.ServerLineID = ref.ServerLineID
	case Pending:
		payload.PendingID = ref.TempID
	}
	return json.Marshal(payload)
}

// UnmarshalJSON 还原 Ref；两者同时存在时以 server_line_id 为准
func (i *CartLineItem) UnmarshalJSON(b []byte) error {
	var payload cartLineItemJSON
	if err := json.Unmarshal(b, &payload); err != nil {
		return err
	}
	*i = CartLineItem{
		ProductID: payload.ProductID,
		Name:      payload.Name,
		UnitPrice: payload.UnitPrice,
		ImageRef:  payload.ImageRef,
		Quantity:  payload.Quantity,
	}
	switch {
	case strings.TrimSpace(payload.ServerLineID) != "":
		i.Ref = Confirmed{ServerLineID: payload.ServerLineID}
	case strings.TrimSpace(payload.PendingID) != "":
		i.Ref = Pending{TempID: payload.PendingID}
	}
	return nil
}

// ServerLineID 返回已确认的服务端行 ID
func (i CartLineItem) ServerLineID() (string, bool) {
	ref, ok := i.Ref.(Confirmed)
	if !ok || ref.ServerLineID == "" {
		return "", false
	}
	return ref.ServerLineID, true
}

// PendingID 返回乐观插入的临时 ID
func (i CartLineItem) PendingID() (string, bool) {
	ref, ok := i.Ref.(Pending)
	if !ok || ref.TempID == "" {
		return "", false
	}
	return ref.TempID, true
}

// Subtotal 行小计
func (i CartLineItem) Subtotal() Money {
	return i.UnitPrice.Times(i.Quantity)
}

// CartSnapshot 购物车快照
type CartSnapshot struct {
	Items []CartLineItem `json:"items"`
	Total Money          `json:"total"`
}

// NewCartSnapshot 复制行并计算合计
func NewCartSnapshot(items []CartLineItem) CartSnapshot {
	copied := make([]CartLineItem, len(items))
	copy(copied, items)
	return CartSnapshot{Items: copied, Total: SumLines(copied)}
}

// SumLines 计算 Σ(单价 × 数量)
func SumLines(items []CartLineItem) Money {
	total := NewMoneyFromInt(0)
	for _, item := range items {
		total = total.Plus(item.Subtotal())
	}
	return total
}

// Count 商品件数合计
func (s CartSnapshot) Count() int {
	count := 0
	for _, item := range s.Items {
		count += item.Quantity
	}
	return count
}
