package session

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SchemaVersion версия сериализованной корзины. Блоб с другой версией
// считается нечитаемым и заменяется пустой корзиной.
const SchemaVersion = 1

type Item struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	ImageURL       string    `json:"image_url,omitempty"`
	Quantity       int       `json:"quantity"`
	Size           string    `json:"size,omitempty"`
}

// Cart — упорядоченный список позиций, порядок = порядок добавления.
// Ключ уникальности позиции — пара (ProductID, Size).
type Cart struct {
	Items []Item
}

func (c Cart) Count() int {
	total := 0
	for _, it := range c.Items {
		total += it.Quantity
	}
	return total
}

func (c Cart) TotalCents() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.UnitPriceCents * int64(it.Quantity)
	}
	return total
}

func (c Cart) Empty() bool { return len(c.Items) == 0 }

// Find возвращает индекс позиции с данным (productID, size) или -1.
func (c Cart) Find(productID uuid.UUID, size string) int {
	for i, it := range c.Items {
		if it.ProductID == productID && it.Size == size {
			return i
		}
	}
	return -1
}

type blob struct {
	SchemaVersion int    `json:"schema_version"`
	Items         []Item `json:"items"`
}

func Encode(c Cart) ([]byte, error) {
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(blob{SchemaVersion: SchemaVersion, Items: items})
}

func Decode(data []byte) (Cart, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return Cart{}, err
	}
	if b.SchemaVersion != SchemaVersion {
		return Cart{}, fmt.Errorf("unsupported cart schema version %d", b.SchemaVersion)
	}
	items := b.Items
	if items == nil {
		items = []Item{}
	}
	return Cart{Items: items}, nil
}
